package leaderlog

import (
	"runtime"
	"sort"
	"sync"
)

// Elected is one elected slot in a schedule, identified by its absolute
// slot number, with the VRF output that elected it.
type Elected struct {
	Slot   uint64 // absolute slot
	Output [64]byte
}

// Schedule enumerates every elected slot in [firstSlot, firstSlot+epochLength)
// for the given election input. Per-slot evaluation is independent and is
// parallelised across a work-stealing-style worker pool sized to
// GOMAXPROCS, per spec.md §4.7/§5.
func Schedule(in ElectionInput, firstSlot, epochLength uint64) ([]Elected, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if uint64(workers) > epochLength && epochLength > 0 {
		workers = int(epochLength)
	}

	jobs := make(chan uint64, workers*2)
	results := make(chan Elected, workers*2)
	errs := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slot := firstSlot + i
				elected, output, err := Check(in, slot)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				if elected {
					results <- Elected{Slot: slot, Output: output}
				}
			}
		}()
	}

	go func() {
		for i := uint64(0); i < epochLength; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []Elected
	for r := range results {
		out = append(out, r)
	}
	select {
	case err := <-errs:
		return nil, err
	default:
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}
