// Package nonce implements C6: derivation of the epoch nonce η_e and its
// companion practical nonce η_ph, recomputed on demand from the persisted
// header stream rather than cached as authoritative state (spec.md §3).
package nonce

import (
	"context"
	"fmt"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/genesis"
	"github.com/cardano-community/cncli/internal/xcrypto"
)

// HeaderSource is the narrow store dependency C6 needs; internal/store
// satisfies it.
type HeaderSource interface {
	HeadersThroughSlot(ctx context.Context, slotLimit uint64) ([]codec.Header, error)
}

// Result is C6's output for a target epoch: the epoch nonce, the
// practical nonce used for block-body hashing, and the epoch's first
// absolute slot and wall-clock time.
type Result struct {
	Epoch        uint64
	EpochNonce   [32]byte
	PracticalNonce [32]byte
	FirstSlot    uint64
	FirstTime    int64 // unix seconds
}

// candidateNonce folds η_initial through every block's eta_v contribution up
// to and including slotLimit, in slot order, per spec.md §4.6's description
// of η_c as a running hash chain. eta_v is computed once per header at
// decode time (internal/codec) and persisted on the block row, so this fold
// only re-hashes the running value against that stored contribution rather
// than re-deriving it from raw VRF bytes on every invocation.
func candidateNonce(ctx context.Context, src HeaderSource, initial []byte, slotLimit uint64) ([32]byte, error) {
	headers, err := src.HeadersThroughSlot(ctx, slotLimit)
	if err != nil {
		return [32]byte{}, fmt.Errorf("nonce: load headers: %w", err)
	}
	running := append([]byte(nil), initial...)
	for _, h := range headers {
		if h.EtaV == nil {
			continue
		}
		buf := make([]byte, 0, len(running)+len(h.EtaV))
		buf = append(buf, running...)
		buf = append(buf, h.EtaV[:]...)
		digest := xcrypto.Blake2b256(buf)
		running = digest[:]
	}
	var result [32]byte
	copy(result[:], running)
	return result, nil
}

// stabilityCutoffHeader returns the last block whose slot falls within the
// first 4k/f slots of epoch e, or ok=false if none exists, per spec.md
// §4.6's η_h(e) definition.
func stabilityCutoffHeader(ctx context.Context, src interface {
	FindEpochLastBlock(ctx context.Context, nextEpochFirstSlot uint64) (codec.Header, bool, error)
}, g *genesis.Config, epoch uint64) (codec.Header, bool, error) {
	cutoff := g.FirstSlotOfEpoch(epoch) + g.StabilityWindowSlots()
	return src.FindEpochLastBlock(ctx, cutoff)
}

// EpochHashSource is the store dependency needed to locate η_h's anchor
// block; internal/store satisfies it alongside HeaderSource.
type EpochHashSource interface {
	FindEpochLastBlock(ctx context.Context, nextEpochFirstSlot uint64) (codec.Header, bool, error)
}

// Store is the combined dependency C6 needs from C5.
type Store interface {
	HeaderSource
	EpochHashSource
}

// Derive computes η_e (and companions) for target epoch e, per spec.md
// §4.6: η_e = H(η_c(e-2) || η_h(e-1) || extra_entropy?).
func Derive(ctx context.Context, st Store, g *genesis.Config, epoch uint64, extraEntropy []byte) (Result, error) {
	var candidateEpoch uint64
	if epoch >= 2 {
		candidateEpoch = epoch - 2
	}
	candidateCutoff := g.FirstSlotOfEpoch(candidateEpoch) + g.EpochLength - 1

	etaC, err := candidateNonce(ctx, st, g.InitialNonce, candidateCutoff)
	if err != nil {
		return Result{}, err
	}

	var hashEpoch uint64
	if epoch >= 1 {
		hashEpoch = epoch - 1
	}
	etaH := g.InitialNonce
	if h, ok, err := stabilityCutoffHeader(ctx, st, g, hashEpoch); err != nil {
		return Result{}, fmt.Errorf("nonce: locate stability-window anchor: %w", err)
	} else if ok {
		etaH = h.Hash[:]
	}

	buf := make([]byte, 0, 32+len(etaH)+len(extraEntropy))
	buf = append(buf, etaC[:]...)
	buf = append(buf, etaH...)
	buf = append(buf, extraEntropy...)
	epochNonce := xcrypto.Blake2b256(buf)

	// The practical nonce used for block-body hashing omits extra entropy,
	// per the upstream node's eta_v derivation.
	bufPH := make([]byte, 0, 32+len(etaH))
	bufPH = append(bufPH, etaC[:]...)
	bufPH = append(bufPH, etaH...)
	practicalNonce := xcrypto.Blake2b256(bufPH)

	return Result{
		Epoch:          epoch,
		EpochNonce:     epochNonce,
		PracticalNonce: practicalNonce,
		FirstSlot:      g.FirstSlotOfEpoch(epoch),
		FirstTime:      g.FirstTimeOfEpoch(epoch).Unix(),
	}, nil
}
