package nonce

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cardano-community/cncli/internal/codec"
	"github.com/cardano-community/cncli/internal/genesis"
	"github.com/cardano-community/cncli/internal/xcrypto"
)

// fakeStore is an in-memory Store double: headers are held unsorted to
// exercise the slot-ordering fold, and the epoch-last-block lookup is a
// linear scan mirroring internal/store's FindEpochLastBlock query.
type fakeStore struct {
	headers []codec.Header
}

func (f *fakeStore) HeadersThroughSlot(_ context.Context, slotLimit uint64) ([]codec.Header, error) {
	var out []codec.Header
	for _, h := range f.headers {
		if h.SlotNumber <= slotLimit {
			out = append(out, h)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SlotNumber < out[i].SlotNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeStore) FindEpochLastBlock(_ context.Context, nextEpochFirstSlot uint64) (codec.Header, bool, error) {
	var best codec.Header
	found := false
	for _, h := range f.headers {
		if h.SlotNumber < nextEpochFirstSlot && (!found || h.SlotNumber > best.SlotNumber) {
			best = h
			found = true
		}
	}
	return best, found, nil
}

func headerWithVRF(slot uint64, vrfByte byte, hashByte byte) codec.Header {
	h := codec.Header{SlotNumber: slot}
	h.Hash[0] = hashByte
	var v [64]byte
	v[0] = vrfByte
	h.BlockVRF = &v
	etaV := xcrypto.Blake2b256(v[:])
	h.EtaV = &etaV
	return h
}

func testGenesis() *genesis.Config {
	return &genesis.Config{
		EpochLength:                100,
		SlotLengthSeconds:          1,
		StartTime:                  time.Unix(0, 0).UTC(),
		ActiveSlotsCoeff:           big.NewRat(1, 20),
		SecurityParameter:          5,
		InitialNonce:               bytes.Repeat([]byte{0xAB}, 32),
		ByronShelleyTransitionEpoch: 0,
	}
}

func TestDerive_DeterministicAcrossRuns(t *testing.T) {
	st := &fakeStore{headers: []codec.Header{
		headerWithVRF(10, 0x01, 0x11),
		headerWithVRF(150, 0x02, 0x22),
		headerWithVRF(250, 0x03, 0x33),
	}}
	g := testGenesis()

	r1, err := Derive(context.Background(), st, g, 3, nil)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	r2, err := Derive(context.Background(), st, g, 3, nil)
	if err != nil {
		t.Fatalf("second Derive failed: %v", err)
	}
	if r1.EpochNonce != r2.EpochNonce || r1.PracticalNonce != r2.PracticalNonce {
		t.Fatalf("Derive is not deterministic: %+v vs %+v", r1, r2)
	}
}

func TestDerive_ExtraEntropyChangesEpochNonceButNotPracticalNonce(t *testing.T) {
	st := &fakeStore{headers: []codec.Header{
		headerWithVRF(10, 0x01, 0x11),
	}}
	g := testGenesis()

	plain, err := Derive(context.Background(), st, g, 2, nil)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	withEntropy, err := Derive(context.Background(), st, g, 2, []byte{0xFF})
	if err != nil {
		t.Fatalf("Derive with entropy failed: %v", err)
	}
	if plain.EpochNonce == withEntropy.EpochNonce {
		t.Fatalf("expected extra entropy to change the epoch nonce")
	}
	if plain.PracticalNonce != withEntropy.PracticalNonce {
		t.Fatalf("practical nonce must not depend on extra entropy")
	}
}

func TestDerive_EarlyEpochsClampToZero(t *testing.T) {
	st := &fakeStore{}
	g := testGenesis()

	if _, err := Derive(context.Background(), st, g, 0, nil); err != nil {
		t.Fatalf("Derive(epoch=0) failed: %v", err)
	}
	if _, err := Derive(context.Background(), st, g, 1, nil); err != nil {
		t.Fatalf("Derive(epoch=1) failed: %v", err)
	}
}

func TestCandidateNonce_SkipsHeadersWithoutVRF(t *testing.T) {
	withoutVRF := codec.Header{SlotNumber: 5}
	withVRF := headerWithVRF(6, 0x09, 0x00)

	a, err := candidateNonce(context.Background(), &fakeStore{headers: []codec.Header{withoutVRF, withVRF}}, []byte("seed"), 100)
	if err != nil {
		t.Fatalf("candidateNonce failed: %v", err)
	}
	b, err := candidateNonce(context.Background(), &fakeStore{headers: []codec.Header{withVRF}}, []byte("seed"), 100)
	if err != nil {
		t.Fatalf("candidateNonce (no skip header) failed: %v", err)
	}
	if a != b {
		t.Fatalf("expected headers lacking a block VRF to be skipped from the fold")
	}
}
