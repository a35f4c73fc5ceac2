package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cardano-community/cncli/internal/xcrypto"
)

// byronBoundaryHeader mirrors the Byron epoch-boundary block header: a
// short array carrying only the fields needed to place the block in the
// chain. Byron boundary blocks never carry a VRF output or a pool id.
type byronBoundaryHeader struct {
	_           struct{} `cbor:",toarray"`
	Epoch       uint64
	PrevHash    []byte
	BodyProof   []byte // unused beyond hashing, kept for round-trip fidelity
	ChainDiff   uint64
}

func decodeByronBoundary(payload []byte) (Header, error) {
	var raw byronBoundaryHeader
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return Header{}, err
	}
	h := Header{
		BlockNumber: raw.ChainDiff,
		SlotNumber:  raw.Epoch * 21600,
		SlotInEpoch: 0,
	}
	h.Hash = xcrypto.Blake2b256(payload)
	if len(raw.PrevHash) == 32 {
		var prev [32]byte
		copy(prev[:], raw.PrevHash)
		h.PrevHash = &prev
	}
	return h, nil
}

// byronMainHeader mirrors a Byron main-block header. Like the boundary
// header it carries no VRF field; consensus at this era predates VRF-based
// leader election entirely.
type byronMainHeader struct {
	_          struct{} `cbor:",toarray"`
	PrevHash   []byte
	BodyProof  []byte
	ConsensusData struct {
		_      struct{} `cbor:",toarray"`
		Epoch  uint64
		Slot   uint16
		PubKey []byte
		Diff   uint64
	}
	ExtraData []byte
}

func decodeByronMain(payload []byte) (Header, error) {
	var raw byronMainHeader
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return Header{}, err
	}
	h := Header{
		BlockNumber: raw.ConsensusData.Diff,
		SlotNumber:  raw.ConsensusData.Epoch*21600 + uint64(raw.ConsensusData.Slot),
		SlotInEpoch: uint32(raw.ConsensusData.Slot),
	}
	h.Hash = xcrypto.Blake2b256(payload)
	if len(raw.PrevHash) == 32 {
		var prev [32]byte
		copy(prev[:], raw.PrevHash)
		h.PrevHash = &prev
	}
	if len(raw.ConsensusData.PubKey) == 32 {
		var vkey [32]byte
		copy(vkey[:], raw.ConsensusData.PubKey)
		h.NodeVKey = &vkey
	}
	return h, nil
}
