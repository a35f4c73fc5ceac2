package codec

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func frameFor(t *testing.T, eraTag uint64, payload any) []byte {
	t.Helper()
	body, err := cbor.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := cbor.Marshal([]any{eraTag, cbor.RawMessage(body)})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return frame
}

func TestDecodeHeader_ShelleyStyle(t *testing.T) {
	prevHash := bytes.Repeat([]byte{0x11}, 32)
	poolID := bytes.Repeat([]byte{0x22}, 28)
	leaderOut := bytes.Repeat([]byte{0x33}, 64)

	raw := shelleyStyleHeader{
		BlockNumber:   42,
		SlotNumber:    1000,
		PrevHash:      prevHash,
		IssuerVKey:    bytes.Repeat([]byte{0x44}, 32),
		VrfVKey:       bytes.Repeat([]byte{0x55}, 32),
		LeaderVRF:     vrfCert{Output: leaderOut, Proof: bytes.Repeat([]byte{0x66}, 80)},
		BlockVRF:      vrfCert{Output: bytes.Repeat([]byte{0x77}, 64), Proof: bytes.Repeat([]byte{0x88}, 80)},
		BlockBodyHash: bytes.Repeat([]byte{0x99}, 32),
		OpCert:        cbor.RawMessage{0xf6},
		ProtocolVer:   cbor.RawMessage{0xf6},
		PoolID:        poolID,
	}

	frame := frameFor(t, 2, raw)
	h, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Era != EraShelley {
		t.Fatalf("expected era shelley, got %v", h.Era)
	}
	if h.BlockNumber != 42 || h.SlotNumber != 1000 {
		t.Fatalf("unexpected block/slot: %d/%d", h.BlockNumber, h.SlotNumber)
	}
	if h.PrevHash == nil || !bytes.Equal(h.PrevHash[:], prevHash) {
		t.Fatalf("unexpected prev hash: %v", h.PrevHash)
	}
	if h.PoolID == nil || !bytes.Equal(h.PoolID[:], poolID) {
		t.Fatalf("unexpected pool id: %v", h.PoolID)
	}
	if h.LeaderVRF == nil || !bytes.Equal(h.LeaderVRF[:], leaderOut) {
		t.Fatalf("unexpected leader VRF output: %v", h.LeaderVRF)
	}
	if !bytes.Equal(h.RawCBOR, frame) {
		t.Fatalf("RawCBOR was not retained verbatim")
	}
}

func TestDecodeHeader_PraosStyleSplitsVRFOutputByDomain(t *testing.T) {
	vrfOutput := bytes.Repeat([]byte{0xab}, 64)
	raw := praosStyleHeader{
		BlockNumber:   7,
		SlotNumber:    500,
		PrevHash:      bytes.Repeat([]byte{0x01}, 32),
		IssuerVKey:    bytes.Repeat([]byte{0x02}, 32),
		VrfVKey:       bytes.Repeat([]byte{0x03}, 32),
		VRF:           vrfCert{Output: vrfOutput, Proof: bytes.Repeat([]byte{0x04}, 80)},
		BlockBodyHash: bytes.Repeat([]byte{0x05}, 32),
		OpCert:        cbor.RawMessage{0xf6},
		ProtocolVer:   cbor.RawMessage{0xf6},
		PoolID:        bytes.Repeat([]byte{0x06}, 28),
	}

	frame := frameFor(t, 6, raw)
	h, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Era != EraBabbage {
		t.Fatalf("expected era babbage, got %v", h.Era)
	}
	if h.LeaderVRF == nil || h.BlockVRF == nil {
		t.Fatalf("expected both LeaderVRF and BlockVRF to be derived")
	}
	if bytes.Equal(h.LeaderVRF[:], h.BlockVRF[:]) {
		t.Fatalf("domain-separated hashes must differ between leader and block roles")
	}
}

func TestDecodeHeader_ByronBoundaryHasNoVRFOrPool(t *testing.T) {
	raw := byronBoundaryHeader{
		Epoch:     3,
		PrevHash:  bytes.Repeat([]byte{0x0a}, 32),
		BodyProof: []byte{0x01},
		ChainDiff: 99,
	}
	frame := frameFor(t, 0, raw)
	h, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Era != EraByronBoundary {
		t.Fatalf("expected era byron-boundary, got %v", h.Era)
	}
	if h.BlockNumber != 99 {
		t.Fatalf("unexpected block number: %d", h.BlockNumber)
	}
	if h.SlotNumber != 3*21600 {
		t.Fatalf("unexpected slot number: %d", h.SlotNumber)
	}
	if h.PoolID != nil || h.LeaderVRF != nil || h.BlockVRF != nil {
		t.Fatalf("byron boundary header must carry no VRF or pool fields")
	}
}

func TestDecodeHeader_UnknownEraTagFails(t *testing.T) {
	frame, err := cbor.Marshal([]any{99, cbor.RawMessage{0xf6}})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if _, err := DecodeHeader(frame); err == nil {
		t.Fatalf("expected an error for an unknown era tag")
	}
}

func TestDecodeHeader_MalformedCBORFails(t *testing.T) {
	if _, err := DecodeHeader([]byte{0xff, 0xff}); err == nil {
		t.Fatalf("expected an error for malformed CBOR")
	}
}

func TestEncodeHeader_RoundTripsRawBytes(t *testing.T) {
	raw := byronMainHeader{PrevHash: bytes.Repeat([]byte{0x01}, 32)}
	raw.ConsensusData.Epoch = 1
	raw.ConsensusData.Slot = 10
	raw.ConsensusData.PubKey = bytes.Repeat([]byte{0x02}, 32)
	raw.ConsensusData.Diff = 5

	frame := frameFor(t, 1, raw)
	h, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if !bytes.Equal(EncodeHeader(h), frame) {
		t.Fatalf("EncodeHeader did not round-trip the original bytes")
	}
}
