// Package codec implements C2: decoding of block headers from the
// recognised Cardano eras into a uniform in-memory record, and CBOR
// encode/decode of mini-protocol message bodies.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Era identifies which header layout decoded a Header.
type Era uint8

const (
	EraByronBoundary Era = iota
	EraByronMain
	EraShelley
	EraAllegra
	EraMary
	EraAlonzo
	EraBabbage
	EraConway
)

func (e Era) String() string {
	switch e {
	case EraByronBoundary:
		return "byron-boundary"
	case EraByronMain:
		return "byron-main"
	case EraShelley:
		return "shelley"
	case EraAllegra:
		return "allegra"
	case EraMary:
		return "mary"
	case EraAlonzo:
		return "alonzo"
	case EraBabbage:
		return "babbage"
	case EraConway:
		return "conway"
	default:
		return "unknown"
	}
}

// Header is the uniform header record every era decodes into, matching the
// persisted row shape in spec.md §3.
type Header struct {
	Era           Era
	BlockNumber   uint64
	SlotNumber    uint64
	SlotInEpoch   uint32
	Hash          [32]byte
	PrevHash      *[32]byte // nil for genesis
	PoolID        *[28]byte // nil for Byron boundary blocks
	LeaderVRF     *[64]byte
	BlockVRF      *[64]byte
	EtaV          *[32]byte // nonce contribution, computed once at decode time
	NodeVKey      *[32]byte
	RawCBOR       []byte // the exact bytes decoded, kept for round-trip encode
}

// DecodeError carries a byte offset for a failed CBOR decode, per spec.md
// §4.2: the start of the CBOR item whose decoding failed (0 for the outer
// frame, the era payload's start for a header body), not the exact failing
// byte within it.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decode error at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// outerFrame is the `[era_tag, payload]` wrapper every header and
// mini-protocol message body is wrapped in.
type outerFrame struct {
	_        struct{} `cbor:",toarray"`
	EraTag   uint64
	Payload  cbor.RawMessage
}

// eraDecoder decodes a payload of a known era into a uniform Header. Byte
// offsets reported in DecodeError are relative to the outer frame's start.
type eraDecoder func(payload []byte) (Header, error)

var decoders = map[uint64]struct {
	era Era
	fn  eraDecoder
}{
	0: {EraByronBoundary, decodeByronBoundary},
	1: {EraByronMain, decodeByronMain},
	2: {EraShelley, decodeShelleyStyle(EraShelley)},
	3: {EraAllegra, decodeShelleyStyle(EraAllegra)},
	4: {EraMary, decodeShelleyStyle(EraMary)},
	5: {EraAlonzo, decodeShelleyStyle(EraAlonzo)},
	6: {EraBabbage, decodePraosStyle(EraBabbage)},
	7: {EraConway, decodePraosStyle(EraConway)},
}

// DecodeHeader decodes the outer `[era_tag, payload]` frame and dispatches
// to the era-specific decoder. Unknown era tags fail with a DecodeError
// rather than a best-effort decode, per spec.md §4.2/§9.
func DecodeHeader(raw []byte) (Header, error) {
	var frame outerFrame
	if err := cbor.Unmarshal(raw, &frame); err != nil {
		return Header{}, &DecodeError{Offset: 0, Err: err}
	}
	d, ok := decoders[frame.EraTag]
	if !ok {
		return Header{}, &DecodeError{Offset: 0, Err: fmt.Errorf("unknown era tag %d", frame.EraTag)}
	}
	h, err := d.fn(frame.Payload)
	if err != nil {
		return Header{}, &DecodeError{Offset: len(raw) - len(frame.Payload), Err: err}
	}
	h.Era = d.era
	h.RawCBOR = append([]byte(nil), raw...)
	return h, nil
}

// EncodeHeader re-serializes a previously decoded Header's raw CBOR bytes.
// Round-tripping a Header this way always yields byte-identical output
// because DecodeHeader retains the original bytes rather than
// reconstructing them from the parsed fields.
func EncodeHeader(h Header) []byte {
	return append([]byte(nil), h.RawCBOR...)
}
