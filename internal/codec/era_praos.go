package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cardano-community/cncli/internal/xcrypto"
)

// praosStyleHeader is the Praos/CPraos header body shared by Babbage and
// Conway: a single VRF cert replaces Shelley's separate leader/block-nonce
// VRFs. Its output is split by domain-separated hashing into the two
// roles Header.LeaderVRF and Header.BlockVRF play downstream (spec.md
// §4.2/§4.6).
type praosStyleHeader struct {
	_             struct{} `cbor:",toarray"`
	BlockNumber   uint64
	SlotNumber    uint64
	PrevHash      []byte
	IssuerVKey    []byte
	VrfVKey       []byte
	VRF           vrfCert
	BlockSize     uint64
	BlockBodyHash []byte
	OpCert        cbor.RawMessage
	ProtocolVer   cbor.RawMessage
	PoolID        []byte
}

func decodePraosStyle(era Era) eraDecoder {
	return func(payload []byte) (Header, error) {
		var raw praosStyleHeader
		if err := cbor.Unmarshal(payload, &raw); err != nil {
			return Header{}, err
		}
		h := Header{
			BlockNumber: raw.BlockNumber,
			SlotNumber:  raw.SlotNumber,
		}
		h.Hash = xcrypto.Blake2b256(payload)
		if len(raw.PrevHash) == 32 {
			var prev [32]byte
			copy(prev[:], raw.PrevHash)
			h.PrevHash = &prev
		}
		if len(raw.PoolID) == 28 {
			var id [28]byte
			copy(id[:], raw.PoolID)
			h.PoolID = &id
		}
		if len(raw.IssuerVKey) == 32 {
			var vkey [32]byte
			copy(vkey[:], raw.IssuerVKey)
			h.NodeVKey = &vkey
		}
		if len(raw.VRF.Output) == 64 {
			leader := xcrypto.DomainHash("L", raw.VRF.Output)
			nonce := xcrypto.DomainHash("NONCE", raw.VRF.Output)
			h.LeaderVRF = &leader
			h.BlockVRF = &nonce
			etaV := xcrypto.Blake2b256(nonce[:])
			h.EtaV = &etaV
		}
		return h, nil
	}
}
