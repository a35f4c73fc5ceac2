package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cardano-community/cncli/internal/xcrypto"
)

// shelleyStyleHeader is the TPraos header body shared by Shelley, Allegra,
// Mary and Alonzo: a distinct leader VRF (used by the leader-election
// check) and block-nonce VRF (used by nonce evolution) are carried as
// separate fields, each a (proof, output) pair.
type shelleyStyleHeader struct {
	_             struct{} `cbor:",toarray"`
	BlockNumber   uint64
	SlotNumber    uint64
	PrevHash      []byte
	IssuerVKey    []byte
	VrfVKey       []byte
	LeaderVRF     vrfCert
	BlockVRF      vrfCert
	BlockSize     uint64
	BlockBodyHash []byte
	OpCert        cbor.RawMessage
	ProtocolVer   cbor.RawMessage
	PoolID        []byte
}

type vrfCert struct {
	_      struct{} `cbor:",toarray"`
	Output []byte
	Proof  []byte
}

func decodeShelleyStyle(era Era) eraDecoder {
	return func(payload []byte) (Header, error) {
		var raw shelleyStyleHeader
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
		if len(raw.LeaderVRF.Output) == 64 {
			var out [64]byte
			copy(out[:], raw.LeaderVRF.Output)
			h.LeaderVRF = &out
		}
		if len(raw.BlockVRF.Output) == 64 {
			var out [64]byte
			copy(out[:], raw.BlockVRF.Output)
			h.BlockVRF = &out
			etaV := xcrypto.Blake2b256(out[:])
			h.EtaV = &etaV
		}
		if len(raw.IssuerVKey) == 32 {
			var vkey [32]byte
			copy(vkey[:], raw.IssuerVKey)
			h.NodeVKey = &vkey
		}
		return h, nil
	}
}
