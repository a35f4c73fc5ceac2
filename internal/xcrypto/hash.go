// Package xcrypto implements the cryptographic primitives cncli's consensus
// reproduction depends on: Blake2b hashing at the three digest sizes the
// wire protocol and ledger rules use, Ed25519-extended signing compatible
// with Cardano's key derivation, and the two VRF constructions used by
// TPraos and Praos/CPraos.
//
// Every function here is meant to be byte-exact with the reference
// consensus implementation; a verification failure is reported as a bool,
// never as a panic or a generic decode error.
package xcrypto

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Blake2b224 returns the 28-byte Blake2b digest of data, used for pool and
// key hashes throughout the ledger.
func Blake2b224(data []byte) [28]byte {
	h, err := blake2b.New(28, nil)
	if err != nil {
		// Only possible if the requested size/key combination is invalid;
		// 28 bytes with no key is always valid.
		panic(fmt.Sprintf("xcrypto: blake2b-224 init: %v", err))
	}
	h.Write(data)
	var out [28]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 returns the 32-byte Blake2b digest of data, used for block and
// transaction body hashes.
func Blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// Blake2b512 returns the 64-byte Blake2b digest of data, used internally by
// the VRF nonce-generation step.
func Blake2b512(data []byte) [64]byte {
	return blake2b.Sum512(data)
}

// DomainHash computes Blake2b512(label || data), the full 64-byte
// domain-separated construction spec.md §4.6/§4.7 uses to split a single Praos
// VRF output into its leader-election and nonce-evolution roles (e.g.
// label "NONCE" or "L").
func DomainHash(label string, data []byte) [64]byte {
	buf := make([]byte, 0, len(label)+len(data))
	buf = append(buf, label...)
	buf = append(buf, data...)
	return Blake2b512(buf)
}
