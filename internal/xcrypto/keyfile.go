package xcrypto

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// LoadExtendedKeyFile reads a hex-encoded 64-byte extended Ed25519/VRF
// signing key from path (one line, optional surrounding whitespace),
// matching the key-file convention the upstream node's own key-generation
// tooling produces.
func LoadExtendedKeyFile(path string) (ExtendedKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtendedKey{}, fmt.Errorf("%w: read key file %s: %v", ErrMalformedKey, path, err)
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return ExtendedKey{}, fmt.Errorf("%w: decode key file %s: %v", ErrMalformedKey, path, err)
	}
	if len(decoded) != ExtendedKeySize {
		return ExtendedKey{}, fmt.Errorf("%w: key file %s has %d bytes, want %d", ErrMalformedKey, path, len(decoded), ExtendedKeySize)
	}
	var key ExtendedKey
	copy(key[:], decoded)
	return key, nil
}
