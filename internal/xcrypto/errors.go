package xcrypto

import "errors"

// ErrVerificationFailed names a signature or VRF proof that does not check
// out, as a Crypto-class error rather than a decode failure. Verify and
// VerifyExtended do not return it: they report a failed check as a false
// bool.
var ErrVerificationFailed = errors.New("xcrypto: verification failed")

// ErrMalformedKey is returned when a key or proof byte string has the wrong
// length or does not decode to a valid curve point.
var ErrMalformedKey = errors.New("xcrypto: malformed key or proof material")
