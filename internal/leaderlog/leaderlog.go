// Package leaderlog implements C7: per-slot VRF leader election across the
// tpraos, praos and cpraos consensus variants, and enumeration of a full
// epoch's elected-slot schedule.
package leaderlog

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cardano-community/cncli/internal/xcrypto"
)

// Variant identifies which consensus rules govern seed derivation, the
// reserved-slot mixin, and the VRF-output-to-certified-natural mapping.
type Variant uint8

const (
	TPraos Variant = iota
	Praos
	CPraos
)

func (v Variant) String() string {
	switch v {
	case TPraos:
		return "tpraos"
	case Praos:
		return "praos"
	case CPraos:
		return "cpraos"
	default:
		return "unknown"
	}
}

// ParseVariant parses the consensus variant names used in configuration
// and the CLI.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "tpraos":
		return TPraos, nil
	case "praos":
		return Praos, nil
	case "cpraos":
		return CPraos, nil
	default:
		return 0, fmt.Errorf("leaderlog: unknown consensus variant %q", s)
	}
}

func (v Variant) vrfVariant() xcrypto.VRFVariant {
	if v == TPraos {
		return xcrypto.VRFDraft03
	}
	return xcrypto.VRFBatchCompat
}

// precisionBits sizes every big.Float used in the certified-natural
// threshold computation comfortably above the ≥34-significant-decimal-digit
// requirement (34 digits ≈ 113 bits; 256 bits leaves ample headroom so
// Taylor-series truncation error never reaches the compared digits).
const precisionBits = 256

// taylorTerms bounds the Taylor expansions for ln(1-f) and exp(x) below.
// f and σ are both in [0,1], so |x| = |σ·ln(1-f)| is bounded whenever f is
// not pathologically close to 1; 200 terms converges to far beyond
// precisionBits for every f cncli is configured with in practice (f ≤ 0.5).
const taylorTerms = 200

// oneMinusFPowSigma computes (1-f)^σ = exp(σ·ln(1-f)) to precisionBits of
// precision via Taylor expansion, matching the reference implementation's
// fixed-precision arithmetic bit-for-bit (spec.md §4.7).
func oneMinusFPowSigma(f, sigma *big.Rat) *big.Float {
	one := new(big.Float).SetPrec(precisionBits).SetInt64(1)
	fFloat := ratToFloat(f)
	x := new(big.Float).SetPrec(precisionBits).Sub(one, fFloat) // 1-f

	lnX := lnSeries(x)
	sigmaFloat := ratToFloat(sigma)
	exponent := new(big.Float).SetPrec(precisionBits).Mul(sigmaFloat, lnX)
	return expSeries(exponent)
}

func ratToFloat(r *big.Rat) *big.Float {
	return new(big.Float).SetPrec(precisionBits).SetRat(r)
}

// lnSeries computes ln(x) for x in (0,1] via the Taylor series of
// ln(1-u) = -(u + u^2/2 + u^3/3 + ...) where u = 1-x.
func lnSeries(x *big.Float) *big.Float {
	prec := x.Prec()
	one := new(big.Float).SetPrec(prec).SetInt64(1)
	u := new(big.Float).SetPrec(prec).Sub(one, x)

	sum := new(big.Float).SetPrec(prec)
	term := new(big.Float).SetPrec(prec).Set(u) // u^1
	for n := int64(1); n <= taylorTerms; n++ {
		denom := new(big.Float).SetPrec(prec).SetInt64(n)
		contribution := new(big.Float).SetPrec(prec).Quo(term, denom)
		sum.Add(sum, contribution)
		term.Mul(term, u)
	}
	return sum.Neg(sum)
}

// expSeries computes exp(x) via its Taylor series sum x^n/n!.
func expSeries(x *big.Float) *big.Float {
	prec := x.Prec()
	sum := new(big.Float).SetPrec(prec).SetInt64(1)
	term := new(big.Float).SetPrec(prec).SetInt64(1)
	for n := int64(1); n <= taylorTerms; n++ {
		term.Mul(term, x)
		denom := new(big.Float).SetPrec(prec).SetInt64(n)
		term.Quo(term, denom)
		sum.Add(sum, term)
	}
	return sum
}

// certifiedNatural interprets raw bytes as a big-endian unsigned integer,
// the "certified natural" spec.md §4.7 compares against the election
// threshold.
func certifiedNatural(raw []byte) *big.Int {
	return new(big.Int).SetBytes(raw)
}

// hPseudo is the deterministic PRNG used by tpraos to decide whether a
// slot is reserved for the decentralisation parameter's non-pool share: a
// domain-separated hash of (η, slot), reduced to [0,1) by treating its
// 256-bit digest as the numerator over 2^256.
func hPseudo(eta [32]byte, slot uint64) *big.Rat {
	var slotBE [8]byte
	binary.BigEndian.PutUint64(slotBE[:], slot)
	buf := make([]byte, 0, 1+8+32)
	buf = append(buf, 'H')
	buf = append(buf, slotBE[:]...)
	buf = append(buf, eta[:]...)
	digest := xcrypto.Blake2b256(buf)
	num := new(big.Int).SetBytes(digest[:])
	denom := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Rat).SetFrac(num, denom)
}

// ElectionInput bundles the per-check inputs to Check, constant across an
// entire epoch's worth of per-slot evaluations.
type ElectionInput struct {
	Variant           Variant
	Eta               [32]byte
	ActiveSlotsCoeff  *big.Rat // f
	PoolStakeFraction *big.Rat // σ = pool_stake / total_active_stake
	Decentralisation  *big.Rat // d; tpraos only, zero otherwise
	SigningKey        xcrypto.VRFSigningKey
}

// Check evaluates the leader-election test for slot, returning true (and
// the 64-byte VRF output) if the pool is elected, per spec.md §4.7.
func Check(in ElectionInput, slot uint64) (elected bool, output [64]byte, err error) {
	var slotBE [8]byte
	binary.BigEndian.PutUint64(slotBE[:], slot)

	if in.Variant == TPraos && in.Decentralisation != nil && in.Decentralisation.Sign() > 0 {
		if hPseudo(in.Eta, slot).Cmp(in.Decentralisation) < 0 {
			return false, output, nil
		}
	}

	var label string
	if in.Variant == TPraos {
		label = "TEST"
	} else {
		label = "NONCE"
	}
	seed := make([]byte, 0, len(label)+8+32)
	seed = append(seed, label...)
	seed = append(seed, slotBE[:]...)
	seed = append(seed, in.Eta[:]...)

	_, out, err := xcrypto.Prove(in.Variant.vrfVariant(), in.SigningKey, seed)
	if err != nil {
		return false, output, fmt.Errorf("leaderlog: vrf prove: %w", err)
	}

	var certBytes []byte
	if in.Variant == TPraos {
		certBytes = out[:]
	} else {
		h := xcrypto.DomainHash("L", out[:])
		certBytes = h[:]
	}
	certNat := certifiedNatural(certBytes)

	width := uint(len(certBytes) * 8)
	threshold := oneMinusFPowSigma(in.ActiveSlotsCoeff, in.PoolStakeFraction)
	one := new(big.Float).SetPrec(precisionBits).SetInt64(1)
	oneMinusThreshold := new(big.Float).SetPrec(precisionBits).Sub(one, threshold)

	twoToWidth := new(big.Float).SetPrec(precisionBits).SetInt(new(big.Int).Lsh(big.NewInt(1), width))
	rhs := new(big.Float).SetPrec(precisionBits).Mul(twoToWidth, oneMinusThreshold)

	certFloat := new(big.Float).SetPrec(precisionBits).SetInt(certNat)
	elected = certFloat.Cmp(rhs) < 0
	return elected, out, nil
}
