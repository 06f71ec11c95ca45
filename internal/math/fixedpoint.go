package math

import (
	"math/big"
	"sync"
)

// DecimalConfig defines fixed-point precision
type DecimalConfig struct {
	DecimalPrecision int   // Number of decimal places
	Scale            int64 // 10^DecimalPrecision
}

var (
	// Standard configs
	LamportConfig = DecimalConfig{DecimalPrecision: 9, Scale: 1_000_000_000} // 1 SOL = 1e9 lamports
	TokenConfig   = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000}     // XPO base units
	PPMConfig     = DecimalConfig{DecimalPrecision: 6, Scale: 1_000_000}     // fractions: 1.0 = 1_000_000
)

// PPMScale is the fraction scale used for retentions, multipliers, and weights.
const PPMScale int64 = 1_000_000

// Int128 is a pooled big.Int for intermediate calculations
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

// MultiplyInt128 performs a * b using int128 to prevent overflow
func MultiplyInt128(a, b int64) *big.Int {
	result := getInt128()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivideInt128 performs numerator / denominator with rounding
func DivideInt128(numerator *big.Int, denominator int64, roundingMode RoundingMode) int64 {
	denom := big.NewInt(denominator)
	quotient := getInt128()
	remainder := getInt128()

	quotient.DivMod(numerator, denom, remainder)

	result := quotient.Int64()

	if roundingMode == RoundHalfEven {
		// Banker's rounding: if remainder == denominator/2, round to even
		half := big.NewInt(denominator / 2)
		cmp := remainder.Cmp(half)

		if cmp > 0 {
			result++
		} else if cmp == 0 && denominator%2 == 0 {
			if result%2 != 0 {
				result++
			}
		}
	}

	putInt128(quotient)
	putInt128(remainder)

	return result
}

type RoundingMode int

const (
	RoundHalfEven RoundingMode = iota // Banker's rounding
	RoundDown
	RoundUp
)

// ScalePPM computes floor(amount * ppm / PPMScale) without overflow.
// Reward splits use floor throughout so rounding never fabricates units.
func ScalePPM(amount, ppm int64) int64 {
	numerator := MultiplyInt128(amount, ppm)
	result := DivideInt128(numerator, PPMScale, RoundDown)
	putInt128(numerator)
	return result
}

// LerpPPM linearly interpolates between loPPM and hiPPM as x moves across
// [xLo, xHi], clamped outside the window.
func LerpPPM(x, xLo, xHi, loPPM, hiPPM int64) int64 {
	if x <= xLo {
		return loPPM
	}
	if x >= xHi {
		return hiPPM
	}

	numerator := MultiplyInt128(hiPPM-loPPM, x-xLo)
	delta := DivideInt128(numerator, xHi-xLo, RoundDown)
	putInt128(numerator)
	return loPPM + delta
}
