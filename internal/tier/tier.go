// Package tier maps a paid entry amount to its reward parameters.
//
// All fractions are fixed-point ppm (1_000_000 = 1.0) and amounts are
// lamports, so identical input always yields identical output.
package tier

import (
	fpmath "github.com/01Clarian/xposure/internal/math"
)

// Tier is the reward band for a paid amount.
type Tier struct {
	Name          string
	Badge         string
	RetentionPPM  int64 // fraction of purchased tokens kept by the payer
	MultiplierPPM int64 // payout multiplier applied at round settlement
	MinLamports   int64
}

const (
	basicMinLamports = 10_000_000    // 0.01 SOL
	midMinLamports   = 100_000_000   // 0.10 SOL
	highMinLamports  = 250_000_000   // 0.25 SOL
	whaleMinLamports = 500_000_000   // 0.50 SOL
	whaleMaxLamports = 5_000_000_000 // 5.00 SOL: interpolation window top

	whaleRetentionLoPPM  = 650_000
	whaleRetentionHiPPM  = 750_000
	whaleMultiplierLoPPM = 1_150_000
	whaleMultiplierHiPPM = 1_500_000
)

// Of returns the tier for a paid amount. Pure: no side effects, no clock.
// The Whale band interpolates retention and multiplier linearly over the
// amount window and clamps outside it; the lower bands are fixed steps.
func Of(lamports int64) Tier {
	switch {
	case lamports >= whaleMinLamports:
		return Tier{
			Name:  "whale",
			Badge: "🐋",
			RetentionPPM: fpmath.LerpPPM(lamports,
				whaleMinLamports, whaleMaxLamports,
				whaleRetentionLoPPM, whaleRetentionHiPPM),
			MultiplierPPM: fpmath.LerpPPM(lamports,
				whaleMinLamports, whaleMaxLamports,
				whaleMultiplierLoPPM, whaleMultiplierHiPPM),
			MinLamports: whaleMinLamports,
		}
	case lamports >= highMinLamports:
		return Tier{
			Name:          "high",
			Badge:         "💎",
			RetentionPPM:  600_000,
			MultiplierPPM: 1_100_000,
			MinLamports:   highMinLamports,
		}
	case lamports >= midMinLamports:
		return Tier{
			Name:          "mid",
			Badge:         "🔥",
			RetentionPPM:  550_000,
			MultiplierPPM: 1_050_000,
			MinLamports:   midMinLamports,
		}
	default:
		return Tier{
			Name:          "basic",
			Badge:         "⭐",
			RetentionPPM:  500_000,
			MultiplierPPM: 1_000_000,
			MinLamports:   basicMinLamports,
		}
	}
}

// MinEntryLamports is the smallest accepted entry fee.
func MinEntryLamports() int64 {
	return basicMinLamports
}
