package math

import (
	"sort"
)

// WinnerStake is a ranked participant entering round settlement.
// Rank order is the caller's sort: votes descending, earlier registration first.
type WinnerStake struct {
	PayerID       int64
	MultiplierPPM int64 // tier multiplier, PPMScale = 1.0
}

// VoterStake is a voter eligible for the voter share (voted for the top entrant).
type VoterStake struct {
	PayerID        int64
	WeightedAmount int64 // lamports weighted by tier multiplier at entry
}

// Payout is a single computed reward.
type Payout struct {
	PayerID int64
	Amount  int64 // XPO base units
}

// RoundSettlement is the computed distribution of a round pool.
type RoundSettlement struct {
	WinnerPayouts []Payout
	VoterPayouts  []Payout
	Residue       int64 // unspent pool, swept to the perpetual reserve
}

// ComputeRoundSettlement distributes pool across ranked winners and voters.
//
// The weight schedule applies to the winner share of the pool; voters split
// the voter share pro-rata by weighted entry amount. Every payout is floored
// and clamped to the unspent remainder, so the sum of all payouts never
// exceeds pool. Payouts below one token unit are skipped.
func ComputeRoundSettlement(
	pool int64,
	winnerSharePPM int64,
	voterSharePPM int64,
	weightsPPM []int64,
	winners []WinnerStake,
	voters []VoterStake,
) *RoundSettlement {
	settlement := &RoundSettlement{}

	if pool <= 0 {
		return settlement
	}

	winnerPool := ScalePPM(pool, winnerSharePPM)
	voterPool := ScalePPM(pool, voterSharePPM)
	remaining := pool

	for i, w := range winners {
		if i >= len(weightsPPM) {
			break
		}

		base := ScalePPM(winnerPool, weightsPPM[i])
		payout := ScalePPM(base, w.MultiplierPPM)
		if payout > remaining {
			payout = remaining
		}
		if payout < 1 {
			continue
		}

		settlement.WinnerPayouts = append(settlement.WinnerPayouts, Payout{
			PayerID: w.PayerID,
			Amount:  payout,
		})
		remaining -= payout
	}

	// Voters sorted by payer id for deterministic ordering
	sorted := make([]VoterStake, len(voters))
	copy(sorted, voters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PayerID < sorted[j].PayerID
	})

	var totalWeight int64
	for _, v := range sorted {
		totalWeight += v.WeightedAmount
	}

	if totalWeight > 0 {
		for _, v := range sorted {
			numerator := MultiplyInt128(voterPool, v.WeightedAmount)
			payout := DivideInt128(numerator, totalWeight, RoundDown)
			putInt128(numerator)

			if payout > remaining {
				payout = remaining
			}
			if payout < 1 {
				continue
			}

			settlement.VoterPayouts = append(settlement.VoterPayouts, Payout{
				PayerID: v.PayerID,
				Amount:  payout,
			})
			remaining -= payout
		}
	}

	settlement.Residue = remaining
	return settlement
}
