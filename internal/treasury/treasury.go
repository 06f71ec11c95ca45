package treasury

import (
	"fmt"
	"math/rand"

	"github.com/01Clarian/xposure/internal/ledger"
	xpmath "github.com/01Clarian/xposure/internal/math"
)

// Config holds the treasury split and lottery parameters. All fractions are
// parts-per-million.
type Config struct {
	// PoolSharePPM is the fraction of the retained pool share credited to
	// the round pool; the remainder goes to the perpetual reserve.
	PoolSharePPM int64

	// WinnerSharePPM and VoterSharePPM split the round pool at settlement.
	WinnerSharePPM int64
	VoterSharePPM  int64

	// WinnerWeightsPPM is the fixed payout schedule over the winner share,
	// first place first. Its length bounds the number of winners.
	WinnerWeightsPPM []int64

	// BonusDenominator N gives the 1-in-N lottery odds per settlement.
	BonusDenominator int64
}

// DefaultConfig mirrors the production split: 65% of the pool share to the
// round pool, 85/15 winner/voter split, 40/25/20/10/5 winner weights, and
// 1-in-500 bonus odds.
func DefaultConfig() Config {
	return Config{
		PoolSharePPM:     650_000,
		WinnerSharePPM:   850_000,
		VoterSharePPM:    150_000,
		WinnerWeightsPPM: []int64{400_000, 250_000, 200_000, 100_000, 50_000},
		BonusDenominator: 500,
	}
}

func (c Config) Validate() error {
	if c.PoolSharePPM < 0 || c.PoolSharePPM > xpmath.PPMScale {
		return fmt.Errorf("pool share out of range: %d", c.PoolSharePPM)
	}
	if c.WinnerSharePPM+c.VoterSharePPM > xpmath.PPMScale {
		return fmt.Errorf("winner+voter share exceeds unity: %d + %d",
			c.WinnerSharePPM, c.VoterSharePPM)
	}
	var total int64
	for _, w := range c.WinnerWeightsPPM {
		if w < 0 {
			return fmt.Errorf("negative winner weight: %d", w)
		}
		total += w
	}
	if total > xpmath.PPMScale {
		return fmt.Errorf("winner weights sum exceeds unity: %d", total)
	}
	if c.BonusDenominator < 1 {
		return fmt.Errorf("bonus denominator must be >= 1: %d", c.BonusDenominator)
	}
	return nil
}

// PurchaseSplit is the exact three-way division of a purchase's tokens.
// PayerShare + PoolShare + ReserveShare == TokensReceived always.
type PurchaseSplit struct {
	PayerShare   int64
	PoolShare    int64
	ReserveShare int64
}

// SplitPurchase divides tokensReceived by the payer's tier retention.
// The payer keeps floor(tokens * retention); the remainder is split between
// round pool and reserve with flooring that always favors the reserve, so no
// unit is lost or fabricated.
func (c Config) SplitPurchase(tokensReceived, retentionPPM int64) (PurchaseSplit, error) {
	if tokensReceived < 0 {
		return PurchaseSplit{}, fmt.Errorf("negative token amount: %d", tokensReceived)
	}
	if retentionPPM < 0 || retentionPPM > xpmath.PPMScale {
		return PurchaseSplit{}, fmt.Errorf("retention out of range: %d", retentionPPM)
	}

	payerShare := xpmath.ScalePPM(tokensReceived, retentionPPM)
	remainder := tokensReceived - payerShare
	poolShare := xpmath.ScalePPM(remainder, c.PoolSharePPM)
	reserveShare := remainder - poolShare

	return PurchaseSplit{
		PayerShare:   payerShare,
		PoolShare:    poolShare,
		ReserveShare: reserveShare,
	}, nil
}

// bonusStep maps a reserve floor to the bonus fraction applied above it.
type bonusStep struct {
	reserveAtLeast int64
	ppm            int64
}

// Steps are in XPO base units (1e6 per whole token). The fraction shrinks as
// the reserve grows so the payout stays bounded.
var bonusSteps = []bonusStep{
	{reserveAtLeast: 1_000_000_000_000, ppm: 10_000}, // >= 1M XPO: 1%
	{reserveAtLeast: 100_000_000_000, ppm: 20_000},   // >= 100k XPO: 2%
	{reserveAtLeast: 10_000_000_000, ppm: 50_000},    // >= 10k XPO: 5%
	{reserveAtLeast: 0, ppm: 100_000},                // below: 10%
}

// BonusPercentagePPM returns the step-function bonus fraction for a reserve.
func BonusPercentagePPM(reserve int64) int64 {
	for _, step := range bonusSteps {
		if reserve >= step.reserveAtLeast {
			return step.ppm
		}
	}
	return 0
}

// BonusAmount computes the lottery payout for the current reserve, clamped so
// the reserve can never be drawn below zero.
func BonusAmount(reserve int64) int64 {
	if reserve <= 0 {
		return 0
	}
	amount := xpmath.ScalePPM(reserve, BonusPercentagePPM(reserve))
	if amount > reserve {
		amount = reserve
	}
	return amount
}

// Lottery draws the per-settlement bonus. The integer source is injectable
// for deterministic tests.
type Lottery struct {
	denominator int64
	intN        func(n int64) int64
}

// NewLottery uses the shared math/rand source.
func NewLottery(denominator int64) *Lottery {
	return &Lottery{denominator: denominator, intN: rand.Int63n}
}

// NewLotteryWithSource injects a draw function returning a uniform integer
// in [0, n).
func NewLotteryWithSource(denominator int64, intN func(n int64) int64) *Lottery {
	return &Lottery{denominator: denominator, intN: intN}
}

// Roll draws a uniform integer in [1, N] and reports a win iff it is 1.
// Each roll is independent; there is no carry-over state between rounds.
func (l *Lottery) Roll() bool {
	return l.intN(l.denominator)+1 == 1
}

// Ledger is the treasury view over the double-entry balance tracker. The
// tracker itself is authoritative; these are typed reads for the rest of the
// system.
type Ledger struct {
	balances *ledger.BalanceTracker
}

func NewLedger(balances *ledger.BalanceTracker) *Ledger {
	return &Ledger{balances: balances}
}

// RoundPool returns the distributable reward-token pool for the current round.
func (t *Ledger) RoundPool() int64 {
	return t.balances.RoundPool()
}

// Reserve returns the perpetual reserve balance.
func (t *Ledger) Reserve() int64 {
	return t.balances.Reserve()
}

// TransFeesCollected returns the running total of collected trans-fees.
func (t *Ledger) TransFeesCollected() int64 {
	return t.balances.TransFeesCollected()
}

// PayerClaim returns the payer's claimable reward-token balance.
func (t *Ledger) PayerClaim(payerID int64) int64 {
	return t.balances.PayerClaim(payerID)
}
