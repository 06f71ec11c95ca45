package math_test

import (
	"testing"

	xpmath "github.com/01Clarian/xposure/internal/math"
)

// ============================================================================
// Test: fixed-point helpers
// ============================================================================

func TestScalePPM_Floors(t *testing.T) {
	cases := []struct {
		amount, ppm, want int64
	}{
		{1000, 500_000, 500},
		{7, 500_000, 3}, // 3.5 floors to 3
		{1, 999_999, 0},
		{0, 650_000, 0},
		{1_000_000, 1_000_000, 1_000_000},
	}

	for _, c := range cases {
		if got := xpmath.ScalePPM(c.amount, c.ppm); got != c.want {
			t.Errorf("ScalePPM(%d, %d): got %d, want %d", c.amount, c.ppm, got, c.want)
		}
	}
}

func TestScalePPM_NoOverflow(t *testing.T) {
	// amount * ppm overflows int64; the int128 intermediate must not.
	got := xpmath.ScalePPM(5_000_000_000_000_000, 750_000)
	if got != 3_750_000_000_000_000 {
		t.Errorf("got %d, want 3_750_000_000_000_000", got)
	}
}

func TestLerpPPM_Clamps(t *testing.T) {
	if got := xpmath.LerpPPM(0, 10, 20, 100, 200); got != 100 {
		t.Errorf("below window: got %d, want 100", got)
	}
	if got := xpmath.LerpPPM(30, 10, 20, 100, 200); got != 200 {
		t.Errorf("above window: got %d, want 200", got)
	}
	if got := xpmath.LerpPPM(15, 10, 20, 100, 200); got != 150 {
		t.Errorf("midpoint: got %d, want 150", got)
	}
}

// ============================================================================
// Test: round settlement distribution
// ============================================================================

func defaultWeights() []int64 {
	return []int64{400_000, 250_000, 200_000, 100_000, 50_000}
}

func TestComputeRoundSettlement_Conservation(t *testing.T) {
	pool := int64(100_000_000)
	winners := []xpmath.WinnerStake{
		{PayerID: 1, MultiplierPPM: 1_000_000},
		{PayerID: 2, MultiplierPPM: 1_150_000},
		{PayerID: 3, MultiplierPPM: 1_500_000},
	}
	voters := []xpmath.VoterStake{
		{PayerID: 10, WeightedAmount: 3_000_000},
		{PayerID: 11, WeightedAmount: 1_000_000},
	}

	s := xpmath.ComputeRoundSettlement(pool, 850_000, 150_000, defaultWeights(), winners, voters)

	var paid int64
	for _, p := range s.WinnerPayouts {
		paid += p.Amount
	}
	for _, p := range s.VoterPayouts {
		paid += p.Amount
	}

	if paid+s.Residue != pool {
		t.Errorf("conservation: paid %d + residue %d != pool %d", paid, s.Residue, pool)
	}
	if paid > pool {
		t.Errorf("paid %d exceeds pool %d", paid, pool)
	}
}

func TestComputeRoundSettlement_WinnerAmounts(t *testing.T) {
	pool := int64(100_000_000)
	winners := []xpmath.WinnerStake{
		{PayerID: 1, MultiplierPPM: 1_000_000},
		{PayerID: 2, MultiplierPPM: 1_050_000},
	}

	s := xpmath.ComputeRoundSettlement(pool, 850_000, 150_000, defaultWeights(), winners, nil)

	if len(s.WinnerPayouts) != 2 {
		t.Fatalf("got %d winner payouts, want 2", len(s.WinnerPayouts))
	}
	// winner pool = 85_000_000; 40% weight * 1.0 multiplier
	if s.WinnerPayouts[0].Amount != 34_000_000 {
		t.Errorf("first place: got %d, want 34_000_000", s.WinnerPayouts[0].Amount)
	}
	// 25% weight = 21_250_000, * 1.05 = 22_312_500
	if s.WinnerPayouts[1].Amount != 22_312_500 {
		t.Errorf("second place: got %d, want 22_312_500", s.WinnerPayouts[1].Amount)
	}
}

func TestComputeRoundSettlement_VoterProRata(t *testing.T) {
	pool := int64(100_000_000)
	voters := []xpmath.VoterStake{
		{PayerID: 11, WeightedAmount: 1_000_000},
		{PayerID: 10, WeightedAmount: 3_000_000},
	}

	s := xpmath.ComputeRoundSettlement(pool, 850_000, 150_000, defaultWeights(), nil, voters)

	if len(s.VoterPayouts) != 2 {
		t.Fatalf("got %d voter payouts, want 2", len(s.VoterPayouts))
	}
	// Deterministic order: sorted by payer id regardless of input order.
	if s.VoterPayouts[0].PayerID != 10 || s.VoterPayouts[1].PayerID != 11 {
		t.Errorf("payout order: got %d,%d, want 10,11", s.VoterPayouts[0].PayerID, s.VoterPayouts[1].PayerID)
	}
	// voter pool = 15_000_000 split 3:1
	if s.VoterPayouts[0].Amount != 11_250_000 {
		t.Errorf("heavy voter: got %d, want 11_250_000", s.VoterPayouts[0].Amount)
	}
	if s.VoterPayouts[1].Amount != 3_750_000 {
		t.Errorf("light voter: got %d, want 3_750_000", s.VoterPayouts[1].Amount)
	}
}

func TestComputeRoundSettlement_MoreWinnersThanWeights(t *testing.T) {
	winners := make([]xpmath.WinnerStake, 8)
	for i := range winners {
		winners[i] = xpmath.WinnerStake{PayerID: int64(i + 1), MultiplierPPM: 1_000_000}
	}

	s := xpmath.ComputeRoundSettlement(100_000_000, 850_000, 150_000, defaultWeights(), winners, nil)

	if len(s.WinnerPayouts) != 5 {
		t.Errorf("got %d winner payouts, want 5 (weight schedule length)", len(s.WinnerPayouts))
	}
}

func TestComputeRoundSettlement_EmptyPool(t *testing.T) {
	s := xpmath.ComputeRoundSettlement(0, 850_000, 150_000, defaultWeights(),
		[]xpmath.WinnerStake{{PayerID: 1, MultiplierPPM: 1_000_000}}, nil)

	if len(s.WinnerPayouts) != 0 || len(s.VoterPayouts) != 0 || s.Residue != 0 {
		t.Errorf("empty pool should pay nothing, got %+v", s)
	}
}

func TestComputeRoundSettlement_MultiplierCannotOverdraw(t *testing.T) {
	// A large multiplier on a heavy weight is clamped to the remainder, never
	// driving total payouts past the pool.
	winners := []xpmath.WinnerStake{
		{PayerID: 1, MultiplierPPM: 3_000_000},
		{PayerID: 2, MultiplierPPM: 3_000_000},
	}

	pool := int64(1_000_000)
	s := xpmath.ComputeRoundSettlement(pool, 1_000_000, 0, []int64{900_000, 900_000}, winners, nil)

	var paid int64
	for _, p := range s.WinnerPayouts {
		paid += p.Amount
	}
	if paid > pool {
		t.Errorf("paid %d exceeds pool %d", paid, pool)
	}
	if paid+s.Residue != pool {
		t.Errorf("conservation: paid %d + residue %d != pool %d", paid, s.Residue, pool)
	}
}
