package treasury_test

import (
	"testing"

	"github.com/01Clarian/xposure/internal/treasury"
)

// ============================================================================
// Test: purchase split
// ============================================================================

func TestSplitPurchase_Conserves(t *testing.T) {
	cfg := treasury.DefaultConfig()

	amounts := []int64{0, 1, 7, 1_000_000, 2_000_001, 999_999_999_999}
	retentions := []int64{0, 500_000, 650_444, 750_000, 1_000_000}

	for _, tokens := range amounts {
		for _, retention := range retentions {
			split, err := cfg.SplitPurchase(tokens, retention)
			if err != nil {
				t.Fatalf("SplitPurchase(%d, %d): %v", tokens, retention, err)
			}
			if split.PayerShare+split.PoolShare+split.ReserveShare != tokens {
				t.Errorf("SplitPurchase(%d, %d) does not conserve: %+v", tokens, retention, split)
			}
			if split.PayerShare < 0 || split.PoolShare < 0 || split.ReserveShare < 0 {
				t.Errorf("SplitPurchase(%d, %d) produced a negative share: %+v", tokens, retention, split)
			}
		}
	}
}

func TestSplitPurchase_FlooringFavorsReserve(t *testing.T) {
	cfg := treasury.DefaultConfig()

	// 2_000_000 tokens at 50% retention: payer 1_000_000, remainder 1_000_000
	// splits 650_000 pool / 350_000 reserve.
	split, err := cfg.SplitPurchase(2_000_000, 500_000)
	if err != nil {
		t.Fatalf("SplitPurchase: %v", err)
	}
	if split.PayerShare != 1_000_000 {
		t.Errorf("payer share: got %d, want 1_000_000", split.PayerShare)
	}
	if split.PoolShare != 650_000 {
		t.Errorf("pool share: got %d, want 650_000", split.PoolShare)
	}
	if split.ReserveShare != 350_000 {
		t.Errorf("reserve share: got %d, want 350_000", split.ReserveShare)
	}

	// An odd remainder floors the pool and hands the spare unit to the reserve.
	split, err = cfg.SplitPurchase(3, 0)
	if err != nil {
		t.Fatalf("SplitPurchase: %v", err)
	}
	if split.PoolShare != 1 || split.ReserveShare != 2 {
		t.Errorf("odd remainder: got pool %d reserve %d, want 1/2", split.PoolShare, split.ReserveShare)
	}
}

func TestSplitPurchase_RejectsBadInputs(t *testing.T) {
	cfg := treasury.DefaultConfig()

	if _, err := cfg.SplitPurchase(-1, 500_000); err == nil {
		t.Error("negative tokens should be rejected")
	}
	if _, err := cfg.SplitPurchase(100, -1); err == nil {
		t.Error("negative retention should be rejected")
	}
	if _, err := cfg.SplitPurchase(100, 1_000_001); err == nil {
		t.Error("retention above unity should be rejected")
	}
}

// ============================================================================
// Test: bonus step function
// ============================================================================

func TestBonusPercentagePPM_Steps(t *testing.T) {
	cases := []struct {
		reserve int64
		want    int64
	}{
		{0, 100_000},                     // empty: 10%
		{9_999_999_999, 100_000},         // just under 10k XPO: 10%
		{10_000_000_000, 50_000},         // 10k XPO: 5%
		{99_999_999_999, 50_000},         // just under 100k XPO: 5%
		{100_000_000_000, 20_000},        // 100k XPO: 2%
		{1_000_000_000_000, 10_000},      // 1M XPO: 1%
		{50_000_000_000_000, 10_000},     // far above: still 1%
	}

	for _, c := range cases {
		if got := treasury.BonusPercentagePPM(c.reserve); got != c.want {
			t.Errorf("BonusPercentagePPM(%d): got %d, want %d", c.reserve, got, c.want)
		}
	}
}

func TestBonusAmount_ClampedToReserve(t *testing.T) {
	if got := treasury.BonusAmount(0); got != 0 {
		t.Errorf("empty reserve: got %d, want 0", got)
	}
	if got := treasury.BonusAmount(-5); got != 0 {
		t.Errorf("negative reserve: got %d, want 0", got)
	}

	// 10% of a tiny reserve floors to 0.
	if got := treasury.BonusAmount(9); got != 0 {
		t.Errorf("tiny reserve: got %d, want 0", got)
	}

	got := treasury.BonusAmount(10_000_000_000)
	if got != 500_000_000 { // 5% of 10k XPO
		t.Errorf("got %d, want 500_000_000", got)
	}
	if got > 10_000_000_000 {
		t.Errorf("bonus %d exceeds reserve", got)
	}
}

// ============================================================================
// Test: lottery
// ============================================================================

func TestLottery_WinsOnlyOnOne(t *testing.T) {
	var next int64
	l := treasury.NewLotteryWithSource(500, func(n int64) int64 {
		if n != 500 {
			t.Fatalf("draw bound: got %d, want 500", n)
		}
		return next
	})

	next = 0 // draw becomes 1
	if !l.Roll() {
		t.Error("draw of 1 should win")
	}

	next = 1 // draw becomes 2
	if l.Roll() {
		t.Error("draw of 2 should lose")
	}

	next = 499 // draw becomes 500
	if l.Roll() {
		t.Error("draw of 500 should lose")
	}
}

// ============================================================================
// Test: config validation
// ============================================================================

func TestConfigValidate(t *testing.T) {
	if err := treasury.DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := treasury.DefaultConfig()
	bad.WinnerSharePPM = 900_000
	bad.VoterSharePPM = 200_000
	if err := bad.Validate(); err == nil {
		t.Error("winner+voter above unity should fail")
	}

	bad = treasury.DefaultConfig()
	bad.BonusDenominator = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero bonus denominator should fail")
	}

	bad = treasury.DefaultConfig()
	bad.WinnerWeightsPPM = []int64{600_000, 600_000}
	if err := bad.Validate(); err == nil {
		t.Error("weights above unity should fail")
	}
}
