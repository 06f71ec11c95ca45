package tier_test

import (
	"testing"

	"github.com/01Clarian/xposure/internal/tier"
)

func TestOf_BasicBand(t *testing.T) {
	got := tier.Of(30_000_000) // 0.03 SOL

	if got.Name != "basic" {
		t.Errorf("name: got %q, want %q", got.Name, "basic")
	}
	if got.RetentionPPM != 500_000 {
		t.Errorf("retention: got %d, want 500_000", got.RetentionPPM)
	}
	if got.MultiplierPPM != 1_000_000 {
		t.Errorf("multiplier: got %d, want 1_000_000", got.MultiplierPPM)
	}
}

func TestOf_BandBoundaries(t *testing.T) {
	cases := []struct {
		lamports int64
		name     string
	}{
		{10_000_000, "basic"},
		{99_999_999, "basic"},
		{100_000_000, "mid"},
		{249_999_999, "mid"},
		{250_000_000, "high"},
		{499_999_999, "high"},
		{500_000_000, "whale"},
	}

	for _, c := range cases {
		got := tier.Of(c.lamports)
		if got.Name != c.name {
			t.Errorf("Of(%d): got %q, want %q", c.lamports, got.Name, c.name)
		}
	}
}

func TestOf_WhaleInterpolation(t *testing.T) {
	// 0.52 SOL sits 20M lamports into the 4.5B-wide whale window.
	got := tier.Of(520_000_000)

	if got.RetentionPPM != 650_444 {
		t.Errorf("retention: got %d, want 650_444", got.RetentionPPM)
	}
	if got.MultiplierPPM != 1_151_555 {
		t.Errorf("multiplier: got %d, want 1_151_555", got.MultiplierPPM)
	}
}

func TestOf_WhaleWindowEnds(t *testing.T) {
	lo := tier.Of(500_000_000)
	if lo.RetentionPPM != 650_000 || lo.MultiplierPPM != 1_150_000 {
		t.Errorf("window bottom: got %d/%d, want 650_000/1_150_000", lo.RetentionPPM, lo.MultiplierPPM)
	}

	hi := tier.Of(5_000_000_000)
	if hi.RetentionPPM != 750_000 || hi.MultiplierPPM != 1_500_000 {
		t.Errorf("window top: got %d/%d, want 750_000/1_500_000", hi.RetentionPPM, hi.MultiplierPPM)
	}

	// Above the window the curve clamps rather than extrapolating.
	above := tier.Of(20_000_000_000)
	if above.RetentionPPM != 750_000 || above.MultiplierPPM != 1_500_000 {
		t.Errorf("above window: got %d/%d, want clamped 750_000/1_500_000", above.RetentionPPM, above.MultiplierPPM)
	}
}

func TestOf_Monotonic(t *testing.T) {
	var prevRetention, prevMultiplier int64
	for lamports := int64(10_000_000); lamports <= 6_000_000_000; lamports += 37_000_000 {
		got := tier.Of(lamports)
		if got.RetentionPPM < prevRetention {
			t.Fatalf("retention decreased at %d lamports: %d < %d", lamports, got.RetentionPPM, prevRetention)
		}
		if got.MultiplierPPM < prevMultiplier {
			t.Fatalf("multiplier decreased at %d lamports: %d < %d", lamports, got.MultiplierPPM, prevMultiplier)
		}
		prevRetention = got.RetentionPPM
		prevMultiplier = got.MultiplierPPM
	}
}

func TestOf_Deterministic(t *testing.T) {
	a := tier.Of(742_000_000)
	b := tier.Of(742_000_000)
	if a != b {
		t.Errorf("same input produced different tiers: %+v vs %+v", a, b)
	}
}
