package ledger_test

import (
	"testing"

	"github.com/01Clarian/xposure/internal/ledger"
)

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_PayerPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("XPO")
	key := ledger.NewPayerAccountKey(123456, ledger.SubTypeClaim, assetID)

	path := key.AccountPath()
	if path != "payer:123456:claim:XPO" {
		t.Errorf("got %q, want %q", path, "payer:123456:claim:XPO")
	}
}

func TestAccountKey_SystemPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("XPO")
	key := ledger.NewSystemAccountKey(ledger.SubTypeSystemRoundPool, assetID)

	path := key.AccountPath()
	if path != "system:round_pool:XPO" {
		t.Errorf("got %q, want %q", path, "system:round_pool:XPO")
	}
}

func TestAccountKey_ExternalPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("SOL")
	key := ledger.NewExternalAccountKey(ledger.SubTypeExternalPayers, assetID)

	path := key.AccountPath()
	if path != "external:payers:SOL" {
		t.Errorf("got %q, want %q", path, "external:payers:SOL")
	}
}

func TestParseAccountPath_RoundTrip(t *testing.T) {
	xpoID, _ := ledger.GetAssetID("XPO")
	solID, _ := ledger.GetAssetID("SOL")

	keys := []ledger.AccountKey{
		ledger.NewPayerAccountKey(987654321, ledger.SubTypeClaim, xpoID),
		ledger.NewSystemAccountKey(ledger.SubTypeSystemFeeIntake, solID),
		ledger.NewSystemAccountKey(ledger.SubTypeSystemReserve, xpoID),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalVenue, solID),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalPayouts, xpoID),
	}

	for _, key := range keys {
		parsed, err := ledger.ParseAccountPath(key.AccountPath())
		if err != nil {
			t.Fatalf("ParseAccountPath(%q): %v", key.AccountPath(), err)
		}
		if parsed != key {
			t.Errorf("round trip of %q: got %+v, want %+v", key.AccountPath(), parsed, key)
		}
	}
}

func TestParseAccountPath_Malformed(t *testing.T) {
	bad := []string{
		"",
		"payer:abc:claim:XPO",
		"payer:1:claim",
		"system:unknown_thing:XPO",
		"system:round_pool:DOGE",
		"galaxy:round_pool:XPO",
	}
	for _, path := range bad {
		if _, err := ledger.ParseAccountPath(path); err == nil {
			t.Errorf("ParseAccountPath(%q) should fail", path)
		}
	}
}

func TestGetAssetID_Known(t *testing.T) {
	for _, asset := range []string{"XPO", "SOL"} {
		id, ok := ledger.GetAssetID(asset)
		if !ok || id == 0 {
			t.Errorf("%s should be a known asset with non-zero id", asset)
		}
	}
}

func TestGetAssetID_Unknown(t *testing.T) {
	if _, ok := ledger.GetAssetID("DOGE"); ok {
		t.Error("DOGE should not be a known asset")
	}
}

// ============================================================================
// Test: payment settlement batch
// ============================================================================

func TestGeneratePaymentSettlement_Balances(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, err := gen.GeneratePaymentSettlement(
		42, "ref-1",
		30_000_000, // fee lamports
		300_000,    // trans fee
		2_000_000,  // tokens received
		1_000_000,  // payer share
		650_000,    // pool share
		350_000,    // reserve share
		1_700_000_000_000_000,
	)
	if err != nil {
		t.Fatalf("GeneratePaymentSettlement: %v", err)
	}

	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.PayerClaim(42); got != 1_000_000 {
		t.Errorf("payer claim: got %d, want 1_000_000", got)
	}
	if got := bt.RoundPool(); got != 650_000 {
		t.Errorf("round pool: got %d, want 650_000", got)
	}
	if got := bt.Reserve(); got != 350_000 {
		t.Errorf("reserve: got %d, want 350_000", got)
	}
	if got := bt.TransFeesCollected(); got != 300_000 {
		t.Errorf("trans fees: got %d, want 300_000", got)
	}

	validator := ledger.NewInvariantValidator(bt)
	if err := validator.ValidateTreasuryEmpty(); err != nil {
		t.Errorf("treasury should drain to zero after split: %v", err)
	}
	if err := validator.ValidateGlobalBalance(); err != nil {
		t.Errorf("ledger should be zero-sum: %v", err)
	}

	// Fee intake is fully consumed by the trans-fee leg and the purchase.
	solID, _ := ledger.GetAssetID("SOL")
	intake := bt.GetBalance(ledger.NewSystemAccountKey(ledger.SubTypeSystemFeeIntake, solID))
	if intake != 0 {
		t.Errorf("fee intake should be drained, got %d", intake)
	}
}

func TestGeneratePaymentSettlement_RejectsBadSplit(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	_, err := gen.GeneratePaymentSettlement(
		42, "ref-1",
		30_000_000, 0,
		2_000_000,
		1_000_000, 650_000, 349_999, // off by one
		0,
	)
	if err == nil {
		t.Fatal("non-conserving split should be rejected")
	}
}

func TestGeneratePaymentSettlement_RejectsBadTransFee(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	_, err := gen.GeneratePaymentSettlement(
		42, "ref-1",
		30_000_000, 31_000_000, // fee exceeds payment
		2_000_000, 1_000_000, 650_000, 350_000,
		0,
	)
	if err == nil {
		t.Fatal("trans fee above payment should be rejected")
	}
}

func TestGeneratePaymentSettlement_NoTransFeeLeg(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, err := gen.GeneratePaymentSettlement(
		42, "ref-1",
		30_000_000, 0,
		2_000_000, 1_000_000, 650_000, 350_000,
		0,
	)
	if err != nil {
		t.Fatalf("GeneratePaymentSettlement: %v", err)
	}

	for _, j := range batch.Journals {
		if j.JournalType == ledger.JournalTypeTransFee {
			t.Error("zero trans fee should not produce a trans-fee journal")
		}
	}
}

// ============================================================================
// Test: payouts, bonus, sweep
// ============================================================================

func seedPool(t *testing.T, bt *ledger.BalanceTracker, gen *ledger.JournalGenerator, tokens int64) {
	t.Helper()

	// Retention zero: everything lands in pool and reserve.
	poolShare := tokens * 65 / 100
	batch, err := gen.GeneratePaymentSettlement(
		1, "seed", 1_000_000_000, 0, tokens, 0, poolShare, tokens-poolShare, 0,
	)
	if err != nil {
		t.Fatalf("seed settlement: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("seed apply: %v", err)
	}
}

func TestGenerateRoundPayout_MovesPoolToClaim(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	seedPool(t, bt, gen, 10_000_000)

	pool := bt.RoundPool()
	batch, err := gen.GenerateRoundPayout(7, "round:1", 1_500_000, ledger.JournalTypeWinnerPayout, 0)
	if err != nil {
		t.Fatalf("GenerateRoundPayout: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.PayerClaim(7); got != 1_500_000 {
		t.Errorf("claim: got %d, want 1_500_000", got)
	}
	if got := bt.RoundPool(); got != pool-1_500_000 {
		t.Errorf("pool: got %d, want %d", got, pool-1_500_000)
	}
}

func TestGenerateRoundPayout_RejectsOverdraw(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	seedPool(t, bt, gen, 1_000_000)

	_, err := gen.GenerateRoundPayout(7, "round:1", bt.RoundPool()+1, ledger.JournalTypeWinnerPayout, 0)
	if err == nil {
		t.Fatal("payout above pool should be rejected")
	}
}

func TestGenerateRoundPayout_RejectsWrongType(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	seedPool(t, bt, gen, 1_000_000)

	_, err := gen.GenerateRoundPayout(7, "round:1", 100, ledger.JournalTypeBonusPayout, 0)
	if err == nil {
		t.Fatal("bonus type through round payout should be rejected")
	}
}

func TestGenerateBonusPayout_RejectsOverdraw(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	seedPool(t, bt, gen, 1_000_000)

	_, err := gen.GenerateBonusPayout(7, "round:1", bt.Reserve()+1, 0)
	if err == nil {
		t.Fatal("bonus above reserve should be rejected")
	}
}

func TestGeneratePoolSweep_EmptiesPoolIntoReserve(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)
	seedPool(t, bt, gen, 10_000_000)

	pool := bt.RoundPool()
	reserve := bt.Reserve()

	batch, err := gen.GeneratePoolSweep("round:1", pool, 0)
	if err != nil {
		t.Fatalf("GeneratePoolSweep: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.RoundPool(); got != 0 {
		t.Errorf("pool after sweep: got %d, want 0", got)
	}
	if got := bt.Reserve(); got != reserve+pool {
		t.Errorf("reserve after sweep: got %d, want %d", got, reserve+pool)
	}
}

func TestGeneratePayerDelivery_DrainsClaim(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, err := gen.GeneratePaymentSettlement(
		42, "ref-1", 30_000_000, 0, 2_000_000, 1_000_000, 650_000, 350_000, 0,
	)
	if err != nil {
		t.Fatalf("settlement: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	delivery, err := gen.GeneratePayerDelivery(42, "ref-1:delivery", 1_000_000, 0)
	if err != nil {
		t.Fatalf("GeneratePayerDelivery: %v", err)
	}
	if err := bt.ApplyBatch(delivery); err != nil {
		t.Fatalf("apply delivery: %v", err)
	}

	if got := bt.PayerClaim(42); got != 0 {
		t.Errorf("claim after delivery: got %d, want 0", got)
	}
}

// ============================================================================
// Test: batch validation
// ============================================================================

func TestBatchValidate_RejectsEmpty(t *testing.T) {
	batch := &ledger.Batch{}
	if err := batch.Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
}

func TestBatchValidate_RejectsSelfTransfer(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, err := gen.GeneratePayerDelivery(42, "ref", 100, 0)
	if err != nil {
		t.Fatalf("GeneratePayerDelivery: %v", err)
	}
	batch.Journals[0].CreditAccount = batch.Journals[0].DebitAccount

	if err := batch.Validate(); err == nil {
		t.Error("self-transfer should fail validation")
	}
}
