package ledger

import (
	"fmt"
)

// BalanceTracker maintains in-memory account balances
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// SetBalance overwrites a balance (snapshot restore only)
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	bt.balances[key] = balance
}

// === Treasury queries ===

// RoundPool returns the current round pool token balance
func (bt *BalanceTracker) RoundPool() int64 {
	assetID, _ := GetAssetID("XPO")
	return bt.GetBalance(NewSystemAccountKey(SubTypeSystemRoundPool, assetID))
}

// Reserve returns the current perpetual reserve token balance
func (bt *BalanceTracker) Reserve() int64 {
	assetID, _ := GetAssetID("XPO")
	return bt.GetBalance(NewSystemAccountKey(SubTypeSystemReserve, assetID))
}

// TransFeesCollected returns the running trans-fee lamport total
func (bt *BalanceTracker) TransFeesCollected() int64 {
	assetID, _ := GetAssetID("SOL")
	return bt.GetBalance(NewSystemAccountKey(SubTypeSystemTransFees, assetID))
}

// PayerClaim returns a payer's claim balance (tokens owed minus delivered)
func (bt *BalanceTracker) PayerClaim(payerID int64) int64 {
	assetID, _ := GetAssetID("XPO")
	return bt.GetBalance(NewPayerAccountKey(payerID, SubTypeClaim, assetID))
}

// === Invariant Checks ===

// ValidateReserveNonNegative checks the perpetual reserve never goes negative.
// The reserve only decreases by bonus payouts, each clamped to its value.
func (bt *BalanceTracker) ValidateReserveNonNegative() error {
	if r := bt.Reserve(); r < 0 {
		return fmt.Errorf("perpetual reserve is negative: %d", r)
	}
	return nil
}

// ValidatePoolNonNegative checks the round pool never goes negative.
func (bt *BalanceTracker) ValidatePoolNonNegative() error {
	if p := bt.RoundPool(); p < 0 {
		return fmt.Errorf("round pool is negative: %d", p)
	}
	return nil
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// ComputeGlobalBalance sums all account balances per asset (zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[AssetID]int64 {
	totals := make(map[AssetID]int64)

	for key, balance := range bt.balances {
		totals[key.AssetID] += balance
	}

	return totals
}

// Snapshot returns a copy of all balances
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	snapshot := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}
