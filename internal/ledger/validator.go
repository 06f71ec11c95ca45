package ledger

import (
	"fmt"
)

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies the batch is balanced and well-formed
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateTreasury verifies pool and reserve are non-negative after a batch
func (v *InvariantValidator) ValidateTreasury() error {
	if err := v.tracker.ValidateReserveNonNegative(); err != nil {
		return err
	}
	return v.tracker.ValidatePoolNonNegative()
}

// ValidateTreasuryEmpty verifies the intermediate treasury account drained to
// zero after a retention split (payer + pool + reserve == tokens received).
func (v *InvariantValidator) ValidateTreasuryEmpty() error {
	xpoID, _ := GetAssetID("XPO")
	key := NewSystemAccountKey(SubTypeSystemTreasury, xpoID)
	balance := v.tracker.GetBalance(key)

	if balance != 0 {
		return fmt.Errorf("treasury split account has non-zero balance: %d", balance)
	}

	return nil
}

// ValidateGlobalBalance verifies the ledger is zero-sum per asset
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for assetID, total := range totals {
		if total != 0 {
			assetName, _ := GetAssetName(assetID)
			return fmt.Errorf("global balance for %s is non-zero: %d", assetName, total)
		}
	}

	return nil
}
