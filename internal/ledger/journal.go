package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeEntryFee JournalType = iota
	JournalTypeTransFee
	JournalTypePurchaseSpend
	JournalTypePurchaseReceive
	JournalTypePayerShare
	JournalTypePoolContribution
	JournalTypeReserveContribution
	JournalTypePayerDelivery
	JournalTypeWinnerPayout
	JournalTypeVoterPayout
	JournalTypeBonusPayout
	JournalTypePoolSweep
	JournalTypeAdjustment
)

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups entries from one settlement action
	EventRef      string      // Idempotency key of source event (payment reference or round id)
	Sequence      int64       // Global event sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	AssetID       AssetID     // Asset being transferred
	Amount        int64       // Fixed-point amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Epoch microseconds
}

// Batch represents a balanced set of journal entries
type Batch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed.
// Each journal entry is a balanced transfer by construction (a single positive
// amount moves from credit account to debit account), so debits == credits is
// guaranteed per-entry. Multi-leg settlements (fee split + purchase + shares)
// use multiple entries under one batch_id.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		// No self-transfers
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeEntryFee:
		return "entry_fee"
	case JournalTypeTransFee:
		return "trans_fee"
	case JournalTypePurchaseSpend:
		return "purchase_spend"
	case JournalTypePurchaseReceive:
		return "purchase_receive"
	case JournalTypePayerShare:
		return "payer_share"
	case JournalTypePoolContribution:
		return "pool_contribution"
	case JournalTypeReserveContribution:
		return "reserve_contribution"
	case JournalTypePayerDelivery:
		return "payer_delivery"
	case JournalTypeWinnerPayout:
		return "winner_payout"
	case JournalTypeVoterPayout:
		return "voter_payout"
	case JournalTypeBonusPayout:
		return "bonus_payout"
	case JournalTypePoolSweep:
		return "pool_sweep"
	case JournalTypeAdjustment:
		return "adjustment"
	default:
		return "unknown"
	}
}
