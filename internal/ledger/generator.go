package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches from settlement actions
type JournalGenerator struct {
	sequence       int64
	balanceTracker *BalanceTracker
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence:       startSequence,
		balanceTracker: tracker,
	}
}

// SetSequence overrides the journal sequence (snapshot restore only)
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func (jg *JournalGenerator) newJournal(
	batchID uuid.UUID,
	eventRef string,
	debit, credit AccountKey,
	assetID AssetID,
	amount int64,
	journalType JournalType,
	timestamp int64,
) Journal {
	return Journal{
		JournalID:     uuid.New(),
		BatchID:       batchID,
		EventRef:      eventRef,
		Sequence:      jg.sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       assetID,
		Amount:        amount,
		JournalType:   journalType,
		Timestamp:     timestamp,
	}
}

// GeneratePaymentSettlement creates the journal batch for one settled entry fee:
// fee intake, optional trans-fee leg, purchase spend/receive, and the
// retention split into payer share, round pool, and perpetual reserve.
//
// payerShare + poolShare + reserveShare must equal tokensReceived exactly —
// the split is validated here, not recomputed.
func (jg *JournalGenerator) GeneratePaymentSettlement(
	payerID int64,
	reference string,
	feeLamports int64,
	transFeeLamports int64,
	tokensReceived int64,
	payerShare int64,
	poolShare int64,
	reserveShare int64,
	timestamp int64,
) (*Batch, error) {
	if payerShare+poolShare+reserveShare != tokensReceived {
		return nil, fmt.Errorf("split does not conserve tokens: %d+%d+%d != %d",
			payerShare, poolShare, reserveShare, tokensReceived)
	}
	if transFeeLamports < 0 || transFeeLamports > feeLamports {
		return nil, fmt.Errorf("trans fee %d out of range for fee %d", transFeeLamports, feeLamports)
	}

	solID, _ := GetAssetID("SOL")
	xpoID, _ := GetAssetID("XPO")

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  reference,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 7),
	}

	// Entry fee arrives: external:payers → system:fee_intake
	batch.Journals = append(batch.Journals, jg.newJournal(
		batchID, reference,
		NewSystemAccountKey(SubTypeSystemFeeIntake, solID),
		NewExternalAccountKey(SubTypeExternalPayers, solID),
		solID, feeLamports, JournalTypeEntryFee, timestamp,
	))

	// Trans-fee leg (skipped when the transfer was not attempted or amount is 0)
	if transFeeLamports > 0 {
		batch.Journals = append(batch.Journals, jg.newJournal(
			batchID, reference,
			NewSystemAccountKey(SubTypeSystemTransFees, solID),
			NewSystemAccountKey(SubTypeSystemFeeIntake, solID),
			solID, transFeeLamports, JournalTypeTransFee, timestamp,
		))
	}

	// Purchase: remaining lamports out to the venue, tokens in to the treasury
	purchaseLamports := feeLamports - transFeeLamports
	if purchaseLamports > 0 {
		batch.Journals = append(batch.Journals, jg.newJournal(
			batchID, reference,
			NewExternalAccountKey(SubTypeExternalVenue, solID),
			NewSystemAccountKey(SubTypeSystemFeeIntake, solID),
			solID, purchaseLamports, JournalTypePurchaseSpend, timestamp,
		))
	}
	batch.Journals = append(batch.Journals, jg.newJournal(
		batchID, reference,
		NewSystemAccountKey(SubTypeSystemTreasury, xpoID),
		NewExternalAccountKey(SubTypeExternalVenue, xpoID),
		xpoID, tokensReceived, JournalTypePurchaseReceive, timestamp,
	))

	// Retention split
	if payerShare > 0 {
		batch.Journals = append(batch.Journals, jg.newJournal(
			batchID, reference,
			NewPayerAccountKey(payerID, SubTypeClaim, xpoID),
			NewSystemAccountKey(SubTypeSystemTreasury, xpoID),
			xpoID, payerShare, JournalTypePayerShare, timestamp,
		))
	}
	if poolShare > 0 {
		batch.Journals = append(batch.Journals, jg.newJournal(
			batchID, reference,
			NewSystemAccountKey(SubTypeSystemRoundPool, xpoID),
			NewSystemAccountKey(SubTypeSystemTreasury, xpoID),
			xpoID, poolShare, JournalTypePoolContribution, timestamp,
		))
	}
	if reserveShare > 0 {
		batch.Journals = append(batch.Journals, jg.newJournal(
			batchID, reference,
			NewSystemAccountKey(SubTypeSystemReserve, xpoID),
			NewSystemAccountKey(SubTypeSystemTreasury, xpoID),
			xpoID, reserveShare, JournalTypeReserveContribution, timestamp,
		))
	}

	jg.sequence++
	return batch, nil
}

// GeneratePayerDelivery records the on-chain transfer of a payer's claim.
// Moves funds: payer:claim → external:payouts
func (jg *JournalGenerator) GeneratePayerDelivery(
	payerID int64,
	reference string,
	tokens int64,
	timestamp int64,
) (*Batch, error) {
	xpoID, _ := GetAssetID("XPO")

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  reference,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{jg.newJournal(
			batchID, reference,
			NewExternalAccountKey(SubTypeExternalPayouts, xpoID),
			NewPayerAccountKey(payerID, SubTypeClaim, xpoID),
			xpoID, tokens, JournalTypePayerDelivery, timestamp,
		)},
	}

	jg.sequence++
	return batch, nil
}

// GenerateRoundPayout creates a winner or voter payout from the round pool.
// Pre-check: the pool must cover the payout (payouts are clamped upstream,
// so a failure here is an invariant violation, not a business rejection).
func (jg *JournalGenerator) GenerateRoundPayout(
	payerID int64,
	roundRef string,
	tokens int64,
	journalType JournalType,
	timestamp int64,
) (*Batch, error) {
	if journalType != JournalTypeWinnerPayout && journalType != JournalTypeVoterPayout {
		return nil, fmt.Errorf("invalid round payout type: %s", journalType)
	}
	if jg.balanceTracker.RoundPool() < tokens {
		return nil, fmt.Errorf("round pool %d cannot cover payout %d", jg.balanceTracker.RoundPool(), tokens)
	}

	xpoID, _ := GetAssetID("XPO")

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  roundRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{jg.newJournal(
			batchID, roundRef,
			NewPayerAccountKey(payerID, SubTypeClaim, xpoID),
			NewSystemAccountKey(SubTypeSystemRoundPool, xpoID),
			xpoID, tokens, journalType, timestamp,
		)},
	}

	jg.sequence++
	return batch, nil
}

// GenerateBonusPayout pays the lottery bonus from the perpetual reserve.
// The amount must already be clamped to the reserve's current value.
func (jg *JournalGenerator) GenerateBonusPayout(
	payerID int64,
	roundRef string,
	tokens int64,
	timestamp int64,
) (*Batch, error) {
	if jg.balanceTracker.Reserve() < tokens {
		return nil, fmt.Errorf("reserve %d cannot cover bonus %d", jg.balanceTracker.Reserve(), tokens)
	}

	xpoID, _ := GetAssetID("XPO")

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  roundRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{jg.newJournal(
			batchID, roundRef,
			NewPayerAccountKey(payerID, SubTypeClaim, xpoID),
			NewSystemAccountKey(SubTypeSystemReserve, xpoID),
			xpoID, tokens, JournalTypeBonusPayout, timestamp,
		)},
	}

	jg.sequence++
	return batch, nil
}

// GeneratePoolSweep moves the unspent pool remainder into the reserve at the
// end of round settlement. Rounding always favors the pool, and the sweep
// keeps it from being stranded when the pool resets.
func (jg *JournalGenerator) GeneratePoolSweep(
	roundRef string,
	tokens int64,
	timestamp int64,
) (*Batch, error) {
	if jg.balanceTracker.RoundPool() < tokens {
		return nil, fmt.Errorf("round pool %d cannot cover sweep %d", jg.balanceTracker.RoundPool(), tokens)
	}

	xpoID, _ := GetAssetID("XPO")

	batchID := uuid.New()
	batch := &Batch{
		BatchID:   batchID,
		EventRef:  roundRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals: []Journal{jg.newJournal(
			batchID, roundRef,
			NewSystemAccountKey(SubTypeSystemReserve, xpoID),
			NewSystemAccountKey(SubTypeSystemRoundPool, xpoID),
			xpoID, tokens, JournalTypePoolSweep, timestamp,
		)},
	}

	jg.sequence++
	return batch, nil
}
