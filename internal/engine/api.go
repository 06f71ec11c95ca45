package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01Clarian/xposure/internal/chain"
	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/event"
	"github.com/01Clarian/xposure/internal/round"
)

var (
	ErrAmountOutOfBounds = errors.New("payment amount out of bounds")
	ErrBadAddress        = errors.New("invalid payer address")
	ErrNotSubmission     = errors.New("submissions are closed")
	ErrNotVoting         = errors.New("voting is closed")
)

// NotifyOutcome is the synchronous reply to a payment notification.
type NotifyOutcome int32

const (
	NotifyOutcomeAccepted NotifyOutcome = iota
	NotifyOutcomeAlreadyProcessed
)

// RecordNotification handles one payment-notifier callback. It validates
// bounds and address, confirms the entry in the book (idempotently), and
// queues settlement. The reply is immediate; settlement outcome reaches the
// payer by notification. Calling this any number of times with the same
// reference settles the payment exactly once.
func (e *Engine) RecordNotification(ctx context.Context, reference string, payerID, lamports int64, payerAddress string) (NotifyOutcome, error) {
	if lamports < e.cfg.MinEntryLamports || (e.cfg.MaxEntryLamports > 0 && lamports > e.cfg.MaxEntryLamports) {
		return 0, fmt.Errorf("%w: %d lamports", ErrAmountOutOfBounds, lamports)
	}
	if !chain.ValidAddress(payerAddress) {
		return 0, ErrBadAddress
	}

	// References the book knows are resolved under its own lock, so a
	// duplicate arriving while a settlement's venue call is in flight never
	// waits behind the engine goroutine. Only a reference the book has
	// forgotten (settled before a restart, or evicted) needs the dedup tiers:
	// the lookup uses the settled event type because that is the envelope the
	// event log durably stores for the reference, and it runs on the engine
	// goroutine because the LRU is not safe to touch here.
	if !e.book.Known(reference) {
		var dup bool
		if err := e.do(ctx, func() {
			dup = e.idempotency.IsDuplicate(event.EventTypePaymentSettled.String(), reference)
		}); err != nil {
			return 0, err
		}
		if dup {
			return NotifyOutcomeAlreadyProcessed, nil
		}
	}

	result, _ := e.book.RecordNotification(reference, payerID, lamports, payerAddress, time.Now())
	if result == entry.NotifyAlreadyProcessed {
		return NotifyOutcomeAlreadyProcessed, nil
	}

	evt := &event.PaymentReceived{
		Reference:    reference,
		PayerID:      payerID,
		Lamports:     lamports,
		PayerAddress: payerAddress,
		Timestamp:    time.Now(),
	}
	select {
	case e.eventChan <- evt:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return NotifyOutcomeAccepted, nil
}

// RegisterChoice opens (or updates) the payer's pending entry for this round
// and returns the payment reference.
func (e *Engine) RegisterChoice(ctx context.Context, payerID int64, displayName string, choice entry.Choice) (string, error) {
	var phase round.Phase
	if err := e.do(ctx, func() { phase = e.rnd.Phase }); err != nil {
		return "", err
	}
	if phase != round.PhaseSubmission {
		return "", ErrNotSubmission
	}
	return e.book.RegisterChoice(payerID, displayName, choice, time.Now()), nil
}

// AttachMedia records the payer's uploaded track.
func (e *Engine) AttachMedia(ctx context.Context, payerID int64, mediaRef, title string, durationSec int64) error {
	if !e.book.AttachMedia(payerID, mediaRef, title, durationSec) {
		return fmt.Errorf("no pending entry for payer %d", payerID)
	}
	return nil
}

// CastVote records a voter's pick during the Voting phase.
func (e *Engine) CastVote(ctx context.Context, voterID, participantID int64) error {
	var err error
	doErr := e.do(ctx, func() {
		if e.rnd.Phase != round.PhaseVoting {
			err = ErrNotVoting
			return
		}
		if err = e.roster.CastVote(voterID, participantID, time.Now()); err != nil {
			return
		}
		if e.metrics != nil {
			e.metrics.VotesCast.Inc()
		}
		e.emit(event.EventTypeVoteCast,
			fmt.Sprintf("vote:%d:%d", e.rnd.Cycle, voterID), nil,
			&event.VoteCastData{
				Cycle:         e.rnd.Cycle,
				VoterID:       voterID,
				ParticipantID: participantID,
			})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Status is the public view of the current round.
type Status struct {
	Cycle            int64     `json:"cycle"`
	Phase            string    `json:"phase"`
	PhaseDeadline    time.Time `json:"phase_deadline"`
	RoundPool        int64     `json:"round_pool"`
	Reserve          int64     `json:"reserve"`
	ParticipantCount int       `json:"participant_count"`
	VoterCount       int       `json:"voter_count"`
	PendingCount     int       `json:"pending_count"`
	Sequence         int64     `json:"sequence"`
}

// GetStatus reports round and treasury state.
func (e *Engine) GetStatus(ctx context.Context) (Status, error) {
	var s Status
	err := e.do(ctx, func() {
		s = Status{
			Cycle:            e.rnd.Cycle,
			Phase:            e.rnd.Phase.String(),
			PhaseDeadline:    e.rnd.PhaseDeadline,
			RoundPool:        e.treas.RoundPool(),
			Reserve:          e.treas.Reserve(),
			ParticipantCount: len(e.roster.Participants()),
			VoterCount:       len(e.roster.Voters()),
			PendingCount:     e.book.Len(),
			Sequence:         e.sequence,
		}
	})
	return s, err
}
