package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/event"
	"github.com/01Clarian/xposure/internal/ledger"
	xpmath "github.com/01Clarian/xposure/internal/math"
	"github.com/01Clarian/xposure/internal/round"
)

// ReplayJournal is one durable journal row reduced to what balance replay
// needs. Paths are account paths as written by the persistence bridge.
type ReplayJournal struct {
	DebitPath  string
	CreditPath string
	Amount     int64
}

// ReplayEvent is one event-log row with its journal rows. Journal rows carry
// the sequence of the envelope that emitted them, which is how the
// orchestrator groups them back onto their event.
type ReplayEvent struct {
	Sequence  int64
	EventType string
	Key       string
	Payload   []byte
	Timestamp time.Time
	Journals  []ReplayJournal
}

// ReplayEvents applies the event-log tail on top of a restored snapshot.
// Must run before Run starts; like Restore it touches state directly.
//
// Journals rebuild balances; payloads rebuild the roster, book, and round
// state. Venue calls and on-chain transfers already happened when the row was
// written, so replay never re-executes them. Every replayed key is marked
// processed, which keeps a redelivered notification from settling twice.
func (e *Engine) ReplayEvents(events []ReplayEvent) error {
	replayed := 0
	for _, ev := range events {
		// Rows at or past the snapshot sequence are not in the snapshot.
		if ev.Sequence < e.sequence {
			continue
		}

		for _, j := range ev.Journals {
			debit, err := ledger.ParseAccountPath(j.DebitPath)
			if err != nil {
				return fmt.Errorf("replay seq %d: debit %q: %w", ev.Sequence, j.DebitPath, err)
			}
			credit, err := ledger.ParseAccountPath(j.CreditPath)
			if err != nil {
				return fmt.Errorf("replay seq %d: credit %q: %w", ev.Sequence, j.CreditPath, err)
			}
			e.balances.ApplyJournal(ledger.Journal{
				DebitAccount:  debit,
				CreditAccount: credit,
				Amount:        j.Amount,
			})
		}

		if err := e.replayStateChange(ev); err != nil {
			return fmt.Errorf("replay seq %d (%s): %w", ev.Sequence, ev.EventType, err)
		}

		e.idempotency.MarkProcessed(ev.EventType, ev.Key)
		e.sequence = ev.Sequence + 1
		replayed++
	}

	e.journalGen.SetSequence(e.sequence)

	if err := e.validator.ValidateTreasury(); err != nil {
		return fmt.Errorf("replay left treasury invariants broken: %w", err)
	}

	if replayed > 0 {
		e.logger.Info().
			Int("events", replayed).
			Int64("resume_sequence", e.sequence).
			Msg("event log tail replayed")
	}
	return nil
}

func (e *Engine) replayStateChange(ev ReplayEvent) error {
	switch ev.EventType {
	case event.EventTypePaymentSettled.String():
		// Delivery sub-events carry journals only.
		if len(ev.Payload) == 0 {
			return nil
		}
		var data event.PaymentSettledData
		if err := json.Unmarshal(ev.Payload, &data); err != nil {
			return err
		}
		e.book.Remove(data.Reference)
		if data.Role == "participant" {
			e.roster.AddParticipant(entry.Participant{
				PayerID:       data.PayerID,
				DisplayName:   data.DisplayName,
				PayerAddress:  data.PayerAddress,
				MediaRef:      data.MediaRef,
				Title:         data.Title,
				DurationSec:   data.DurationSec,
				TierName:      data.TierName,
				Badge:         data.Badge,
				MultiplierPPM: data.MultiplierPPM,
			})
			return nil
		}
		e.roster.AddVoter(entry.Voter{
			PayerID:        data.PayerID,
			DisplayName:    data.DisplayName,
			PayerAddress:   data.PayerAddress,
			WeightedTokens: xpmath.ScalePPM(data.PayerShare, data.MultiplierPPM),
			TierName:       data.TierName,
			Badge:          data.Badge,
		})
		return nil

	case event.EventTypePaymentAborted.String():
		var data event.PaymentAbortedData
		if err := json.Unmarshal(ev.Payload, &data); err != nil {
			return err
		}
		e.book.Remove(data.Reference)
		return nil

	case event.EventTypeEntryPurged.String():
		var data event.EntryPurgedData
		if err := json.Unmarshal(ev.Payload, &data); err != nil {
			return err
		}
		e.book.Remove(data.Reference)
		return nil

	case event.EventTypeVoteCast.String():
		var data event.VoteCastData
		if err := json.Unmarshal(ev.Payload, &data); err != nil {
			return err
		}
		// Votes for an already-cleared cycle have nothing to land on.
		if data.Cycle != e.rnd.Cycle {
			return nil
		}
		// The roster enforces write-once; a vote replayed over warm state is
		// rejected there, not an error.
		_ = e.roster.CastVote(data.VoterID, data.ParticipantID, ev.Timestamp)
		return nil

	case event.EventTypePhaseChanged.String():
		var data event.PhaseChangedData
		if err := json.Unmarshal(ev.Payload, &data); err != nil {
			return err
		}
		to, err := round.PhaseFromString(data.ToPhase)
		if err != nil {
			return err
		}
		if data.FromPhase == round.PhaseCooldown.String() && to == round.PhaseSubmission {
			e.roster.Clear()
			e.book.Clear()
			e.rnd.CycleStart = ev.Timestamp
		}
		e.rnd.Cycle = data.Cycle
		e.rnd.Phase = to
		e.rnd.PhaseDeadline = data.Deadline
		return nil

	default:
		// RoundSettled and BonusWon are fully described by their journals.
		return nil
	}
}
