package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/event"
	"github.com/01Clarian/xposure/internal/observability"
)

// Output is the projection worker's view of a processed event. The
// orchestrator bridges from engine.Output so this package stays
// engine-agnostic.
type Output struct {
	Sequence  int64
	EventType event.EventType
	Payload   []byte
}

// Worker maintains read-side tables (standings, payout history) from event
// payloads. Its channel is non-blocking with drop: projections are
// eventually consistent and can always be rebuilt from the event log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan Output
	metrics   *observability.Metrics
	logger    zerolog.Logger
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan Output, metrics *observability.Metrics, logger zerolog.Logger) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
		logger:    logger.With().Str("component", "projection").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			if err := w.process(ctx, output); err != nil {
				w.logger.Warn().Err(err).
					Int64("sequence", output.Sequence).
					Str("event_type", output.EventType.String()).
					Msg("projection update failed")
			}
			w.lastSeq = output.Sequence
		}
	}
}

func (w *Worker) process(ctx context.Context, output Output) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch output.EventType {
	case event.EventTypePaymentSettled:
		err = w.applyPaymentSettled(ctx, tx, output)
	case event.EventTypeVoteCast:
		err = w.applyVoteCast(ctx, tx, output)
	case event.EventTypeRoundSettled:
		err = w.applyRoundSettled(ctx, tx, output)
	default:
		// Other events carry nothing the read side needs.
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermarks (projection, sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (projection) DO UPDATE SET sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (w *Worker) applyPaymentSettled(ctx context.Context, tx *sql.Tx, output Output) error {
	var data event.PaymentSettledData
	if err := json.Unmarshal(output.Payload, &data); err != nil {
		return fmt.Errorf("decode payment payload: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.standings (cycle, payer_id, display_name, role, tier_name, votes, sequence)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (cycle, payer_id)
		DO UPDATE SET display_name = $3, role = $4, tier_name = $5, sequence = $6, updated_at = NOW()
	`, data.Cycle, data.PayerID, data.DisplayName, data.Role, data.TierName, output.Sequence)
	return err
}

func (w *Worker) applyVoteCast(ctx context.Context, tx *sql.Tx, output Output) error {
	var data event.VoteCastData
	if err := json.Unmarshal(output.Payload, &data); err != nil {
		return fmt.Errorf("decode vote payload: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE projections.standings
		SET votes = votes + 1, sequence = $3, updated_at = NOW()
		WHERE cycle = $1 AND payer_id = $2
	`, data.Cycle, data.ParticipantID, output.Sequence)
	return err
}

func (w *Worker) applyRoundSettled(ctx context.Context, tx *sql.Tx, output Output) error {
	var data event.RoundSettledData
	if err := json.Unmarshal(output.Payload, &data); err != nil {
		return fmt.Errorf("decode round payload: %w", err)
	}
	// Per-payout batches arrive with no payload; only the summary event
	// carries the full distribution.
	if data.Cycle == 0 {
		return nil
	}

	for _, p := range data.WinnerPayouts {
		if err := w.insertPayout(ctx, tx, data.Cycle, p, "winner", output.Sequence); err != nil {
			return err
		}
	}
	for _, p := range data.VoterPayouts {
		if err := w.insertPayout(ctx, tx, data.Cycle, p, "voter", output.Sequence); err != nil {
			return err
		}
	}
	if data.BonusAmount > 0 {
		bonus := event.PayoutData{PayerID: data.BonusPayerID, Amount: data.BonusAmount}
		if err := w.insertPayout(ctx, tx, data.Cycle, bonus, "bonus", output.Sequence); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) insertPayout(ctx context.Context, tx *sql.Tx, cycle int64, p event.PayoutData, kind string, sequence int64) error {
	var rank any
	if p.Rank > 0 {
		rank = p.Rank
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.payout_history (cycle, payer_id, kind, amount, rank, sequence)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, cycle, p.PayerID, kind, p.Amount, rank, sequence)
	return err
}
