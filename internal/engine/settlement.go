package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/event"
	xpmath "github.com/01Clarian/xposure/internal/math"
	"github.com/01Clarian/xposure/internal/tier"
)

// handlePaymentReceived settles one confirmed entry fee end to end:
// trans-fee, purchase, retention split, payer delivery, and registration.
func (e *Engine) handlePaymentReceived(ctx context.Context, evt *event.PaymentReceived) error {
	ent, ok := e.book.Get(evt.Reference)
	if !ok {
		// Confirmed then purged, or restart raced the book restore.
		return fmt.Errorf("no pending entry for reference %s", evt.Reference)
	}

	start := time.Now()
	t := tier.Of(ent.Lamports)

	// Trans-fee is best-effort: a failed transfer is logged and the slice
	// stays in the purchase amount rather than being lost.
	transFee := xpmath.ScalePPM(ent.Lamports, e.cfg.TransFeePPM)
	if transFee > 0 && e.cfg.TransFeeAddress != "" {
		if _, err := e.wallet.TransferLamports(ctx, e.cfg.TransFeeAddress, transFee); err != nil {
			e.logger.Warn().Err(err).
				Str("reference", ent.Reference).
				Int64("lamports", transFee).
				Msg("trans-fee transfer failed")
			transFee = 0
		}
	}

	purchaseLamports := ent.Lamports - transFee
	receipt, err := e.purchaser.Purchase(ctx, purchaseLamports)
	if err != nil {
		return e.abortPayment(ctx, evt, ent, fmt.Sprintf("purchase failed: %v", err))
	}
	if e.metrics != nil {
		e.metrics.PurchaseDuration.Observe(time.Since(start).Seconds())
		e.metrics.PurchaseVenueUsed.WithLabelValues(receipt.VenueName).Inc()
		e.metrics.TokensPurchased.Add(float64(receipt.TokensReceived))
	}

	split, err := e.cfg.Treasury.SplitPurchase(receipt.TokensReceived, t.RetentionPPM)
	if err != nil {
		return fmt.Errorf("split purchase: %w", err)
	}

	batch, err := e.journalGen.GeneratePaymentSettlement(
		ent.PayerID, ent.Reference,
		ent.Lamports, transFee,
		receipt.TokensReceived,
		split.PayerShare, split.PoolShare, split.ReserveShare,
		evt.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("generate settlement batch: %w", err)
	}

	role := "voter"
	if ent.Choice == entry.ChoiceUpload && ent.MediaRef != "" {
		role = "participant"
	}

	data := &event.PaymentSettledData{
		Cycle:          e.rnd.Cycle,
		Reference:      ent.Reference,
		PayerID:        ent.PayerID,
		DisplayName:    ent.DisplayName,
		PayerAddress:   ent.PayerAddress,
		Lamports:       ent.Lamports,
		TransFee:       transFee,
		TokensReceived: receipt.TokensReceived,
		PayerShare:     split.PayerShare,
		PoolShare:      split.PoolShare,
		ReserveShare:   split.ReserveShare,
		TierName:       t.Name,
		Badge:          t.Badge,
		MultiplierPPM:  t.MultiplierPPM,
		MediaRef:       ent.MediaRef,
		Title:          ent.Title,
		DurationSec:    ent.DurationSec,
		Venue:          receipt.VenueName,
		Signature:      receipt.Signature,
		Role:           role,
	}

	if err := e.applyBatch(event.EventTypePaymentSettled, ent.Reference, batch, data); err != nil {
		return fmt.Errorf("apply settlement batch: %w", err)
	}
	if err := e.validator.ValidateTreasuryEmpty(); err != nil {
		e.logger.Fatal().Err(err).Msg("retention split did not conserve tokens")
	}

	data.Delivered = e.deliverPayerShare(ctx, ent, split.PayerShare)

	e.registerEntrant(ent, t, split.PayerShare)
	e.book.Remove(ent.Reference)

	if e.metrics != nil {
		e.metrics.PaymentsSettled.Inc()
	}

	e.logger.Info().
		Str("reference", ent.Reference).
		Int64("payer_id", ent.PayerID).
		Int64("lamports", ent.Lamports).
		Int64("tokens_received", receipt.TokensReceived).
		Str("tier", t.Name).
		Str("role", role).
		Bool("delivered", data.Delivered).
		Msg("payment settled")

	e.notifySettled(ctx, ent, t, split.PayerShare, data.Delivered)
	return nil
}

// abortPayment drops a failed entry without any ledger mutation. The
// reference is consumed; the payer must start over.
func (e *Engine) abortPayment(ctx context.Context, evt *event.PaymentReceived, ent *entry.PendingEntry, reason string) error {
	e.book.Remove(ent.Reference)

	if e.metrics != nil {
		e.metrics.PaymentsAborted.WithLabelValues("purchase_failed").Inc()
	}
	e.logger.Error().
		Str("reference", ent.Reference).
		Int64("payer_id", ent.PayerID).
		Str("reason", reason).
		Msg("payment aborted")

	e.emit(event.EventTypePaymentAborted, evt.IdempotencyKey(), nil, &event.PaymentAbortedData{
		Reference: ent.Reference,
		PayerID:   ent.PayerID,
		Lamports:  ent.Lamports,
		Reason:    reason,
	})

	if err := e.notifier.SendMessage(ctx, ent.PayerID,
		"Your entry could not be processed: the token purchase failed. Please try again.", nil); err != nil {
		e.logger.Warn().Err(err).Int64("payer_id", ent.PayerID).Msg("abort notification failed")
	}
	return nil
}

// deliverPayerShare transfers the payer's retained tokens on-chain. On
// failure the treasury credit already applied stays in place; the gap between
// ledger and chain is logged for reconciliation, not rolled back.
func (e *Engine) deliverPayerShare(ctx context.Context, ent *entry.PendingEntry, payerShare int64) bool {
	if payerShare <= 0 {
		return true
	}

	if _, err := e.wallet.TransferTokens(ctx, ent.PayerAddress, payerShare); err != nil {
		if e.metrics != nil {
			e.metrics.ReconciliationGaps.Inc()
		}
		e.logger.Error().Err(err).
			Str("reference", ent.Reference).
			Int64("payer_id", ent.PayerID).
			Int64("amount", payerShare).
			Msg("reconciliation_gap: payer delivery failed after treasury credit")

		if nerr := e.notifier.SendMessage(ctx, ent.PayerID,
			"Your tokens are reserved in the treasury but could not be delivered yet. Support has been notified.", nil); nerr != nil {
			e.logger.Warn().Err(nerr).Int64("payer_id", ent.PayerID).Msg("delivery-failure notification failed")
		}
		return false
	}

	batch, err := e.journalGen.GeneratePayerDelivery(ent.PayerID, ent.Reference, payerShare, time.Now().UnixMicro())
	if err != nil {
		e.logger.Error().Err(err).
			Str("reference", ent.Reference).
			Int64("payer_id", ent.PayerID).
			Msg("delivery journal generation failed; claim stands undrained")
		return true
	}
	if err := e.applyBatch(event.EventTypePaymentSettled, ent.Reference+":delivery", batch, nil); err != nil {
		e.logger.Error().Err(err).Str("reference", ent.Reference).Msg("delivery batch apply failed")
	}
	return true
}

// registerEntrant adds the settled payer to the roster. An Upload choice with
// no media ever attached falls back to Voter; that fallback is deliberate.
func (e *Engine) registerEntrant(ent *entry.PendingEntry, t tier.Tier, payerShare int64) {
	weighted := xpmath.ScalePPM(payerShare, t.MultiplierPPM)

	if ent.Choice == entry.ChoiceUpload && ent.MediaRef != "" {
		e.roster.AddParticipant(entry.Participant{
			PayerID:       ent.PayerID,
			DisplayName:   ent.DisplayName,
			PayerAddress:  ent.PayerAddress,
			MediaRef:      ent.MediaRef,
			Title:         ent.Title,
			DurationSec:   ent.DurationSec,
			TierName:      t.Name,
			Badge:         t.Badge,
			MultiplierPPM: t.MultiplierPPM,
		})
		return
	}

	if ent.Choice == entry.ChoiceUpload {
		e.logger.Warn().
			Int64("payer_id", ent.PayerID).
			Str("reference", ent.Reference).
			Msg("upload entry settled without media; registering as voter")
	}

	e.roster.AddVoter(entry.Voter{
		PayerID:        ent.PayerID,
		DisplayName:    ent.DisplayName,
		PayerAddress:   ent.PayerAddress,
		WeightedTokens: weighted,
		TierName:       t.Name,
		Badge:          t.Badge,
	})
}

func (e *Engine) notifySettled(ctx context.Context, ent *entry.PendingEntry, t tier.Tier, payerShare int64, delivered bool) {
	text := fmt.Sprintf("%s Entry confirmed! Tier: %s. You keep %d XPO units.", t.Badge, t.Name, payerShare)
	if !delivered {
		text = fmt.Sprintf("%s Entry confirmed! Tier: %s. Your %d XPO units are held safely pending delivery.", t.Badge, t.Name, payerShare)
	}
	if err := e.notifier.SendMessage(ctx, ent.PayerID, text, nil); err != nil {
		e.logger.Warn().Err(err).Int64("payer_id", ent.PayerID).Msg("settlement notification failed")
	}
}
