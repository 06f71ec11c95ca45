package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/event"
	"github.com/01Clarian/xposure/internal/ledger"
	xpmath "github.com/01Clarian/xposure/internal/math"
	"github.com/01Clarian/xposure/internal/round"
	"github.com/01Clarian/xposure/internal/treasury"
)

// handlePhaseDeadline advances the round when its deadline elapses. Stale
// deadlines (an already-advanced cycle or phase) are rejected, which makes a
// timer firing concurrently with restart recovery harmless.
func (e *Engine) handlePhaseDeadline(ctx context.Context, evt *event.PhaseDeadline) error {
	if evt.Cycle != e.rnd.Cycle || round.Phase(evt.FromPhase) != e.rnd.Phase {
		if e.metrics != nil {
			e.metrics.EngineEventsRejected.WithLabelValues(evt.EventType().String(), "stale").Inc()
		}
		return nil
	}

	now := time.Now()
	from := e.rnd.Phase

	switch from {
	case round.PhaseSubmission:
		if len(e.roster.Participants()) == 0 {
			return e.skipToCooldown(ctx, now)
		}
		durations, allKnown := e.roster.TrackDurations()
		votingDur := round.VotingDuration(durations, allKnown, e.cfg.DecisionBuffer, e.cfg.PerTrackFallback)
		e.rnd.Advance(now, now.Add(votingDur))
		e.announcePhase(ctx, from, fmt.Sprintf(
			"🗳 Voting is open! %d tracks compete. You have %s.",
			len(e.roster.Participants()), votingDur.Round(time.Second)))

	case round.PhaseVoting:
		if err := e.settleRound(ctx, now); err != nil {
			return err
		}
		e.rnd.Advance(now, now.Add(e.cfg.CooldownDuration))

	case round.PhaseCooldown:
		e.roster.Clear()
		e.book.Clear()
		e.rnd.Advance(now, now.Add(e.cfg.SubmissionDuration))
		e.announcePhase(ctx, from, fmt.Sprintf("🎵 Round %d begins! Submissions are open.", e.rnd.Cycle))
	}

	if e.metrics != nil {
		e.metrics.PhaseTransitions.WithLabelValues(from.String(), e.rnd.Phase.String()).Inc()
	}

	e.emit(event.EventTypePhaseChanged, evt.IdempotencyKey(), nil, &event.PhaseChangedData{
		Cycle:     e.rnd.Cycle,
		FromPhase: from.String(),
		ToPhase:   e.rnd.Phase.String(),
		Deadline:  e.rnd.PhaseDeadline,
	})

	e.logger.Info().
		Int64("cycle", e.rnd.Cycle).
		Str("from", from.String()).
		Str("to", e.rnd.Phase.String()).
		Time("deadline", e.rnd.PhaseDeadline).
		Msg("phase advanced")
	return nil
}

// skipToCooldown handles a round closing with zero upload entrants: straight
// to a short cooldown, pool carried over unspent.
func (e *Engine) skipToCooldown(ctx context.Context, now time.Time) error {
	from := e.rnd.Phase
	if err := e.rnd.SkipVoting(now.Add(e.cfg.SkipCooldownDuration)); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RoundsSkipped.Inc()
		e.metrics.PhaseTransitions.WithLabelValues(from.String(), e.rnd.Phase.String()).Inc()
	}

	e.emit(event.EventTypePhaseChanged,
		fmt.Sprintf("phase:%d:%d", e.rnd.Cycle, int32(from)), nil,
		&event.PhaseChangedData{
			Cycle:     e.rnd.Cycle,
			FromPhase: from.String(),
			ToPhase:   e.rnd.Phase.String(),
			Deadline:  e.rnd.PhaseDeadline,
			Skipped:   true,
		})

	e.logger.Info().
		Int64("cycle", e.rnd.Cycle).
		Int64("pool_carried", e.treas.RoundPool()).
		Msg("no upload entries; voting skipped, pool carried over")

	e.announcePhase(ctx, from, "No tracks were submitted this round. The pool carries over — next round starts soon!")
	return nil
}

// settleRound distributes the pool at the Voting→Cooldown transition.
// Payouts are independent: one failed delivery never blocks the rest, and
// every credit is clamped so the pool is never overdrawn.
func (e *Engine) settleRound(ctx context.Context, now time.Time) error {
	pool := e.treas.RoundPool()
	ranked := e.roster.Ranked()
	roundRef := fmt.Sprintf("round:%d", e.rnd.Cycle)

	winners := make([]xpmath.WinnerStake, 0, len(ranked))
	for _, p := range ranked {
		winners = append(winners, xpmath.WinnerStake{
			PayerID:       p.PayerID,
			MultiplierPPM: p.MultiplierPPM,
		})
	}

	// Only voters who picked the top-ranked entrant share the voter pool.
	var voters []xpmath.VoterStake
	if len(ranked) > 0 {
		top := ranked[0].PayerID
		for _, v := range e.roster.Voters() {
			if v.VotedFor != nil && *v.VotedFor == top {
				voters = append(voters, xpmath.VoterStake{
					PayerID:        v.PayerID,
					WeightedAmount: v.WeightedTokens,
				})
			}
		}
	}

	settlement := xpmath.ComputeRoundSettlement(
		pool,
		e.cfg.Treasury.WinnerSharePPM,
		e.cfg.Treasury.VoterSharePPM,
		e.cfg.Treasury.WinnerWeightsPPM,
		winners, voters,
	)

	data := &event.RoundSettledData{
		Cycle: e.rnd.Cycle,
		Pool:  pool,
	}

	for i, p := range settlement.WinnerPayouts {
		if err := e.payOut(ctx, roundRef, p, ledger.JournalTypeWinnerPayout); err != nil {
			if e.metrics != nil {
				e.metrics.PayoutFailures.WithLabelValues("winner").Inc()
			}
			e.logger.Error().Err(err).Int64("payer_id", p.PayerID).Msg("winner payout failed")
			continue
		}
		if e.metrics != nil {
			e.metrics.WinnerPayouts.Inc()
		}
		data.WinnerPayouts = append(data.WinnerPayouts, event.PayoutData{
			PayerID: p.PayerID, Amount: p.Amount, Rank: i + 1,
		})
	}

	for _, p := range settlement.VoterPayouts {
		if err := e.payOut(ctx, roundRef, p, ledger.JournalTypeVoterPayout); err != nil {
			if e.metrics != nil {
				e.metrics.PayoutFailures.WithLabelValues("voter").Inc()
			}
			e.logger.Error().Err(err).Int64("payer_id", p.PayerID).Msg("voter payout failed")
			continue
		}
		if e.metrics != nil {
			e.metrics.VoterPayouts.Inc()
		}
		data.VoterPayouts = append(data.VoterPayouts, event.PayoutData{
			PayerID: p.PayerID, Amount: p.Amount,
		})
	}

	// Bonus roll rides on the top payout only, funded by the reserve.
	if len(ranked) > 0 {
		if e.metrics != nil {
			e.metrics.BonusRolls.Inc()
		}
		if e.lottery.Roll() {
			e.payBonus(ctx, roundRef, ranked[0].PayerID, data)
		}
	}

	// Sweep whatever the clamped payouts left behind into the reserve so the
	// pool reset cannot strand units.
	if remaining := e.treas.RoundPool(); remaining > 0 {
		batch, err := e.journalGen.GeneratePoolSweep(roundRef, remaining, now.UnixMicro())
		if err != nil {
			return fmt.Errorf("generate pool sweep: %w", err)
		}
		if err := e.applyBatch(event.EventTypeRoundSettled, roundRef+":sweep", batch, nil); err != nil {
			return fmt.Errorf("apply pool sweep: %w", err)
		}
		data.Residue = remaining
	}

	if e.metrics != nil {
		e.metrics.RoundsSettled.Inc()
	}

	e.emit(event.EventTypeRoundSettled, roundRef, nil, data)
	e.announceResults(ctx, ranked, data)

	e.logger.Info().
		Int64("cycle", e.rnd.Cycle).
		Int64("pool", pool).
		Int("winner_payouts", len(data.WinnerPayouts)).
		Int("voter_payouts", len(data.VoterPayouts)).
		Int64("residue", data.Residue).
		Msg("round settled")
	return nil
}

// payOut credits a reward to the payer's claim account, then attempts the
// on-chain delivery. Delivery failure leaves the claim standing.
func (e *Engine) payOut(ctx context.Context, roundRef string, p xpmath.Payout, journalType ledger.JournalType) error {
	now := time.Now().UnixMicro()

	batch, err := e.journalGen.GenerateRoundPayout(p.PayerID, roundRef, p.Amount, journalType, now)
	if err != nil {
		return err
	}
	if err := e.applyBatch(event.EventTypeRoundSettled,
		fmt.Sprintf("%s:%s:%d", roundRef, journalType, p.PayerID), batch, nil); err != nil {
		return err
	}

	e.deliverPayout(ctx, roundRef, p.PayerID, p.Amount)
	return nil
}

// payBonus pays the lottery top-up from the reserve to the round's top payer.
func (e *Engine) payBonus(ctx context.Context, roundRef string, payerID int64, data *event.RoundSettledData) {
	reserve := e.treas.Reserve()
	amount := treasury.BonusAmount(reserve)
	if amount <= 0 {
		return
	}

	batch, err := e.journalGen.GenerateBonusPayout(payerID, roundRef, amount, time.Now().UnixMicro())
	if err != nil {
		e.logger.Error().Err(err).Int64("payer_id", payerID).Msg("bonus payout failed")
		return
	}
	if err := e.applyBatch(event.EventTypeBonusWon, roundRef+":bonus", batch, &event.BonusWonData{
		Cycle:   e.rnd.Cycle,
		PayerID: payerID,
		Amount:  amount,
		Reserve: e.treas.Reserve() - amount,
	}); err != nil {
		e.logger.Error().Err(err).Int64("payer_id", payerID).Msg("bonus batch apply failed")
		return
	}

	if e.metrics != nil {
		e.metrics.BonusWins.Inc()
	}
	data.BonusPayerID = payerID
	data.BonusAmount = amount

	e.logger.Info().
		Int64("payer_id", payerID).
		Int64("amount", amount).
		Msg("bonus lottery won")

	e.deliverPayout(ctx, roundRef, payerID, amount)
}

// deliverPayout transfers a credited reward on-chain, best-effort. A failed
// transfer leaves the ledger claim in place and notifies the payer.
func (e *Engine) deliverPayout(ctx context.Context, roundRef string, payerID, amount int64) {
	address := e.payerAddress(payerID)
	if address == "" {
		e.logger.Warn().Int64("payer_id", payerID).Msg("no payer address for payout delivery")
		return
	}

	if _, err := e.wallet.TransferTokens(ctx, address, amount); err != nil {
		if e.metrics != nil {
			e.metrics.ReconciliationGaps.Inc()
		}
		e.logger.Error().Err(err).
			Int64("payer_id", payerID).
			Int64("amount", amount).
			Msg("reconciliation_gap: payout delivery failed after claim credit")

		if nerr := e.notifier.SendMessage(ctx, payerID,
			"Your reward is reserved but could not be delivered yet. Support has been notified.", nil); nerr != nil {
			e.logger.Warn().Err(nerr).Int64("payer_id", payerID).Msg("payout-failure notification failed")
		}
		return
	}

	batch, err := e.journalGen.GeneratePayerDelivery(payerID, roundRef, amount, time.Now().UnixMicro())
	if err != nil {
		e.logger.Error().Err(err).
			Int64("payer_id", payerID).
			Msg("payout delivery journal generation failed; claim stands undrained")
		return
	}
	if err := e.applyBatch(event.EventTypeRoundSettled,
		fmt.Sprintf("%s:delivery:%d", roundRef, payerID), batch, nil); err != nil {
		e.logger.Error().Err(err).Int64("payer_id", payerID).Msg("payout delivery batch apply failed")
	}
}

func (e *Engine) payerAddress(payerID int64) string {
	if p, ok := e.roster.Participant(payerID); ok {
		return p.PayerAddress
	}
	if v, ok := e.roster.Voter(payerID); ok {
		return v.PayerAddress
	}
	return ""
}

// handleSweepTick purges pending entries older than the TTL.
func (e *Engine) handleSweepTick(ctx context.Context, evt *event.SweepTick) error {
	purged := e.book.Sweep(evt.FiredAt, e.cfg.EntryTTL, e.rnd.CycleStart)
	for _, ent := range purged {
		if e.metrics != nil {
			e.metrics.EntriesPurged.Inc()
		}
		e.logger.Info().
			Str("reference", ent.Reference).
			Int64("payer_id", ent.PayerID).
			Msg("pending entry purged")

		e.emit(event.EventTypeEntryPurged, "purge:"+ent.Reference, nil, &event.EntryPurgedData{
			Reference: ent.Reference,
			PayerID:   ent.PayerID,
			AgeSec:    int64(evt.FiredAt.Sub(ent.CreatedAt).Seconds()),
		})

		if err := e.notifier.SendMessage(ctx, ent.PayerID,
			"Your pending entry expired without payment and was removed. You can register again any time.", nil); err != nil {
			e.logger.Warn().Err(err).Int64("payer_id", ent.PayerID).Msg("purge notification failed")
		}
	}
	return nil
}

func (e *Engine) announcePhase(ctx context.Context, from round.Phase, text string) {
	if e.cfg.ChannelID == 0 {
		return
	}
	if err := e.notifier.SendMessage(ctx, e.cfg.ChannelID, text, nil); err != nil {
		e.logger.Warn().Err(err).Str("from", from.String()).Msg("phase announcement failed")
	}
}

func (e *Engine) announceResults(ctx context.Context, ranked []*entry.Participant, data *event.RoundSettledData) {
	if e.cfg.ChannelID == 0 || len(ranked) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Round %d results!\n", data.Cycle)
	for _, p := range data.WinnerPayouts {
		name := fmt.Sprintf("payer %d", p.PayerID)
		votes := 0
		if part, ok := e.roster.Participant(p.PayerID); ok {
			votes = part.Votes
			if part.DisplayName != "" {
				name = part.DisplayName
			}
		}
		fmt.Fprintf(&b, "%d. %s — %d votes, %d XPO\n", p.Rank, name, votes, p.Amount)
	}
	if data.BonusAmount > 0 {
		fmt.Fprintf(&b, "🎰 Bonus! %d extra XPO from the reserve!\n", data.BonusAmount)
	}
	if len(data.VoterPayouts) > 0 {
		fmt.Fprintf(&b, "🗳 %d voters rewarded for backing the winner.\n", len(data.VoterPayouts))
	}

	if err := e.notifier.SendMessage(ctx, e.cfg.ChannelID, b.String(), nil); err != nil {
		e.logger.Warn().Err(err).Msg("results announcement failed")
	}
}
