package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/chain"
	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/event"
	"github.com/01Clarian/xposure/internal/ledger"
	"github.com/01Clarian/xposure/internal/market"
	"github.com/01Clarian/xposure/internal/notify"
	"github.com/01Clarian/xposure/internal/observability"
	"github.com/01Clarian/xposure/internal/round"
	"github.com/01Clarian/xposure/internal/treasury"
)

// Purchaser converts lamports to reward tokens. Satisfied by
// market.Purchaser; faked in tests.
type Purchaser interface {
	Purchase(ctx context.Context, lamports int64) (market.PurchaseReceipt, error)
}

// Config holds the engine's tunables.
type Config struct {
	// TransFeePPM is the slice of each entry fee forwarded as trans-fee.
	TransFeePPM     int64
	TransFeeAddress string

	MinEntryLamports int64
	MaxEntryLamports int64

	SubmissionDuration time.Duration
	CooldownDuration   time.Duration
	// SkipCooldownDuration is the short cooldown after a zero-upload round.
	SkipCooldownDuration time.Duration
	DecisionBuffer       time.Duration
	PerTrackFallback     time.Duration
	EntryTTL             time.Duration

	// ChannelID is the public announcement chat.
	ChannelID int64

	Treasury treasury.Config
}

// Output is one processed unit handed to the persistence and projection
// workers. Batch is nil for state-only events.
type Output struct {
	Envelope *event.EventEnvelope
	Batch    *ledger.Batch
}

// command is a synchronous operation executed on the engine goroutine.
type command struct {
	fn   func()
	done chan struct{}
}

// Engine owns all mutable round state. Every mutation runs on the single
// Run goroutine: external triggers either enqueue an event or a command, and
// each is processed to completion (including persistence handoff) before the
// next starts. The entry book is the one exception; it carries its own lock
// so duplicate payment notifications are rejected without queueing behind an
// in-flight venue call.
type Engine struct {
	cfg Config

	sequence   int64
	balances   *ledger.BalanceTracker
	journalGen *ledger.JournalGenerator
	validator  *ledger.InvariantValidator
	treas      *treasury.Ledger
	lottery    *treasury.Lottery

	book   *entry.Book
	roster *entry.Roster
	rnd    *round.Round

	purchaser Purchaser
	wallet    chain.Wallet
	notifier  notify.Notifier

	idempotency *IdempotencyChecker
	metrics     *observability.Metrics
	logger      zerolog.Logger

	eventChan   chan event.Event
	commandChan chan command

	persistChan    chan<- Output
	projectionChan chan<- Output
	publishChan    chan<- Output
}

func New(
	cfg Config,
	purchaser Purchaser,
	wallet chain.Wallet,
	notifier notify.Notifier,
	dbChecker DBIdempotencyChecker,
	persistChan, projectionChan, publishChan chan<- Output,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Engine {
	balances := ledger.NewBalanceTracker()

	return &Engine{
		cfg:            cfg,
		balances:       balances,
		journalGen:     ledger.NewJournalGenerator(0, balances),
		validator:      ledger.NewInvariantValidator(balances),
		treas:          treasury.NewLedger(balances),
		lottery:        treasury.NewLottery(cfg.Treasury.BonusDenominator),
		book:           entry.NewBook(),
		roster:         entry.NewRoster(),
		rnd:            round.NewRound(time.Now(), cfg.SubmissionDuration),
		purchaser:      purchaser,
		wallet:         wallet,
		notifier:       notifier,
		idempotency:    NewIdempotencyChecker(100_000, dbChecker),
		metrics:        metrics,
		logger:         logger.With().Str("component", "engine").Logger(),
		eventChan:      make(chan event.Event, 256),
		commandChan:    make(chan command),
		persistChan:    persistChan,
		projectionChan: projectionChan,
		publishChan:    publishChan,
	}
}

// SetLottery swaps the bonus draw source (tests).
func (e *Engine) SetLottery(l *treasury.Lottery) {
	e.lottery = l
}

// EventChan is the inbound queue for the scheduler, sweeper, and ingestion.
func (e *Engine) EventChan() chan<- event.Event {
	return e.eventChan
}

// Run is the engine loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-e.eventChan:
			if err := e.ProcessEvent(ctx, evt); err != nil {
				e.logger.Error().Err(err).
					Str("event_type", evt.EventType().String()).
					Str("key", evt.IdempotencyKey()).
					Msg("event processing failed")
			}
		case cmd := <-e.commandChan:
			cmd.fn()
			close(cmd.done)
		}
	}
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.commandChan <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessEvent is the main pipeline: dedup, dispatch, mark processed.
func (e *Engine) ProcessEvent(ctx context.Context, evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	key := evt.IdempotencyKey()

	// Payments dedup under the settled type: the event log stores a
	// PaymentSettled envelope for each reference, so both the Postgres tier
	// and warmed LRU composites keep matching across restarts.
	dedupType := eventType
	if _, ok := evt.(*event.PaymentReceived); ok {
		dedupType = event.EventTypePaymentSettled.String()
	}

	if e.idempotency.IsDuplicate(dedupType, key) {
		if e.metrics != nil {
			e.metrics.EngineEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	var err error
	switch v := evt.(type) {
	case *event.PaymentReceived:
		err = e.handlePaymentReceived(ctx, v)
	case *event.PhaseDeadline:
		err = e.handlePhaseDeadline(ctx, v)
	case *event.SweepTick:
		err = e.handleSweepTick(ctx, v)
	default:
		e.logger.Warn().Str("event_type", eventType).Msg("unhandled event type")
		return nil
	}
	if err != nil {
		return err
	}

	e.idempotency.MarkProcessed(dedupType, key)

	if e.metrics != nil {
		e.metrics.EngineEventsApplied.WithLabelValues(eventType).Inc()
		e.metrics.EngineEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		e.metrics.EngineSequence.Set(float64(e.sequence))
		e.metrics.DedupLRUSize.Set(float64(e.idempotency.lru.size()))
		e.metrics.RoundPoolBalance.Set(float64(e.treas.RoundPool()))
		e.metrics.ReserveBalance.Set(float64(e.treas.Reserve()))
	}
	return nil
}

// applyBatch validates, applies, and emits one journal batch under the
// current event's envelope. An unbalanced batch is a programming error and
// halts the process before it can corrupt balances.
func (e *Engine) applyBatch(eventType event.EventType, key string, batch *ledger.Batch, payload any) error {
	if err := e.validator.ValidateBatchBalance(batch); err != nil {
		e.logger.Fatal().Err(err).Msg("unbalanced batch")
	}
	if err := e.balances.ApplyBatch(batch); err != nil {
		return err
	}
	if err := e.validator.ValidateTreasury(); err != nil {
		e.logger.Fatal().Err(err).Msg("treasury invariant violated")
	}

	if e.metrics != nil {
		for _, j := range batch.Journals {
			e.metrics.EngineJournals.WithLabelValues(j.JournalType.String()).Inc()
		}
	}

	e.emit(eventType, key, batch, payload)
	return nil
}

// emit wraps a batch (possibly nil) in an envelope and hands it to the
// workers. Persist blocks (durability wins over latency); projection and
// publish drop when their consumers fall behind.
func (e *Engine) emit(eventType event.EventType, key string, batch *ledger.Batch, payload any) {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}

	out := Output{
		Envelope: &event.EventEnvelope{
			Sequence:       e.sequence,
			IdempotencyKey: key,
			EventType:      eventType,
			Timestamp:      time.Now(),
			Payload:        body,
		},
		Batch: batch,
	}
	e.sequence++

	if e.persistChan != nil {
		select {
		case e.persistChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- out
		}
	}

	if e.projectionChan != nil {
		select {
		case e.projectionChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.ProjectionDrops.WithLabelValues("all").Inc()
			}
		}
	}

	if e.publishChan != nil {
		select {
		case e.publishChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}

	// Keep the journal generator on the envelope counter so every durable
	// journal row carries the sequence of the envelope that emitted it. Replay
	// after a restore depends on that alignment to find the log tail.
	e.journalGen.SetSequence(e.sequence)
}

// RoundState is the scheduler's view of the current phase.
func (e *Engine) RoundState() (cycle int64, phase round.Phase, deadline time.Time) {
	type state struct {
		cycle    int64
		phase    round.Phase
		deadline time.Time
	}
	var s state
	_ = e.do(context.Background(), func() {
		s = state{e.rnd.Cycle, e.rnd.Phase, e.rnd.PhaseDeadline}
	})
	return s.cycle, s.phase, s.deadline
}
