package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the settlement service.
type Metrics struct {
	// --- Engine processing ---
	EngineEventsApplied  *prometheus.CounterVec
	EngineEventsRejected *prometheus.CounterVec
	EngineEventDuration  *prometheus.HistogramVec
	EngineJournals       *prometheus.CounterVec
	EngineSequence       prometheus.Gauge

	// --- Payments & purchases ---
	PaymentsSettled     prometheus.Counter
	PaymentsAborted     *prometheus.CounterVec
	PurchaseDuration    prometheus.Histogram
	PurchaseVenueUsed   *prometheus.CounterVec
	PurchaseVenueFailed *prometheus.CounterVec
	TokensPurchased     prometheus.Counter
	ReconciliationGaps  prometheus.Counter

	// --- Rounds ---
	PhaseTransitions  *prometheus.CounterVec
	RoundsSettled     prometheus.Counter
	RoundsSkipped     prometheus.Counter
	WinnerPayouts     prometheus.Counter
	VoterPayouts      prometheus.Counter
	PayoutFailures    *prometheus.CounterVec
	BonusRolls        prometheus.Counter
	BonusWins         prometheus.Counter
	EntriesPurged     prometheus.Counter
	VotesCast         prometheus.Counter

	// --- Treasury ---
	RoundPoolBalance prometheus.Gauge
	ReserveBalance   prometheus.Gauge

	// --- Channel & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency ---
	IdempotencyDuplicates *prometheus.CounterVec
	DedupLRUSize          prometheus.Gauge

	// --- Persistence ---
	PersistEventsWritten   prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Snapshot ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotSizeBytes prometheus.Gauge
	SnapshotLastSeq   prometheus.Gauge

	// --- HTTP API ---
	APIRequests *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000025, 0.00005, 0.0001, 0.00025, 0.0005,
		0.001, 0.002, 0.005, 0.01, 0.025, 0.05,
	}

	ioBuckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		EngineEventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_engine_events_applied_total",
			Help: "Events successfully applied by the engine",
		}, []string{"event_type"}),

		EngineEventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_engine_events_rejected_total",
			Help: "Events rejected (dedup, validation)",
		}, []string{"event_type", "reason"}),

		EngineEventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xpo_engine_event_apply_duration_seconds",
			Help:    "Time to process a single event",
			Buckets: ioBuckets,
		}, []string{"event_type"}),

		EngineJournals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_engine_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_engine_sequence",
			Help: "Current global sequence number",
		}),

		PaymentsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_payments_settled_total",
			Help: "Entry payments fully settled",
		}),

		PaymentsAborted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_payments_aborted_total",
			Help: "Entry payments aborted",
		}, []string{"reason"}),

		PurchaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xpo_purchase_duration_seconds",
			Help:    "Fee conversion end to end",
			Buckets: ioBuckets,
		}),

		PurchaseVenueUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_purchase_venue_used_total",
			Help: "Successful purchases per venue",
		}, []string{"venue"}),

		PurchaseVenueFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_purchase_venue_failed_total",
			Help: "Failed venue attempts",
		}, []string{"venue"}),

		TokensPurchased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_tokens_purchased_total",
			Help: "Reward tokens acquired (base units)",
		}),

		ReconciliationGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_reconciliation_gaps_total",
			Help: "Settlements with treasury credit but failed payer delivery",
		}),

		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_phase_transitions_total",
			Help: "Round phase transitions",
		}, []string{"from", "to"}),

		RoundsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_rounds_settled_total",
			Help: "Rounds settled with payouts",
		}),

		RoundsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_rounds_skipped_total",
			Help: "Rounds skipped for lack of upload entrants",
		}),

		WinnerPayouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_winner_payouts_total",
			Help: "Winner payouts credited",
		}),

		VoterPayouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_voter_payouts_total",
			Help: "Voter payouts credited",
		}),

		PayoutFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_payout_failures_total",
			Help: "Independent payout attempts that failed",
		}, []string{"kind"}),

		BonusRolls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_bonus_rolls_total",
			Help: "Lottery rolls evaluated",
		}),

		BonusWins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_bonus_wins_total",
			Help: "Lottery wins paid from reserve",
		}),

		EntriesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_entries_purged_total",
			Help: "Pending entries purged by timeout sweep",
		}),

		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_votes_cast_total",
			Help: "Votes accepted",
		}),

		RoundPoolBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_round_pool_balance",
			Help: "Round pool balance (token base units)",
		}),

		ReserveBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_reserve_balance",
			Help: "Perpetual reserve balance (token base units)",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xpo_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xpo_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xpo_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_projection_drops_total",
			Help: "Events dropped due to full projection channel",
		}, []string{"projection"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"event_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_persist_events_written_total",
			Help: "Events written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xpo_persist_batch_size",
			Help:    "Events per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xpo_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xpo_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xpo_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotSizeBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_snapshot_size_bytes",
			Help: "Last snapshot size",
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xpo_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xpo_api_requests_total",
			Help: "HTTP API requests",
		}, []string{"endpoint", "status"}),

		APIDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xpo_api_duration_seconds",
			Help:    "HTTP API latency",
			Buckets: latencyBuckets,
		}, []string{"endpoint"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
