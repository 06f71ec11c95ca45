package engine

import (
	"context"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/ledger"
	"github.com/01Clarian/xposure/internal/round"
)

// SnapshotState is the full engine state captured for persistence. A restart
// restores from the latest verified snapshot and replays the event log tail.
type SnapshotState struct {
	Sequence int64 `json:"sequence"`

	Cycle         int64     `json:"cycle"`
	Phase         int32     `json:"phase"`
	CycleStart    time.Time `json:"cycle_start"`
	PhaseDeadline time.Time `json:"phase_deadline"`

	// Balances keyed by account path ("payer:123:claim:XPO").
	Balances map[string]int64 `json:"balances"`

	Roster         entry.RosterSnapshot `json:"roster"`
	PendingEntries []entry.PendingEntry `json:"pending_entries"`
}

// CaptureSnapshot serializes engine state on the engine goroutine.
func (e *Engine) CaptureSnapshot(ctx context.Context) (*SnapshotState, error) {
	var snap *SnapshotState
	err := e.do(ctx, func() {
		balances := make(map[string]int64)
		for key, balance := range e.balances.Snapshot() {
			balances[key.AccountPath()] = balance
		}
		snap = &SnapshotState{
			Sequence:       e.sequence,
			Cycle:          e.rnd.Cycle,
			Phase:          int32(e.rnd.Phase),
			CycleStart:     e.rnd.CycleStart,
			PhaseDeadline:  e.rnd.PhaseDeadline,
			Balances:       balances,
			Roster:         e.roster.Snapshot(),
			PendingEntries: e.book.Snapshot(),
		}
	})
	return snap, err
}

// Restore loads a snapshot. Must be called before Run starts; it touches
// state without going through the command channel.
func (e *Engine) Restore(snap *SnapshotState) error {
	e.sequence = snap.Sequence
	e.journalGen.SetSequence(snap.Sequence)

	for path, balance := range snap.Balances {
		key, err := ledger.ParseAccountPath(path)
		if err != nil {
			return err
		}
		e.balances.SetBalance(key, balance)
	}

	e.rnd = &round.Round{
		Cycle:         snap.Cycle,
		Phase:         round.Phase(snap.Phase),
		CycleStart:    snap.CycleStart,
		PhaseDeadline: snap.PhaseDeadline,
	}
	e.roster.Restore(snap.Roster)
	e.book.Restore(snap.PendingEntries)

	e.logger.Info().
		Int64("sequence", snap.Sequence).
		Int64("cycle", snap.Cycle).
		Str("phase", e.rnd.Phase.String()).
		Int("accounts", len(snap.Balances)).
		Msg("state restored from snapshot")
	return nil
}

// WarmIdempotency preloads composite dedup keys after restore.
func (e *Engine) WarmIdempotency(keys []string) {
	e.idempotency.Warm(keys)
}
