package round

import (
	"fmt"
	"time"
)

// Phase is the round lifecycle phase
type Phase int32

const (
	PhaseSubmission Phase = iota
	PhaseVoting
	PhaseCooldown
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmission:
		return "submission"
	case PhaseVoting:
		return "voting"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Next returns the successor phase. Transitions are strictly monotonic:
// Submission → Voting → Cooldown → Submission (next cycle).
func (p Phase) Next() Phase {
	switch p {
	case PhaseSubmission:
		return PhaseVoting
	case PhaseVoting:
		return PhaseCooldown
	default:
		return PhaseSubmission
	}
}

// PhaseFromString parses a phase name as written by String. Used when
// rebuilding round state from durable phase-change payloads.
func PhaseFromString(s string) (Phase, error) {
	switch s {
	case "submission":
		return PhaseSubmission, nil
	case "voting":
		return PhaseVoting, nil
	case "cooldown":
		return PhaseCooldown, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// Round is the singleton lifecycle state for the current cycle.
// The round pool balance itself is authoritative in the treasury ledger;
// the round only carries phase timing.
type Round struct {
	Cycle         int64
	Phase         Phase
	CycleStart    time.Time
	PhaseDeadline time.Time
}

// NewRound starts cycle 1 in Submission.
func NewRound(now time.Time, submissionDuration time.Duration) *Round {
	return &Round{
		Cycle:         1,
		Phase:         PhaseSubmission,
		CycleStart:    now,
		PhaseDeadline: now.Add(submissionDuration),
	}
}

// Advance moves the round to the next phase with the given deadline.
// A Cooldown→Submission advance begins a new cycle.
func (r *Round) Advance(now time.Time, nextDeadline time.Time) {
	next := r.Phase.Next()
	if next == PhaseSubmission {
		r.Cycle++
		r.CycleStart = now
	}
	r.Phase = next
	r.PhaseDeadline = nextDeadline
}

// SkipVoting moves Submission straight to Cooldown. Used when a round closes
// with zero upload entrants: the pool is carried over unspent.
func (r *Round) SkipVoting(nextDeadline time.Time) error {
	if r.Phase != PhaseSubmission {
		return fmt.Errorf("cannot skip voting from phase %s", r.Phase)
	}
	r.Phase = PhaseCooldown
	r.PhaseDeadline = nextDeadline
	return nil
}

// Expired reports whether the phase deadline has already elapsed.
// On restart recovery an expired deadline fires the transition immediately.
func (r *Round) Expired(now time.Time) bool {
	return !now.Before(r.PhaseDeadline)
}

// VotingDuration bounds the voting phase to content length: the sum of all
// known track durations plus a fixed decision buffer. When any duration is
// unknown, fall back to a fixed per-track allowance.
func VotingDuration(
	trackDurations []time.Duration,
	allKnown bool,
	decisionBuffer time.Duration,
	perTrackFallback time.Duration,
) time.Duration {
	if !allKnown || len(trackDurations) == 0 {
		return perTrackFallback * time.Duration(len(trackDurations))
	}

	var total time.Duration
	for _, d := range trackDurations {
		total += d
	}
	return total + decisionBuffer
}
