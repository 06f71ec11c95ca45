package round_test

import (
	"testing"
	"time"

	"github.com/01Clarian/xposure/internal/round"
)

func TestNewRound_StartsCycleOneSubmission(t *testing.T) {
	now := time.Now()
	r := round.NewRound(now, 24*time.Hour)

	if r.Cycle != 1 {
		t.Errorf("cycle: got %d, want 1", r.Cycle)
	}
	if r.Phase != round.PhaseSubmission {
		t.Errorf("phase: got %s, want submission", r.Phase)
	}
	if !r.PhaseDeadline.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("deadline: got %v, want %v", r.PhaseDeadline, now.Add(24*time.Hour))
	}
}

func TestAdvance_FullCycle(t *testing.T) {
	now := time.Now()
	r := round.NewRound(now, time.Hour)

	r.Advance(now, now.Add(30*time.Minute))
	if r.Phase != round.PhaseVoting || r.Cycle != 1 {
		t.Errorf("after first advance: phase %s cycle %d, want voting/1", r.Phase, r.Cycle)
	}

	r.Advance(now, now.Add(time.Hour))
	if r.Phase != round.PhaseCooldown || r.Cycle != 1 {
		t.Errorf("after second advance: phase %s cycle %d, want cooldown/1", r.Phase, r.Cycle)
	}

	later := now.Add(2 * time.Hour)
	r.Advance(later, later.Add(time.Hour))
	if r.Phase != round.PhaseSubmission || r.Cycle != 2 {
		t.Errorf("after third advance: phase %s cycle %d, want submission/2", r.Phase, r.Cycle)
	}
	if !r.CycleStart.Equal(later) {
		t.Errorf("cycle start should reset on new cycle")
	}
}

func TestSkipVoting_FromSubmission(t *testing.T) {
	now := time.Now()
	r := round.NewRound(now, time.Hour)

	if err := r.SkipVoting(now.Add(10 * time.Minute)); err != nil {
		t.Fatalf("SkipVoting: %v", err)
	}
	if r.Phase != round.PhaseCooldown {
		t.Errorf("phase: got %s, want cooldown", r.Phase)
	}
	if r.Cycle != 1 {
		t.Errorf("skip should not advance the cycle, got %d", r.Cycle)
	}
}

func TestSkipVoting_RejectedOutsideSubmission(t *testing.T) {
	now := time.Now()
	r := round.NewRound(now, time.Hour)
	r.Advance(now, now.Add(time.Hour))

	if err := r.SkipVoting(now.Add(time.Hour)); err == nil {
		t.Error("SkipVoting from voting should fail")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	r := round.NewRound(now, time.Hour)

	if r.Expired(now) {
		t.Error("round should not be expired at start")
	}
	if !r.Expired(now.Add(time.Hour)) {
		t.Error("round should be expired exactly at the deadline")
	}
	if !r.Expired(now.Add(2 * time.Hour)) {
		t.Error("round should be expired after the deadline")
	}
}

func TestVotingDuration_AllKnown(t *testing.T) {
	durations := []time.Duration{3 * time.Minute, 4 * time.Minute}
	got := round.VotingDuration(durations, true, 10*time.Minute, 3*time.Minute)
	if got != 17*time.Minute {
		t.Errorf("got %v, want 17m", got)
	}
}

func TestVotingDuration_UnknownFallsBack(t *testing.T) {
	durations := []time.Duration{3 * time.Minute, 0}
	got := round.VotingDuration(durations, false, 10*time.Minute, 3*time.Minute)
	if got != 6*time.Minute {
		t.Errorf("got %v, want 6m (per-track fallback)", got)
	}
}

func TestVotingDuration_NoTracks(t *testing.T) {
	got := round.VotingDuration(nil, true, 10*time.Minute, 3*time.Minute)
	if got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
