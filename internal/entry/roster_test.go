package entry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
)

func seedRoster() *entry.Roster {
	r := entry.NewRoster()
	r.AddParticipant(entry.Participant{PayerID: 1, DisplayName: "first", MultiplierPPM: 1_000_000})
	r.AddParticipant(entry.Participant{PayerID: 2, DisplayName: "second", MultiplierPPM: 1_050_000})
	r.AddParticipant(entry.Participant{PayerID: 3, DisplayName: "third", MultiplierPPM: 1_000_000})
	r.AddVoter(entry.Voter{PayerID: 10, WeightedTokens: 1_000_000})
	r.AddVoter(entry.Voter{PayerID: 11, WeightedTokens: 2_000_000})
	return r
}

func TestCastVote_WriteOnce(t *testing.T) {
	r := seedRoster()
	now := time.Now()

	if err := r.CastVote(10, 1, now); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := r.CastVote(10, 2, now); !errors.Is(err, entry.ErrAlreadyVoted) {
		t.Errorf("second vote: got %v, want ErrAlreadyVoted", err)
	}

	p, _ := r.Participant(1)
	if p.Votes != 1 {
		t.Errorf("votes: got %d, want 1", p.Votes)
	}
}

func TestCastVote_Rejections(t *testing.T) {
	r := seedRoster()
	now := time.Now()

	if err := r.CastVote(99, 1, now); !errors.Is(err, entry.ErrNotVoter) {
		t.Errorf("unknown voter: got %v, want ErrNotVoter", err)
	}
	if err := r.CastVote(10, 99, now); !errors.Is(err, entry.ErrNoSuchCandidate) {
		t.Errorf("unknown candidate: got %v, want ErrNoSuchCandidate", err)
	}

	// A participant who is also a voter cannot pick themselves.
	r.AddVoter(entry.Voter{PayerID: 2, WeightedTokens: 500_000})
	if err := r.CastVote(2, 2, now); !errors.Is(err, entry.ErrSelfVote) {
		t.Errorf("self vote: got %v, want ErrSelfVote", err)
	}
}

func TestRanked_TieKeepsRegistrationOrder(t *testing.T) {
	r := seedRoster()
	now := time.Now()

	// 5 voters: [2] gets 2 votes, [1] and [3] get 1 each, tie broken by order.
	r.AddVoter(entry.Voter{PayerID: 12, WeightedTokens: 1})
	r.AddVoter(entry.Voter{PayerID: 13, WeightedTokens: 1})
	r.AddVoter(entry.Voter{PayerID: 14, WeightedTokens: 1})

	mustVote := func(voterID, participantID int64) {
		t.Helper()
		if err := r.CastVote(voterID, participantID, now); err != nil {
			t.Fatalf("CastVote(%d, %d): %v", voterID, participantID, err)
		}
	}
	mustVote(10, 2)
	mustVote(11, 2)
	mustVote(12, 1)
	mustVote(13, 3)

	ranked := r.Ranked()
	want := []int64{2, 1, 3}
	for i, p := range ranked {
		if p.PayerID != want[i] {
			t.Errorf("rank %d: got payer %d, want %d", i+1, p.PayerID, want[i])
		}
	}
}

func TestTrackDurations(t *testing.T) {
	r := entry.NewRoster()
	r.AddParticipant(entry.Participant{PayerID: 1, DurationSec: 180})
	r.AddParticipant(entry.Participant{PayerID: 2, DurationSec: 0})

	durations, allKnown := r.TrackDurations()
	if allKnown {
		t.Error("a zero duration should mark lengths as not all known")
	}
	if len(durations) != 2 || durations[0] != 180*time.Second {
		t.Errorf("durations: got %v", durations)
	}
}

func TestRosterSnapshotRestore(t *testing.T) {
	r := seedRoster()
	now := time.Now()

	if err := r.CastVote(10, 2, now); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	snap := r.Snapshot()

	restored := entry.NewRoster()
	restored.Restore(snap)

	p, ok := restored.Participant(2)
	if !ok || p.Votes != 1 {
		t.Fatalf("restored participant 2 should carry its vote, got %+v", p)
	}

	v, ok := restored.Voter(10)
	if !ok || v.VotedFor == nil || *v.VotedFor != 2 {
		t.Fatalf("restored voter 10 should remember their pick, got %+v", v)
	}

	// A restored voter still cannot vote twice.
	if err := restored.CastVote(10, 1, now); !errors.Is(err, entry.ErrAlreadyVoted) {
		t.Errorf("got %v, want ErrAlreadyVoted", err)
	}

	// Registration order survives, so ranking ties stay stable.
	participants := restored.Participants()
	for i, want := range []int64{1, 2, 3} {
		if participants[i].PayerID != want {
			t.Errorf("order %d: got %d, want %d", i, participants[i].PayerID, want)
		}
	}
}
