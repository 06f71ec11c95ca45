package entry

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrNotVoter        = errors.New("payer is not a registered voter")
	ErrAlreadyVoted    = errors.New("voter has already cast their vote")
	ErrNoSuchCandidate = errors.New("no such participant")
	ErrSelfVote        = errors.New("participants cannot vote for themselves")
)

// Participant is a settled upload entrant in the current round.
type Participant struct {
	PayerID      int64
	DisplayName  string
	PayerAddress string
	MediaRef     string
	Title       string
	DurationSec int64
	TierName    string
	Badge       string
	// MultiplierPPM scales this participant's winner payout.
	MultiplierPPM int64
	// Votes is the count of distinct voters who picked this participant.
	Votes int
	// order is the zero-based registration index, the tie-break key.
	order int

	voters map[int64]struct{}
}

// Order returns the participant's registration index within the round.
func (p *Participant) Order() int { return p.order }

// Voter is a settled vote-only entrant (or an upload entrant whose media
// never arrived before voting opened).
type Voter struct {
	PayerID      int64
	DisplayName  string
	PayerAddress string
	// WeightedTokens is the voter's retained token amount scaled by their
	// tier multiplier, the pro-rata weight for the voter reward split.
	WeightedTokens int64
	TierName       string
	Badge          string
	// VotedFor is the participant this voter picked, nil until they vote.
	VotedFor *int64
	VotedAt  time.Time
}

// Roster holds the settled entrants of the current round. It is owned by the
// engine goroutine and carries no lock of its own.
type Roster struct {
	participants []*Participant
	byPayer      map[int64]*Participant
	voters       map[int64]*Voter
	voterOrder   []int64
}

func NewRoster() *Roster {
	return &Roster{
		byPayer: make(map[int64]*Participant),
		voters:  make(map[int64]*Voter),
	}
}

// AddParticipant registers an upload entrant. Registration order is the
// arrival order of settled payments and is the ranking tie-break.
func (r *Roster) AddParticipant(p Participant) {
	p.order = len(r.participants)
	p.voters = make(map[int64]struct{})
	stored := &p
	r.participants = append(r.participants, stored)
	r.byPayer[p.PayerID] = stored
}

// AddVoter registers a vote-only entrant.
func (r *Roster) AddVoter(v Voter) {
	if _, ok := r.voters[v.PayerID]; !ok {
		r.voterOrder = append(r.voterOrder, v.PayerID)
	}
	r.voters[v.PayerID] = &v
}

// CastVote records voterID's pick. Votes are write-once and deduplicated per
// voter: a repeat call returns ErrAlreadyVoted and changes nothing.
func (r *Roster) CastVote(voterID, participantID int64, now time.Time) error {
	v, ok := r.voters[voterID]
	if !ok {
		return ErrNotVoter
	}
	if v.VotedFor != nil {
		return ErrAlreadyVoted
	}
	p, ok := r.byPayer[participantID]
	if !ok {
		return ErrNoSuchCandidate
	}
	if voterID == participantID {
		return ErrSelfVote
	}
	if _, dup := p.voters[voterID]; dup {
		return ErrAlreadyVoted
	}

	p.voters[voterID] = struct{}{}
	p.Votes++
	target := participantID
	v.VotedFor = &target
	v.VotedAt = now
	return nil
}

// Participant returns the entrant for a payer id.
func (r *Roster) Participant(payerID int64) (*Participant, bool) {
	p, ok := r.byPayer[payerID]
	return p, ok
}

// Voter returns the voter record for a payer id.
func (r *Roster) Voter(payerID int64) (*Voter, bool) {
	v, ok := r.voters[payerID]
	return v, ok
}

// Participants returns entrants in registration order.
func (r *Roster) Participants() []*Participant {
	return r.participants
}

// Voters returns voters in registration order.
func (r *Roster) Voters() []*Voter {
	out := make([]*Voter, 0, len(r.voterOrder))
	for _, id := range r.voterOrder {
		out = append(out, r.voters[id])
	}
	return out
}

// Ranked returns participants ordered by vote count descending. Ties keep
// registration order, so the earliest entrant wins an even split.
func (r *Roster) Ranked() []*Participant {
	ranked := make([]*Participant, len(r.participants))
	copy(ranked, r.participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})
	return ranked
}

// TrackDurations returns every participant's track length and whether all
// lengths are known.
func (r *Roster) TrackDurations() (durations []time.Duration, allKnown bool) {
	allKnown = true
	for _, p := range r.participants {
		if p.DurationSec <= 0 {
			allKnown = false
		}
		durations = append(durations, time.Duration(p.DurationSec)*time.Second)
	}
	return durations, allKnown
}

// Clear resets the roster for the next round.
func (r *Roster) Clear() {
	r.participants = nil
	r.byPayer = make(map[int64]*Participant)
	r.voters = make(map[int64]*Voter)
	r.voterOrder = nil
}

// RosterSnapshot is the persistable form of a roster.
type RosterSnapshot struct {
	Participants []ParticipantSnapshot `json:"participants"`
	Voters       []VoterSnapshot       `json:"voters"`
}

type ParticipantSnapshot struct {
	PayerID       int64   `json:"payer_id"`
	DisplayName   string  `json:"display_name"`
	PayerAddress  string  `json:"payer_address"`
	MediaRef      string  `json:"media_ref"`
	Title         string  `json:"title"`
	DurationSec   int64   `json:"duration_sec"`
	TierName      string  `json:"tier_name"`
	Badge         string  `json:"badge"`
	MultiplierPPM int64   `json:"multiplier_ppm"`
	VoterIDs      []int64 `json:"voter_ids"`
}

type VoterSnapshot struct {
	PayerID        int64     `json:"payer_id"`
	DisplayName    string    `json:"display_name"`
	PayerAddress   string    `json:"payer_address"`
	WeightedTokens int64     `json:"weighted_tokens"`
	TierName       string    `json:"tier_name"`
	Badge          string    `json:"badge"`
	VotedFor       *int64    `json:"voted_for,omitempty"`
	VotedAt        time.Time `json:"voted_at,omitempty"`
}

// Snapshot captures the roster in registration order.
func (r *Roster) Snapshot() RosterSnapshot {
	snap := RosterSnapshot{}
	for _, p := range r.participants {
		voterIDs := make([]int64, 0, len(p.voters))
		for id := range p.voters {
			voterIDs = append(voterIDs, id)
		}
		sort.Slice(voterIDs, func(i, j int) bool { return voterIDs[i] < voterIDs[j] })
		snap.Participants = append(snap.Participants, ParticipantSnapshot{
			PayerID:       p.PayerID,
			DisplayName:   p.DisplayName,
			PayerAddress:  p.PayerAddress,
			MediaRef:      p.MediaRef,
			Title:         p.Title,
			DurationSec:   p.DurationSec,
			TierName:      p.TierName,
			Badge:         p.Badge,
			MultiplierPPM: p.MultiplierPPM,
			VoterIDs:      voterIDs,
		})
	}
	for _, v := range r.Voters() {
		snap.Voters = append(snap.Voters, VoterSnapshot{
			PayerID:        v.PayerID,
			DisplayName:    v.DisplayName,
			PayerAddress:   v.PayerAddress,
			WeightedTokens: v.WeightedTokens,
			TierName:       v.TierName,
			Badge:          v.Badge,
			VotedFor:       v.VotedFor,
			VotedAt:        v.VotedAt,
		})
	}
	return snap
}

// Restore rebuilds the roster from a snapshot, preserving order and votes.
func (r *Roster) Restore(snap RosterSnapshot) {
	r.Clear()
	for _, ps := range snap.Participants {
		r.AddParticipant(Participant{
			PayerID:       ps.PayerID,
			DisplayName:   ps.DisplayName,
			PayerAddress:  ps.PayerAddress,
			MediaRef:      ps.MediaRef,
			Title:         ps.Title,
			DurationSec:   ps.DurationSec,
			TierName:      ps.TierName,
			Badge:         ps.Badge,
			MultiplierPPM: ps.MultiplierPPM,
		})
		p := r.byPayer[ps.PayerID]
		for _, id := range ps.VoterIDs {
			p.voters[id] = struct{}{}
		}
		p.Votes = len(ps.VoterIDs)
	}
	for _, vs := range snap.Voters {
		r.AddVoter(Voter{
			PayerID:        vs.PayerID,
			DisplayName:    vs.DisplayName,
			PayerAddress:   vs.PayerAddress,
			WeightedTokens: vs.WeightedTokens,
			TierName:       vs.TierName,
			Badge:          vs.Badge,
			VotedFor:       vs.VotedFor,
			VotedAt:        vs.VotedAt,
		})
	}
}
