package event

import "time"

// Envelope payloads, JSON-encoded into EventEnvelope.Payload. These are the
// durable record of what each settlement decided; projections and the
// outbound publisher consume them.

// PaymentSettledData carries everything the roster knows about the entrant.
// Replay after a restart rebuilds participants and voters from this payload
// alone, so it must stay self-contained.
type PaymentSettledData struct {
	Cycle          int64  `json:"cycle"`
	Reference      string `json:"reference"`
	PayerID        int64  `json:"payer_id"`
	DisplayName    string `json:"display_name"`
	PayerAddress   string `json:"payer_address"`
	Lamports       int64  `json:"lamports"`
	TransFee       int64  `json:"trans_fee_lamports"`
	TokensReceived int64  `json:"tokens_received"`
	PayerShare     int64  `json:"payer_share"`
	PoolShare      int64  `json:"pool_share"`
	ReserveShare   int64  `json:"reserve_share"`
	TierName       string `json:"tier_name"`
	Badge          string `json:"badge"`
	MultiplierPPM  int64  `json:"multiplier_ppm"`
	MediaRef       string `json:"media_ref,omitempty"`
	Title          string `json:"title,omitempty"`
	DurationSec    int64  `json:"duration_sec,omitempty"`
	Venue          string `json:"venue"`
	Signature      string `json:"signature"`
	Delivered      bool   `json:"delivered"`
	Role           string `json:"role"` // participant | voter
}

type PaymentAbortedData struct {
	Reference string `json:"reference"`
	PayerID   int64  `json:"payer_id"`
	Lamports  int64  `json:"lamports"`
	Reason    string `json:"reason"`
}

type PhaseChangedData struct {
	Cycle     int64     `json:"cycle"`
	FromPhase string    `json:"from_phase"`
	ToPhase   string    `json:"to_phase"`
	Deadline  time.Time `json:"deadline"`
	Skipped   bool      `json:"skipped,omitempty"`
}

type VoteCastData struct {
	Cycle         int64 `json:"cycle"`
	VoterID       int64 `json:"voter_id"`
	ParticipantID int64 `json:"participant_id"`
}

type PayoutData struct {
	PayerID int64 `json:"payer_id"`
	Amount  int64 `json:"amount"`
	Rank    int   `json:"rank,omitempty"`
}

type RoundSettledData struct {
	Cycle         int64        `json:"cycle"`
	Pool          int64        `json:"pool"`
	WinnerPayouts []PayoutData `json:"winner_payouts"`
	VoterPayouts  []PayoutData `json:"voter_payouts"`
	BonusPayerID  int64        `json:"bonus_payer_id,omitempty"`
	BonusAmount   int64        `json:"bonus_amount,omitempty"`
	Residue       int64        `json:"residue"`
}

type BonusWonData struct {
	Cycle   int64 `json:"cycle"`
	PayerID int64 `json:"payer_id"`
	Amount  int64 `json:"amount"`
	Reserve int64 `json:"reserve_after"`
}

type EntryPurgedData struct {
	Reference string `json:"reference"`
	PayerID   int64  `json:"payer_id"`
	AgeSec    int64  `json:"age_sec"`
}
