package event

import (
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypePaymentReceived
	EventTypePaymentSettled
	EventTypePaymentAborted
	EventTypePhaseDeadline
	EventTypePhaseChanged
	EventTypeSweepTick
	EventTypeEntryPurged
	EventTypeVoteCast
	EventTypeRoundSettled
	EventTypeBonusWon
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	// Stable idempotency key (payment reference, or derived for internal events)
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Event timestamp
	Timestamp time.Time

	// JSON-encoded event-specific data
	Payload []byte
}

// Event is the interface all inbound event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType
}

func (et EventType) String() string {
	switch et {
	case EventTypePaymentReceived:
		return "PaymentReceived"
	case EventTypePaymentSettled:
		return "PaymentSettled"
	case EventTypePaymentAborted:
		return "PaymentAborted"
	case EventTypePhaseDeadline:
		return "PhaseDeadline"
	case EventTypePhaseChanged:
		return "PhaseChanged"
	case EventTypeSweepTick:
		return "SweepTick"
	case EventTypeEntryPurged:
		return "EntryPurged"
	case EventTypeVoteCast:
		return "VoteCast"
	case EventTypeRoundSettled:
		return "RoundSettled"
	case EventTypeBonusWon:
		return "BonusWon"
	default:
		return "Unknown"
	}
}
