package event

import (
	"fmt"
	"time"
)

// PaymentReceived reports a confirmed entry-fee payment from the external
// payment notifier. Reference is the globally unique idempotency key handed
// out when the payer registered their choice.
type PaymentReceived struct {
	Reference    string
	PayerID      int64
	Lamports     int64
	PayerAddress string
	Timestamp    time.Time
}

func (p *PaymentReceived) IdempotencyKey() string {
	return p.Reference
}

func (p *PaymentReceived) EventType() EventType {
	return EventTypePaymentReceived
}

// PhaseDeadline fires when a round phase's wall-clock deadline elapses,
// either from an armed timer or from restart recovery finding the persisted
// deadline already in the past. Cycle+Phase make the key stable so a timer
// firing concurrently with recovery cannot double-advance.
type PhaseDeadline struct {
	Cycle     int64
	FromPhase int32
	FiredAt   time.Time
}

func (p *PhaseDeadline) IdempotencyKey() string {
	return fmt.Sprintf("phase:%d:%d", p.Cycle, p.FromPhase)
}

func (p *PhaseDeadline) EventType() EventType {
	return EventTypePhaseDeadline
}

// SweepTick triggers the periodic purge of expired pending entries.
type SweepTick struct {
	FiredAt time.Time
}

func (s *SweepTick) IdempotencyKey() string {
	return fmt.Sprintf("sweep:%d", s.FiredAt.UnixMicro())
}

func (s *SweepTick) EventType() EventType {
	return EventTypeSweepTick
}
