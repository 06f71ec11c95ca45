package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// OutboundStreamName carries processed round events for downstream consumers
// (leaderboard site, analytics). Subjects: xpo.rounds.events.{event_type}
const OutboundStreamName = "XPO_ROUNDS"

// PublishableEvent is a processed event ready for outbound publishing.
type PublishableEvent struct {
	Sequence       int64           `json:"sequence"`
	EventType      string          `json:"event_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// OutboundPublisher drains the publish channel to JetStream. The channel is
// non-blocking with drop on the engine side: downstream consumers are
// best-effort and can rebuild from the event log.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableEvent
	logger    zerolog.Logger
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableEvent, logger zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		logger:    logger.With().Str("component", "publisher").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			data, err := json.Marshal(evt)
			if err != nil {
				op.logger.Warn().Err(err).Int64("sequence", evt.Sequence).Msg("marshal outbound event failed")
				continue
			}

			subject := fmt.Sprintf("xpo.rounds.events.%s", strings.ToLower(evt.EventType))
			if _, err := op.js.Publish(ctx, subject, data); err != nil {
				op.logger.Warn().Err(err).
					Str("subject", subject).
					Int64("sequence", evt.Sequence).
					Msg("outbound publish failed")
			}
		}
	}
}
