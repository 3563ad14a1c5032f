package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/archfirm/gatehouse/core"
)

const AuditTopic = "gatehouse.audit"

// AuditMessage is the wire form of an audit event
type AuditMessage struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Client   string    `json:"client"`
	Identity string    `json:"identity,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// WatermillPublisher implements the AuditPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     AuditTopic,
	}
}

// Publish publishes an audit event
func (p *WatermillPublisher) Publish(ctx context.Context, event core.AuditEvent) error {
	payload, err := json.Marshal(AuditMessage{
		ID:       event.ID,
		Type:     string(event.Type),
		Client:   event.Client,
		Identity: event.Identity,
		Reason:   event.Reason,
		At:       event.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}

	return nil
}
