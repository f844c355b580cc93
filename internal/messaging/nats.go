package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/nats-io/nats.go"
)

type PickupEventType string

const (
	EventCodeGenerated PickupEventType = "code_generated"
	EventPickupSuccess PickupEventType = "completed"
	EventPickupFailed  PickupEventType = "failed"
)

// PickupEvent is what downstream notification services receive. It never carries the code itself.
type PickupEvent struct {
	Type       PickupEventType `json:"type"`
	OrderID    string          `json:"order_id"`
	StoreID    string          `json:"store_id,omitempty"`
	Success    bool            `json:"success"`
	Reason     string          `json:"reason,omitempty"`
	VerifiedBy string          `json:"verified_by,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EventPublisher interface {
	PublishPickupEvent(event PickupEvent) error
	Close()
}

// Connection is the subset of *nats.Conn the publisher needs
type Connection interface {
	Publish(subj string, data []byte) error
	Close()
}

type natsPublisher struct {
	conn   Connection
	prefix string
}

func NewNATSPublisher(url, subjectPrefix string) (EventPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("storeops-pickup"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", map[string]interface{}{
		"url": url,
	})
	return NewPublisherWithConn(conn, subjectPrefix), nil
}

func NewPublisherWithConn(conn Connection, subjectPrefix string) EventPublisher {
	if subjectPrefix == "" {
		subjectPrefix = "pickup"
	}
	return &natsPublisher{conn: conn, prefix: subjectPrefix}
}

// Subject returns the subject an event of type t is published on
func Subject(prefix string, t PickupEventType) string {
	return prefix + "." + string(t)
}

func (p *natsPublisher) PublishPickupEvent(event PickupEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal pickup event", err, map[string]interface{}{
			"order_id": event.OrderID,
		})
		return fmt.Errorf("failed to marshal pickup event: %w", err)
	}

	subject := Subject(p.prefix, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		logger.Error("Failed to publish pickup event", err, map[string]interface{}{
			"subject":  subject,
			"order_id": event.OrderID,
		})
		return fmt.Errorf("failed to publish pickup event: %w", err)
	}

	logger.Debug("Pickup event published", map[string]interface{}{
		"subject":  subject,
		"order_id": event.OrderID,
	})
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		logger.Info("NATS connection closed")
	}
}

type noopPublisher struct{}

// NewNoopPublisher is used when no NATS_URL is configured
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishPickupEvent(PickupEvent) error { return nil }
func (noopPublisher) Close()                               {}
