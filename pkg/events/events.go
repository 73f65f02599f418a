package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the standard envelope for all Kafka messages.
//
// Topic Naming Convention:
//
//	portfoliohub.<domain>.<action>
//	Examples: portfoliohub.holdings.changed, portfoliohub.prices.updated
//
// Event types carry a version suffix ("price.updated.v1"); breaking payload
// changes require a new version.
type Event struct {
	// EventID is a unique identifier for this event instance
	EventID string `json:"event_id"`

	// EventType describes the event in format: <domain>.<action>.v<version>
	EventType string `json:"event_type"`

	// OccurredAt is when the event actually happened (not when it was published)
	OccurredAt time.Time `json:"occurred_at"`

	// CorrelationID links related events (e.g. one reconciliation pass)
	CorrelationID string `json:"correlation_id,omitempty"`

	// Source identifies the service that produced this event
	Source string `json:"source"`

	// Payload contains the event-specific data
	Payload any `json:"payload"`

	// Metadata contains optional key-value pairs for tracing, debugging, etc.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, payload any) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    payload,
		Metadata:   make(map[string]string),
	}
}

// WithCorrelationID sets the correlation ID for request tracing
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds a metadata key-value pair
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Topic registry. Topic naming: portfoliohub.<domain>.<action>

const (
	// Holdings Domain
	// Published by: portfolio-engine on ledger mutations

	// TopicHoldingChanged is published when a buy creates or updates a holding
	// Payload: HoldingChangedPayload
	TopicHoldingChanged = "portfoliohub.holdings.changed"

	// TopicHoldingRemoved is published when a holding is fully liquidated
	// Payload: HoldingRemovedPayload
	TopicHoldingRemoved = "portfoliohub.holdings.removed"

	// Price Domain
	// Published by: portfolio-engine after each successful quote merge

	// TopicPriceUpdated is published when a holding's cached price refreshes
	// Payload: PriceUpdatedPayload
	TopicPriceUpdated = "portfoliohub.prices.updated"

	// Reconciliation Domain

	// TopicReconcileCompleted is published at the end of a reconciliation pass
	// Payload: ReconcileCompletedPayload
	TopicReconcileCompleted = "portfoliohub.reconcile.completed"
)

// AllTopics returns all registered topics for admin/setup purposes
var AllTopics = []string{
	TopicHoldingChanged,
	TopicHoldingRemoved,
	TopicPriceUpdated,
	TopicReconcileCompleted,
}

// Event types (versioned)
const (
	EventTypeHoldingChanged     = "holding.changed.v1"
	EventTypeHoldingRemoved     = "holding.removed.v1"
	EventTypePriceUpdated       = "price.updated.v1"
	EventTypeReconcileCompleted = "reconcile.completed.v1"
)

// Publisher publishes events to Kafka topics
type Publisher interface {
	// Publish sends an event to the specified topic
	Publish(ctx context.Context, topic string, event *Event) error

	// Close closes the publisher and releases resources
	Close() error
}
