package events

import "time"

// Payload definitions. One struct per event type; user_id appears in every
// payload since portfolios are single-owner.

// HoldingChangedPayload is the payload for holding.changed.v1 events
type HoldingChangedPayload struct {
	UserID       string    `json:"user_id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name,omitempty"`
	Quantity     string    `json:"quantity"`
	AveragePrice string    `json:"average_price"`
	PurchaseDate time.Time `json:"purchase_date,omitempty"`
}

// HoldingRemovedPayload is the payload for holding.removed.v1 events
type HoldingRemovedPayload struct {
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	RemovedAt time.Time `json:"removed_at"`
}

// PriceUpdatedPayload is the payload for price.updated.v1 events
type PriceUpdatedPayload struct {
	UserID string    `json:"user_id"`
	Symbol string    `json:"symbol"`
	Price  string    `json:"price"`
	AsOf   time.Time `json:"as_of"`
}

// ReconcileCompletedPayload is the payload for reconcile.completed.v1 events
type ReconcileCompletedPayload struct {
	UserID    string    `json:"user_id"`
	Holdings  int       `json:"holdings"`
	Refreshed int       `json:"refreshed"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}
