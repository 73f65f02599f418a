package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
)

// ChangeReason classifies why a portfolio changed. Price-only writes
// carry ReasonPrice so the refresh loop can ignore its own updates.
type ChangeReason string

const (
	ReasonHoldings ChangeReason = "holdings"
	ReasonPrice    ChangeReason = "price"
)

// Notification is one change event published for a user's portfolio.
type Notification struct {
	UserID string       `json:"user_id"`
	Reason ChangeReason `json:"reason"`
	At     time.Time    `json:"at"`
}

// HoldingsStore is the durable mirror of each user's holdings.
type HoldingsStore interface {
	// Load returns all holdings for a user.
	Load(ctx context.Context, userID string) ([]portfolio.Holding, error)

	// Upsert writes the whole holding document, creating it if absent.
	Upsert(ctx context.Context, userID string, h *portfolio.Holding) error

	// UpdatePrice writes only the current price and refresh timestamp.
	UpdatePrice(ctx context.Context, userID, symbol string, price decimal.Decimal, asOf time.Time) error

	// Delete removes the holding. Deleting an absent symbol is not an
	// error.
	Delete(ctx context.Context, userID, symbol string) error
}

// Notifier publishes and delivers portfolio change notifications.
type Notifier interface {
	// Notify publishes a change for the user.
	Notify(ctx context.Context, userID string, reason ChangeReason) error

	// Subscribe delivers the user's notifications until cancel is
	// called or ctx ends.
	Subscribe(ctx context.Context, userID string) (<-chan Notification, func(), error)
}
