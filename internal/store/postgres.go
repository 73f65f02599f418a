package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
)

// PostgresStore persists holdings in the holdings table, one row per
// (user_id, symbol).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new postgres-backed holdings store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ HoldingsStore = (*PostgresStore)(nil)

// Load retrieves all holdings for a user in insertion order
func (s *PostgresStore) Load(ctx context.Context, userID string) ([]portfolio.Holding, error) {
	rows, err := s.db.Query(ctx, `
		SELECT symbol, name, quantity, average_price, current_price, last_update, purchase_date
		FROM holdings
		WHERE user_id = $1 AND quantity > 0
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	defer rows.Close()

	var holdings []portfolio.Holding
	for rows.Next() {
		var h portfolio.Holding
		err := rows.Scan(
			&h.Symbol, &h.Name, &h.Quantity, &h.AveragePrice,
			&h.CurrentPrice, &h.LastUpdate, &h.PurchaseDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}

	return holdings, nil
}

// Upsert writes the whole holding row
func (s *PostgresStore) Upsert(ctx context.Context, userID string, h *portfolio.Holding) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO holdings (user_id, symbol, name, quantity, average_price, current_price, last_update, purchase_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			name = EXCLUDED.name,
			quantity = EXCLUDED.quantity,
			average_price = EXCLUDED.average_price,
			current_price = EXCLUDED.current_price,
			last_update = EXCLUDED.last_update,
			purchase_date = EXCLUDED.purchase_date,
			updated_at = NOW()
	`, userID, h.Symbol, h.Name, h.Quantity, h.AveragePrice, h.CurrentPrice, h.LastUpdate, h.PurchaseDate)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// UpdatePrice writes only the price fields
func (s *PostgresStore) UpdatePrice(ctx context.Context, userID, symbol string, price decimal.Decimal, asOf time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE holdings
		SET current_price = $3, last_update = $4, updated_at = NOW()
		WHERE user_id = $1 AND symbol = $2
	`, userID, symbol, price, asOf)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return nil
}

// Delete removes the holding row
func (s *PostgresStore) Delete(ctx context.Context, userID, symbol string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM holdings
		WHERE user_id = $1 AND symbol = $2
	`, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}
