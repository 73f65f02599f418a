package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/pkg/errors"
)

// MemoryStore is an in-memory HoldingsStore for tests and local
// development without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]portfolio.Holding
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]portfolio.Holding)}
}

var _ HoldingsStore = (*MemoryStore)(nil)

func (s *MemoryStore) Load(ctx context.Context, userID string) ([]portfolio.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := s.users[userID]
	out := make([]portfolio.Holding, len(holdings))
	copy(out, holdings)
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, userID string, h *portfolio.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.users[userID]
	for i := range holdings {
		if holdings[i].Symbol == h.Symbol {
			holdings[i] = *h
			return nil
		}
	}
	s.users[userID] = append(holdings, *h)
	return nil
}

func (s *MemoryStore) UpdatePrice(ctx context.Context, userID, symbol string, price decimal.Decimal, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.users[userID]
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			holdings[i].CurrentPrice = &price
			holdings[i].LastUpdate = &asOf
			return nil
		}
	}
	return errors.ErrHoldingNotFound.WithDetails("symbol: " + symbol)
}

func (s *MemoryStore) Delete(ctx context.Context, userID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.users[userID]
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			s.users[userID] = append(holdings[:i], holdings[i+1:]...)
			return nil
		}
	}
	return nil
}

// MemoryNotifier is an in-process Notifier for tests. Notifications
// are delivered to all live subscribers of the user.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[string][]chan Notification
}

// NewMemoryNotifier creates an in-process notifier
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string][]chan Notification)}
}

var _ Notifier = (*MemoryNotifier)(nil)

func (n *MemoryNotifier) Notify(ctx context.Context, userID string, reason ChangeReason) error {
	notif := Notification{UserID: userID, Reason: reason, At: time.Now().UTC()}

	n.mu.Lock()
	subs := make([]chan Notification, len(n.subs[userID]))
	copy(subs, n.subs[userID])
	n.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- notif:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, userID string) (<-chan Notification, func(), error) {
	ch := make(chan Notification, 16)

	n.mu.Lock()
	n.subs[userID] = append(n.subs[userID], ch)
	n.mu.Unlock()

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs := n.subs[userID]
		for i, sub := range subs {
			if sub == ch {
				n.subs[userID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe, nil
}
