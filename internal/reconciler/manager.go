package reconciler

import (
	"context"
	"sync"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/internal/store"
	"github.com/amirb2607/PortfolioHub/pkg/events"
	"github.com/amirb2607/PortfolioHub/pkg/metrics"
	"github.com/amirb2607/PortfolioHub/pkg/twelvedata"
)

// Manager owns one reconciler per signed-in user. Sessions start
// lazily on first use and stop on sign-out. Sessions outlive the
// request that started them, so their loops are parented to the
// application context given at construction, never a request context.
type Manager struct {
	ctx       context.Context
	store     store.HoldingsStore
	notifier  store.Notifier
	quotes    twelvedata.QuoteClient
	publisher events.Publisher
	policy    portfolio.RefreshPolicy

	mu       sync.Mutex
	sessions map[string]*Reconciler
}

// NewManager creates a session manager sharing the given collaborators
// across all user reconcilers. ctx bounds the lifetime of every session
// the manager starts.
func NewManager(ctx context.Context, s store.HoldingsStore, n store.Notifier, q twelvedata.QuoteClient, p events.Publisher, policy portfolio.RefreshPolicy) *Manager {
	return &Manager{
		ctx:       ctx,
		store:     s,
		notifier:  n,
		quotes:    q,
		publisher: p,
		policy:    policy,
		sessions:  make(map[string]*Reconciler),
	}
}

// Ensure returns the user's reconciler, starting one if none is live.
func (m *Manager) Ensure(userID string) (*Reconciler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.sessions[userID]; ok {
		return r, nil
	}

	r := New(Options{
		UserID:    userID,
		Store:     m.store,
		Notifier:  m.notifier,
		Quotes:    m.quotes,
		Publisher: m.publisher,
		Policy:    m.policy,
	})
	if err := r.Start(m.ctx); err != nil {
		return nil, err
	}

	m.sessions[userID] = r
	metrics.SetActiveSessions(serviceName, len(m.sessions))
	return r, nil
}

// Stop ends the user's session if one is live. Safe to call for users
// with no session.
func (m *Manager) Stop(userID string) {
	m.mu.Lock()
	r, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
		metrics.SetActiveSessions(serviceName, len(m.sessions))
	}
	m.mu.Unlock()

	if ok {
		r.Stop()
	}
}

// StopAll ends every live session. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Reconciler, 0, len(m.sessions))
	for _, r := range m.sessions {
		sessions = append(sessions, r)
	}
	m.sessions = make(map[string]*Reconciler)
	metrics.SetActiveSessions(serviceName, 0)
	m.mu.Unlock()

	for _, r := range sessions {
		r.Stop()
	}
}
