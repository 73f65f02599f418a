package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/internal/store"
	"github.com/amirb2607/PortfolioHub/pkg/errors"
	"github.com/amirb2607/PortfolioHub/pkg/events"
	"github.com/amirb2607/PortfolioHub/pkg/logger"
	"github.com/amirb2607/PortfolioHub/pkg/metrics"
	"github.com/amirb2607/PortfolioHub/pkg/twelvedata"
)

const serviceName = "portfolio-engine"

// State is the lifecycle of one reconciliation cycle.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReconciled State = "reconciled"
	StateError      State = "error"
)

// Snapshot is the reconciler's published view of a portfolio: ledger
// contents plus derived valuation and cycle state.
type Snapshot struct {
	State    State               `json:"state"`
	Holdings []portfolio.Holding `json:"holdings"`
	Summary  portfolio.Summary   `json:"summary"`
	Error    string              `json:"error,omitempty"`
	AsOf     time.Time           `json:"as_of"`
}

// Options holds the reconciler's injected collaborators.
type Options struct {
	UserID    string
	Store     store.HoldingsStore
	Notifier  store.Notifier
	Quotes    twelvedata.QuoteClient
	Publisher events.Publisher
	Policy    portfolio.RefreshPolicy

	// Now is the clock, defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Reconciler keeps one user's in-memory ledger aligned with the store
// and the quote API. Change notifications schedule a refresh pass
// rather than re-entering one; a generation counter invalidates
// in-flight merges when a newer pass or a stop supersedes them.
type Reconciler struct {
	userID    string
	ledger    *portfolio.Ledger
	store     store.HoldingsStore
	notifier  store.Notifier
	quotes    twelvedata.QuoteClient
	publisher events.Publisher
	policy    portfolio.RefreshPolicy
	now       func() time.Time
	log       zerolog.Logger

	generation atomic.Uint64

	mu      sync.RWMutex
	state   State
	lastErr string
	asOf    time.Time

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64

	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a reconciler for one user session.
func New(opts Options) *Reconciler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{
		userID:    opts.UserID,
		ledger:    portfolio.NewLedger(),
		store:     opts.Store,
		notifier:  opts.Notifier,
		quotes:    opts.Quotes,
		publisher: publisher,
		policy:    opts.Policy,
		now:       now,
		log:       logger.With("reconciler").With().Str("user_id", opts.UserID).Logger(),
		state:     StateIdle,
		subs:      make(map[uint64]chan Snapshot),
		trigger:   make(chan struct{}, 1),
	}
}

// Start subscribes to change notifications and runs the first
// reconciliation pass. It returns once the loop goroutine is running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)

	notifications, unsubscribe, err := r.notifier.Subscribe(loopCtx, r.userID)
	if err != nil {
		cancel()
		r.mu.Lock()
		r.started = false
		r.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()
	r.scheduleRefresh()

	go func() {
		defer close(done)
		defer unsubscribe()
		r.loop(loopCtx, notifications)
	}()

	return nil
}

// Stop cancels the session. In-flight quote fetches are abandoned and
// their merges dropped.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	r.generation.Add(1)
	cancel()
	<-done

	r.subMu.Lock()
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	r.subMu.Unlock()
}

// Refresh schedules a reconciliation pass. Multiple calls before the
// loop picks one up coalesce into a single pass.
func (r *Reconciler) Refresh() {
	r.scheduleRefresh()
}

func (r *Reconciler) scheduleRefresh() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reconciler) loop(ctx context.Context, notifications <-chan store.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			// Price-only writes originate from our own refresh
			// passes; re-running on them would loop forever.
			if notif.Reason == store.ReasonPrice {
				continue
			}
			r.scheduleRefresh()
		case <-r.trigger:
			r.runPass(ctx)
		}
	}
}

// runPass is one sweep: load the remote holdings, refresh the stale
// ones concurrently, publish the resulting snapshot.
func (r *Reconciler) runPass(ctx context.Context) {
	gen := r.generation.Add(1)
	started := r.now()
	correlationID := uuid.New().String()

	r.setState(StateLoading, "")

	holdings, err := r.store.Load(ctx, r.userID)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to load holdings")
		r.setState(StateError, errors.ErrStore.Message)
		metrics.RecordReconcilePass(serviceName, "error", 0, time.Since(started))
		return
	}
	r.ledger.Replace(holdings)

	var (
		wg        sync.WaitGroup
		refreshed atomic.Int64
		failed    atomic.Int64
	)

	now := r.now()
	for _, h := range r.ledger.Snapshot() {
		if !r.policy.ShouldRefresh(&h, now) {
			continue
		}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if err := r.refreshHolding(ctx, gen, symbol, correlationID); err != nil {
				failed.Add(1)
				r.log.Warn().Err(err).Str("symbol", symbol).Msg("price refresh failed, keeping prior price")
				return
			}
			refreshed.Add(1)
		}(h.Symbol)
	}
	wg.Wait()

	if ctx.Err() != nil || r.generation.Load() != gen {
		metrics.RecordReconcilePass(serviceName, "cancelled", int(refreshed.Load()), time.Since(started))
		return
	}

	r.setState(StateReconciled, "")
	metrics.RecordReconcilePass(serviceName, "reconciled", int(refreshed.Load()), time.Since(started))

	event := events.NewEvent(events.EventTypeReconcileCompleted, serviceName, events.ReconcileCompletedPayload{
		UserID:    r.userID,
		Holdings:  r.ledger.Len(),
		Refreshed: int(refreshed.Load()),
		Failed:    int(failed.Load()),
		StartedAt: started,
		Duration:  time.Since(started).String(),
	}).WithCorrelationID(correlationID)
	if err := r.publisher.Publish(ctx, events.TopicReconcileCompleted, event); err != nil {
		r.log.Warn().Err(err).Msg("failed to publish reconcile event")
	}
}

// refreshHolding fetches one quote and merges it. The merge is dropped
// when the pass generation has been superseded.
func (r *Reconciler) refreshHolding(ctx context.Context, gen uint64, symbol, correlationID string) error {
	quote, err := r.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return err
	}

	if r.generation.Load() != gen || ctx.Err() != nil {
		return context.Canceled
	}

	asOf := r.now()
	if err := r.ledger.ApplyPriceUpdate(symbol, quote.Close, asOf); err != nil {
		return err
	}
	if err := r.store.UpdatePrice(ctx, r.userID, symbol, quote.Close, asOf); err != nil {
		return err
	}
	if err := r.notifier.Notify(ctx, r.userID, store.ReasonPrice); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to notify price change")
	}

	event := events.NewEvent(events.EventTypePriceUpdated, serviceName, events.PriceUpdatedPayload{
		UserID: r.userID,
		Symbol: symbol,
		Price:  quote.Close.String(),
		AsOf:   asOf,
	}).WithCorrelationID(correlationID)
	if err := r.publisher.Publish(ctx, events.TopicPriceUpdated, event); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to publish price event")
	}

	return nil
}

// AddBuy validates the symbol against the quote API, folds the buy
// into the ledger, and mirrors the result to the store. The fresh
// quote also prices the holding immediately.
func (r *Reconciler) AddBuy(ctx context.Context, symbol string, quantity, price decimal.Decimal) (*portfolio.Holding, error) {
	symbol = portfolio.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errors.ErrValidation.WithDetails("symbol must not be empty")
	}

	quote, err := r.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	holding, err := r.ledger.AddBuy(symbol, quote.Name, quantity, price, r.now())
	if err != nil {
		return nil, err
	}

	asOf := r.now()
	if err := r.ledger.ApplyPriceUpdate(symbol, quote.Close, asOf); err != nil {
		return nil, err
	}
	holding = r.ledger.Get(symbol)

	if err := r.store.Upsert(ctx, r.userID, holding); err != nil {
		return nil, errors.ErrStore.WithError(err)
	}
	if err := r.notifier.Notify(ctx, r.userID, store.ReasonHoldings); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to notify holdings change")
	}

	event := events.NewEvent(events.EventTypeHoldingChanged, serviceName, events.HoldingChangedPayload{
		UserID:       r.userID,
		Symbol:       holding.Symbol,
		Name:         holding.Name,
		Quantity:     holding.Quantity.String(),
		AveragePrice: holding.AveragePrice.String(),
		PurchaseDate: holding.PurchaseDate,
	})
	if err := r.publisher.Publish(ctx, events.TopicHoldingChanged, event); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to publish holding event")
	}

	r.publishSnapshot()
	return holding, nil
}

// Remove fully liquidates the holding. Removing an absent symbol
// returns ErrHoldingNotFound so the API edge can report it.
func (r *Reconciler) Remove(ctx context.Context, symbol string) error {
	symbol = portfolio.NormalizeSymbol(symbol)
	if r.ledger.Get(symbol) == nil {
		// The ledger lags the store until the first pass completes,
		// so confirm absence against the store before reporting it.
		holdings, err := r.store.Load(ctx, r.userID)
		if err != nil {
			return errors.ErrStore.WithError(err)
		}
		found := false
		for i := range holdings {
			if portfolio.NormalizeSymbol(holdings[i].Symbol) == symbol {
				found = true
				break
			}
		}
		if !found {
			return errors.ErrHoldingNotFound.WithDetails("symbol: " + symbol)
		}
	}

	r.ledger.Remove(symbol)
	if err := r.store.Delete(ctx, r.userID, symbol); err != nil {
		return errors.ErrStore.WithError(err)
	}
	if err := r.notifier.Notify(ctx, r.userID, store.ReasonHoldings); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to notify holdings change")
	}

	event := events.NewEvent(events.EventTypeHoldingRemoved, serviceName, events.HoldingRemovedPayload{
		UserID:    r.userID,
		Symbol:    symbol,
		RemovedAt: r.now(),
	})
	if err := r.publisher.Publish(ctx, events.TopicHoldingRemoved, event); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to publish removal event")
	}

	r.publishSnapshot()
	return nil
}

// Snapshot returns the current published view.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	state, lastErr, asOf := r.state, r.lastErr, r.asOf
	r.mu.RUnlock()

	holdings := r.ledger.Snapshot()
	return Snapshot{
		State:    state,
		Holdings: holdings,
		Summary:  portfolio.Summarize(holdings),
		Error:    lastErr,
		AsOf:     asOf,
	}
}

// Subscribe delivers a snapshot after every state change until the
// returned unsubscribe function is called. Slow consumers miss
// intermediate snapshots rather than blocking the reconciler.
func (r *Reconciler) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subMu.Unlock()

	// Seed with the current view
	select {
	case ch <- r.Snapshot():
	default:
	}

	unsubscribe := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (r *Reconciler) setState(state State, errMsg string) {
	r.mu.Lock()
	r.state = state
	r.lastErr = errMsg
	r.asOf = r.now()
	r.mu.Unlock()

	r.publishSnapshot()
}

func (r *Reconciler) publishSnapshot() {
	snapshot := r.Snapshot()

	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		// Drop the stale buffered snapshot if the consumer is behind
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
