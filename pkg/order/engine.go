package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/raykavin/trailstop/pkg/tick"
)

// Engine tracks trailing-stop orders for any number of markets. It re-pegs
// orders before every trade and fills the ones crossed after it.
//
// Every public operation runs under a single mutex. The trade hooks are also
// called by the venue for the engine's own fill swaps; those calls are
// recognised through the engine address and return before taking the lock.
// Hook failures reach the notifier only after the lock is released.
type Engine struct {
	mu sync.Mutex

	self     core.Address
	exchange core.Exchange
	shares   core.ShareLedger
	storage  core.OrderStorage
	feed     *Feed
	notifier core.Notifier
	log      logger.Logger
	now      func() time.Time

	markets  map[core.MarketID]*core.Market
	registry *registry
	index    *index

	// failures queued for the notifier while the lock is held
	failures []error
}

// Option configures an Engine
type Option func(*Engine)

// WithStorage mirrors every order and market change into storage
func WithStorage(storage core.OrderStorage) Option {
	return func(e *Engine) {
		e.storage = storage
	}
}

// WithFeed publishes order events to the feed
func WithFeed(feed *Feed) Option {
	return func(e *Engine) {
		e.feed = feed
	}
}

// WithNotifier reports hook failures to the notifier
func WithNotifier(notifier core.Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine acting as self on the given exchange.
func NewEngine(self core.Address, exchange core.Exchange, shares core.ShareLedger,
	log logger.Logger, options ...Option) *Engine {

	e := &Engine{
		self:     self,
		exchange: exchange,
		shares:   shares,
		log:      log,
		now:      time.Now,
		markets:  make(map[core.MarketID]*core.Market),
		registry: newRegistry(),
		index:    newIndex(),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// SetNotifier replaces the notifier hook failures are reported to
func (e *Engine) SetNotifier(notifier core.Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = notifier
}

// Address returns the identity the engine trades and holds custody as.
func (e *Engine) Address() core.Address {
	return e.self
}

// InitializeMarket starts servicing a market. Its tick spacing must match the
// spacing the percentage table is built on; the tracked tick starts at the
// venue's current reference.
func (e *Engine) InitializeMarket(ctx context.Context, market core.Market) error {
	if market.TickSpacing != tick.Spacing {
		return fmt.Errorf("market %s spacing %d: %w", market.ID, market.TickSpacing, core.ErrIncorrectGranularity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.markets[market.ID]; ok {
		return fmt.Errorf("market %s: %w", market.ID, core.ErrMarketExists)
	}

	current, err := e.exchange.CurrentTick(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("market %s: reading tick: %w", market.ID, err)
	}

	market.LastTrackedTick = tick.Reference(current)
	market.UpdatedAt = e.now()
	e.markets[market.ID] = &market
	e.persistMarket(&market)

	e.log.WithField("market", market.ID).Infof("[MARKET INITIALIZED] %s/%s at tick %d",
		market.Token0, market.Token1, market.LastTrackedTick)
	return nil
}

func (e *Engine) market(id core.MarketID) (*core.Market, error) {
	market, ok := e.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, core.ErrUnknownMarket)
	}
	return market, nil
}

// reentrant reports whether a hook call was caused by the engine itself.
func (e *Engine) reentrant(sender core.Address) bool {
	return sender == e.self
}

func (e *Engine) persistMarket(market *core.Market) {
	if e.storage == nil {
		return
	}
	if err := e.storage.SaveMarket(*market); err != nil {
		e.log.WithError(err).WithField("market", market.ID).Warn("storage: failed to save market")
	}
}

func (e *Engine) persist(orders ...*core.Order) {
	if e.storage == nil {
		return
	}
	for _, order := range orders {
		if err := e.storage.SaveOrder(*order); err != nil {
			e.log.WithError(err).WithField("id", order.ID).Warn("storage: failed to save order")
		}
	}
}

func (e *Engine) publish(event core.OrderEvent) {
	event.Time = e.now()
	e.log.Debug(event.String())
	if e.feed != nil {
		e.feed.Publish(event)
	}
}

func (e *Engine) notifyError(err error) {
	e.log.Error(err)
	if e.notifier != nil {
		e.failures = append(e.failures, err)
	}
}

// reportErrors hands the queued failures to the notifier once the operation
// released the lock.
func (e *Engine) reportErrors() {
	e.mu.Lock()
	failures, notifier := e.failures, e.notifier
	e.failures = nil
	e.mu.Unlock()

	for _, err := range failures {
		notifier.OnError(err)
	}
}
