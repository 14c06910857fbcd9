package order

import (
	"sync"

	"github.com/raykavin/trailstop/pkg/core"
)

// FeedConsumer is a function type that processes order events
type FeedConsumer func(event core.OrderEvent)

// AllMarkets subscribes a consumer to every market.
const AllMarkets core.MarketID = "*"

const feedBuffer = 256

// Feed fans order events out to subscribers. Each market gets its own buffered
// channel and goroutine, so consumers see the events of a market in order.
type Feed struct {
	mu            sync.RWMutex
	wg            sync.WaitGroup
	started       bool
	channels      map[core.MarketID]chan core.OrderEvent
	subscriptions map[core.MarketID][]FeedConsumer
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{
		channels:      make(map[core.MarketID]chan core.OrderEvent),
		subscriptions: make(map[core.MarketID][]FeedConsumer),
	}
}

// Subscribe registers consumer for the events of market, or of every market
// when market is AllMarkets.
func (f *Feed) Subscribe(market core.MarketID, consumer FeedConsumer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[market] = append(f.subscriptions[market], consumer)
}

// SubscribeOrder registers an OrderSubscriber for every market
func (f *Feed) SubscribeOrder(subscriber core.OrderSubscriber) {
	f.Subscribe(AllMarkets, subscriber.OnOrder)
}

// Publish queues event for delivery. Events are dropped when the market's buffer
// is full, and before Start.
func (f *Feed) Publish(event core.OrderEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return
	}

	ch, ok := f.channels[event.Order.Market]
	if !ok {
		ch = make(chan core.OrderEvent, feedBuffer)
		f.channels[event.Order.Market] = ch
		f.wg.Add(1)
		go f.deliver(event.Order.Market, ch)
	}

	select {
	case ch <- event:
	default:
	}
}

// Start enables delivery
func (f *Feed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

// Stop closes every channel and waits until queued events are delivered.
func (f *Feed) Stop() {
	f.mu.Lock()
	f.started = false
	for market, ch := range f.channels {
		close(ch)
		delete(f.channels, market)
	}
	f.mu.Unlock()

	f.wg.Wait()
}

func (f *Feed) deliver(market core.MarketID, ch <-chan core.OrderEvent) {
	defer f.wg.Done()

	for event := range ch {
		f.mu.RLock()
		consumers := append(append([]FeedConsumer(nil), f.subscriptions[market]...), f.subscriptions[AllMarkets]...)
		f.mu.RUnlock()

		for _, consumer := range consumers {
			consumer(event)
		}
	}
}
