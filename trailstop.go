// Package trailstop wires the trailing-stop order engine with its feed,
// storage, notifications and metrics.
package trailstop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/ledger"
	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/raykavin/trailstop/pkg/metric"
	"github.com/raykavin/trailstop/pkg/notification"
	"github.com/raykavin/trailstop/pkg/order"
	"github.com/raykavin/trailstop/pkg/storage"
	"github.com/raykavin/trailstop/pkg/venue"
)

// HookRegistrar is implemented by venues that call hooks around their trades
type HookRegistrar interface {
	RegisterHooks(hooks core.Hooks)
}

// Service runs one engine over an exchange
type Service struct {
	self     core.Address
	exchange core.Exchange
	markets  []core.Market

	engine    *order.Engine
	feed      *order.Feed
	storage   core.OrderStorage
	shares    core.ShareLedger
	notifier  core.Notifier
	telegram  *notification.Telegram
	collector *metric.Collector
	summary   *metric.Summary
	log       logger.Logger

	telegramSettings *notification.TelegramSettings
	registerer       prometheus.Registerer
	subscribers      []core.OrderSubscriber
	logLevel         *logger.Level
	restore          bool
}

// NewService creates the engine acting as self on exchange and starts servicing
// markets. When the exchange accepts hooks the engine registers itself.
func NewService(ctx context.Context, self core.Address, exchange core.Exchange, markets []core.Market,
	options ...Option) (*Service, error) {

	s := &Service{
		self:     self,
		exchange: exchange,
		markets:  markets,
		feed:     order.NewFeed(),
		summary:  metric.NewSummary(1),
		log:      DefaultLog,
	}

	for _, option := range options {
		option(s)
	}

	if s.logLevel != nil {
		s.log.SetLevel(*s.logLevel)
	}

	if err := s.initializeStorage(); err != nil {
		return nil, err
	}
	if s.shares == nil {
		s.shares = ledger.NewMemory()
	}

	engineOptions := []order.Option{order.WithStorage(s.storage), order.WithFeed(s.feed)}
	if s.notifier != nil {
		engineOptions = append(engineOptions, order.WithNotifier(s.notifier))
	}
	s.engine = order.NewEngine(self, exchange, s.shares, s.log, engineOptions...)

	if err := s.initializeNotifications(); err != nil {
		return nil, err
	}
	if err := s.initializeMetrics(); err != nil {
		return nil, err
	}

	if s.restore {
		if err := s.engine.Restore(); err != nil {
			return nil, err
		}
	}

	for _, market := range markets {
		if _, ok := s.engine.Market(market.ID); ok {
			continue
		}
		if err := s.engine.InitializeMarket(ctx, market); err != nil {
			return nil, err
		}
	}

	if registrar, ok := exchange.(HookRegistrar); ok {
		registrar.RegisterHooks(s.engine)
	}

	return s, nil
}

// initializeStorage sets up an in-memory store when none was given
func (s *Service) initializeStorage() error {
	if s.storage != nil {
		return nil
	}

	store, err := storage.FromMemory()
	if err != nil {
		return err
	}
	s.storage = store
	return nil
}

// initializeNotifications creates the Telegram bot and subscribes notifiers
func (s *Service) initializeNotifications() error {
	if s.telegramSettings != nil {
		telegram, err := notification.NewTelegram(s.engine, *s.telegramSettings, s.log)
		if err != nil {
			return err
		}
		s.telegram = telegram
		if s.notifier == nil {
			s.notifier = telegram
			s.engine.SetNotifier(telegram)
		} else {
			s.subscribers = append(s.subscribers, telegram)
		}
	}

	if s.notifier != nil {
		s.feed.SubscribeOrder(s.notifier)
	}
	for _, subscriber := range s.subscribers {
		s.feed.SubscribeOrder(subscriber)
	}
	s.feed.SubscribeOrder(s.summary)
	return nil
}

func (s *Service) initializeMetrics() error {
	if s.registerer == nil {
		return nil
	}

	collector, err := metric.NewCollector(s.registerer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	s.collector = collector
	s.feed.SubscribeOrder(collector)
	return nil
}

// Engine returns the order engine
func (s *Service) Engine() *order.Engine {
	return s.engine
}

// Feed returns the order event feed
func (s *Service) Feed() *order.Feed {
	return s.feed
}

// Storage returns the order storage
func (s *Service) Storage() core.OrderStorage {
	return s.storage
}

// Stats returns the fill statistics of a market
func (s *Service) Stats(market core.MarketID) metric.FillStats {
	return s.summary.Stats(market)
}

// Start delivers order events and starts the Telegram bot
func (s *Service) Start() {
	s.feed.Start()
	if s.telegram != nil {
		s.telegram.Start()
	}
	s.log.Infof("[SETUP] servicing %d markets as %s", len(s.engine.Markets()), s.self)
}

// Stop flushes pending events and releases the storage
func (s *Service) Stop() error {
	s.feed.Stop()
	if s.telegram != nil {
		s.telegram.Stop()
	}

	if closer, ok := s.storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ActiveOrders returns the number of live orders of a market
func (s *Service) ActiveOrders(market core.MarketID) int {
	count := 0
	for _, percentage := range core.Percentages {
		for _, direction := range core.Directions {
			count += s.engine.ActiveCount(market, percentage, direction)
		}
	}
	return count
}

// Summary renders one table row per market with the current tick, live orders
// and fill statistics, and the 95% confidence interval of the fill price
func (s *Service) Summary(w io.Writer) error {
	markets := s.engine.Markets()
	slices.SortFunc(markets, func(a, b core.Market) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Market", "Tick", "Price", "Active", "Fills", "In", "Out", "Avg Price", "95% CI"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, market := range markets {
		at, err := s.exchange.CurrentTick(context.Background(), market.ID)
		if err != nil {
			return fmt.Errorf("market %s: %w", market.ID, err)
		}

		stats := s.summary.Stats(market.ID)
		table.Append([]string{
			string(market.ID),
			strconv.FormatInt(at, 10),
			fmt.Sprintf("%.6f", venue.Price(at)),
			strconv.Itoa(s.ActiveOrders(market.ID)),
			strconv.Itoa(stats.Count),
			fmt.Sprintf("%.0f", stats.Input),
			fmt.Sprintf("%.0f", stats.Output),
			fmt.Sprintf("%.6f", stats.Mean),
			fmt.Sprintf("%.6f ~ %.6f", stats.Interval.Lower, stats.Interval.Upper),
		})
	}
	table.Render()

	_, err := io.Copy(w, buffer)
	return err
}
