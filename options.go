package trailstop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/raykavin/trailstop/pkg/notification"
)

// Option is a functional option for configuring a Service
type Option func(*Service)

// WithStorage sets the order storage, by default orders are kept in an
// in-memory buntdb
func WithStorage(storage core.OrderStorage) Option {
	return func(s *Service) {
		s.storage = storage
	}
}

// WithRestore rebuilds the engine from storage before the markets are initialized
func WithRestore() Option {
	return func(s *Service) {
		s.restore = true
	}
}

// WithShareLedger replaces the in-memory share ledger
func WithShareLedger(shares core.ShareLedger) Option {
	return func(s *Service) {
		s.shares = shares
	}
}

// WithNotifier registers a notifier for order events and hook failures
func WithNotifier(notifier core.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithTelegram starts a Telegram bot that notifies events and answers queries
func WithTelegram(settings notification.TelegramSettings) Option {
	return func(s *Service) {
		s.telegramSettings = &settings
	}
}

// WithMetrics registers the Prometheus collector with registerer
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = registerer
	}
}

// WithOrderSubscription subscribes a given struct to the order feed
func WithOrderSubscription(subscriber core.OrderSubscriber) Option {
	return func(s *Service) {
		s.subscribers = append(s.subscribers, subscriber)
	}
}

// WithLogger replaces DefaultLog
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithLogLevel sets the log level of the service logger
func WithLogLevel(level logger.Level) Option {
	return func(s *Service) {
		s.logLevel = &level
	}
}
