// Package simulation replays trades against a paper venue while depositors
// place, withdraw and claim trailing orders.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/raykavin/trailstop"
	"github.com/raykavin/trailstop/internal/config"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
	"github.com/raykavin/trailstop/pkg/storage"
	"github.com/raykavin/trailstop/pkg/venue"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/xhit/go-str2duration/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// withdrawEvery makes one placement out of withdrawEvery also withdraw an
// earlier order of a random depositor
const withdrawEvery = 10

// Placement is an order a depositor holds shares of
type Placement struct {
	Holder     core.Address
	Market     core.MarketID
	ID         core.OrderID
	Trigger    int64
	Percentage core.Percentage
	Direction  core.Direction
	Amount     decimal.Decimal
}

// Result sums up a simulation run
type Result struct {
	Trades     int
	Failed     int
	Placements []Placement
	Rejected   int
	Withdrawn  int
	Unfilled   int
	Claims     map[core.Address]map[core.Asset]decimal.Decimal
}

// OpenStorage opens the order storage selected by the configuration
func OpenStorage(settings config.StorageConfig) (core.OrderStorage, error) {
	switch settings.Driver {
	case "memory":
		return storage.FromMemory()
	case "buntdb":
		return storage.FromFile(settings.Path)
	case "sqlite":
		return storage.FromSQL(sqlite.Open(settings.Path), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
	default:
		return nil, fmt.Errorf("storage driver %q: %w", settings.Driver, config.ErrInvalidConfig)
	}
}

// NewVenue creates a paper venue with the configured pools, where every
// depositor and trader holds the configured balance of each distinct token
func NewVenue(cfg *config.Config, log logger.Logger) (*venue.PaperVenue, []core.Market) {
	accounts := lo.Uniq(append(append([]string(nil), cfg.Simulation.Depositors...), cfg.Simulation.Traders...))
	balance := decimal.NewFromInt(cfg.Simulation.Balance)

	markets := make([]core.Market, 0, len(cfg.Markets))
	options := make([]venue.PaperVenueOption, 0)
	for _, settings := range cfg.Markets {
		market := settings.Market()
		markets = append(markets, market)
		options = append(options, venue.WithPaperMarket(market, settings.Tick, decimal.NewFromInt(settings.Depth)))
	}

	assets := lo.Uniq(lo.FlatMap(markets, func(market core.Market, _ int) []core.Asset {
		return []core.Asset{market.Token0, market.Token1}
	}))
	for _, asset := range assets {
		for _, account := range accounts {
			options = append(options, venue.WithPaperAsset(asset, core.Address(account), balance))
		}
	}

	return venue.NewPaperVenue(core.Address(cfg.Engine.Address), log, options...), markets
}

// Trades loads the configured trade file, which holds trades of the first
// market, or generates a random walk for every market. Trades are ordered by time.
func Trades(rng *rand.Rand, cfg config.SimulationConfig, markets []core.Market) ([]venue.Trade, error) {
	if len(markets) == 0 {
		return nil, fmt.Errorf("no markets: %w", config.ErrInvalidConfig)
	}

	if cfg.TradesFile != "" {
		return venue.ReadTrades(cfg.TradesFile, markets[0].ID)
	}

	traders := lo.Map(cfg.Traders, func(trader string, _ int) core.Address {
		return core.Address(trader)
	})

	start := time.Now().Truncate(time.Minute)
	trades := make([]venue.Trade, 0, cfg.Trades*len(markets))
	for _, market := range markets {
		trades = append(trades, venue.RandomTrades(rng, market.ID, traders, cfg.Trades, cfg.MaxTradeAmount,
			start, time.Second)...)
	}

	slices.SortStableFunc(trades, func(a, b venue.Trade) int {
		return a.Time.Compare(b.Time)
	})
	return trades, nil
}

// Simulator drives a service over a paper venue
type Simulator struct {
	service    *trailstop.Service
	venue      *venue.PaperVenue
	markets    []core.Market
	settings   config.SimulationConfig
	depositors []core.Address
	rng        *rand.Rand
	pace       time.Duration
	progress   io.Writer
	log        logger.Logger
}

// New creates a simulator. Progress is drawn on progress when it is not nil.
func New(service *trailstop.Service, paper *venue.PaperVenue, markets []core.Market,
	settings config.SimulationConfig, progress io.Writer, log logger.Logger) (*Simulator, error) {

	pace := time.Duration(0)
	if settings.Pace != "" {
		var err error
		pace, err = str2duration.ParseDuration(settings.Pace)
		if err != nil {
			return nil, fmt.Errorf("pace %q: %w", settings.Pace, err)
		}
	}

	if len(settings.Depositors) == 0 && settings.Orders > 0 {
		return nil, fmt.Errorf("orders without depositors: %w", config.ErrInvalidConfig)
	}
	if settings.Orders > 0 && settings.MaxOrderAmount <= 0 {
		return nil, fmt.Errorf("max order amount must be positive: %w", config.ErrInvalidConfig)
	}

	return &Simulator{
		service:  service,
		venue:    paper,
		markets:  markets,
		settings: settings,
		depositors: lo.Map(settings.Depositors, func(depositor string, _ int) core.Address {
			return core.Address(depositor)
		}),
		rng:      rand.New(rand.NewSource(settings.Seed)),
		pace:     pace,
		progress: progress,
		log:      log,
	}, nil
}

// Run executes trades in order. Orders are placed evenly between them, and
// every placement is claimed once the trades are over.
func (s *Simulator) Run(ctx context.Context, trades []venue.Trade) (Result, error) {
	result := Result{Claims: make(map[core.Address]map[core.Asset]decimal.Decimal)}

	placeEvery := 0
	if s.settings.Orders > 0 {
		placeEvery = max(1, len(trades)/s.settings.Orders)
	}

	bar := progressbar.DefaultSilent(int64(len(trades)))
	if s.progress != nil {
		bar = progressbar.NewOptions64(int64(len(trades)),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("simulating"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(s.progress) }),
		)
	}

	for i, trade := range trades {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if placeEvery > 0 && i%placeEvery == 0 && len(result.Placements)+result.Rejected < s.settings.Orders {
			s.place(ctx, &result)
		}

		if _, err := s.venue.Execute(ctx, trade); err != nil {
			result.Failed++
			s.log.WithError(err).Debugf("trade %d of %s rejected", i, trade.Sender)
		}
		result.Trades++

		if err := bar.Add(1); err != nil {
			s.log.Warnf("update progressbar fail: %v", err)
		}

		if s.pace > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.pace):
			}
		}
	}

	return result, s.claim(ctx, &result)
}

// place deposits a random amount from a random depositor, and now and then
// withdraws an earlier placement
func (s *Simulator) place(ctx context.Context, result *Result) {
	holder := s.depositors[s.rng.Intn(len(s.depositors))]
	market := s.markets[s.rng.Intn(len(s.markets))]
	percentage := core.Percentages[s.rng.Intn(len(core.Percentages))]
	direction := core.Directions[s.rng.Intn(len(core.Directions))]
	amount := decimal.NewFromInt(1 + s.rng.Int63n(s.settings.MaxOrderAmount))

	trigger, id, err := s.service.Engine().Place(ctx, holder, market.ID, percentage, amount, direction)
	if err != nil {
		result.Rejected++
		s.log.WithError(err).Warnf("placement of %s by %s rejected", amount, holder)
		return
	}

	result.Placements = append(result.Placements, Placement{
		Holder:     holder,
		Market:     market.ID,
		ID:         id,
		Trigger:    trigger,
		Percentage: percentage,
		Direction:  direction,
		Amount:     amount,
	})

	if len(result.Placements)%withdrawEvery != 0 {
		return
	}

	placement := result.Placements[s.rng.Intn(len(result.Placements))]
	if _, err := s.service.Engine().Remove(ctx, placement.Holder, placement.ID); err == nil {
		result.Withdrawn++
	} else if !errors.Is(err, core.ErrAlreadyExecuted) && !errors.Is(err, core.ErrNoAmount) {
		s.log.WithError(err).Warnf("withdrawal of order %d by %s failed", placement.ID, placement.Holder)
	}
}

// claim collects the output of every executed placement
func (s *Simulator) claim(ctx context.Context, result *Result) error {
	type holding struct {
		holder core.Address
		id     core.OrderID
	}

	holdings := lo.Uniq(lo.Map(result.Placements, func(placement Placement, _ int) holding {
		return holding{placement.Holder, placement.ID}
	}))

	for _, holding := range holdings {
		payout, err := s.service.Engine().Claim(ctx, holding.holder, holding.id)
		switch {
		case errors.Is(err, core.ErrNotExecuted):
			result.Unfilled++
			continue
		case errors.Is(err, core.ErrNoAmount):
			continue
		case err != nil:
			return fmt.Errorf("claiming order %d for %s: %w", holding.id, holding.holder, err)
		}

		order, _ := s.service.Engine().Order(holding.id)
		market, _ := s.service.Engine().Market(order.Market)
		asset := order.Direction.Output(market)

		if result.Claims[holding.holder] == nil {
			result.Claims[holding.holder] = make(map[core.Asset]decimal.Decimal)
		}
		result.Claims[holding.holder][asset] = result.Claims[holding.holder][asset].Add(payout)
	}

	return nil
}
