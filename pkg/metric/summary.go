package metric

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/raykavin/trailstop/pkg/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fill is one executed order as seen by the summary
type Fill struct {
	Order     core.OrderID
	Direction core.Direction
	Tick      int64
	In        float64
	Out       float64
}

// Price is the execution price in token1 per token0
func (f Fill) Price() float64 {
	if f.Direction == core.ZeroForOne {
		if f.In == 0 {
			return 0
		}
		return f.Out / f.In
	}
	if f.Out == 0 {
		return 0
	}
	return f.In / f.Out
}

// FillStats describes the execution prices of a market's fills
type FillStats struct {
	Count    int
	Input    float64
	Output   float64
	Mean     float64
	StdDev   float64
	Min      float64
	Median   float64
	Max      float64
	Interval BootstrapInterval
}

// Summary accumulates fills per market. It subscribes to the order feed.
type Summary struct {
	mu    sync.Mutex
	rng   *rand.Rand
	fills map[core.MarketID][]Fill
}

// NewSummary creates an empty summary; seed drives the bootstrap resampling.
func NewSummary(seed int64) *Summary {
	return &Summary{
		rng:   rand.New(rand.NewSource(seed)),
		fills: make(map[core.MarketID][]Fill),
	}
}

// OnOrder implements core.OrderSubscriber
func (s *Summary) OnOrder(event core.OrderEvent) {
	if event.Type != core.EventFilled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fills[event.Order.Market] = append(s.fills[event.Order.Market], Fill{
		Order:     event.Order.ID,
		Direction: event.Order.Direction,
		Tick:      event.Order.TriggerTick,
		In:        event.Amount.InexactFloat64(),
		Out:       event.AmountOut.InexactFloat64(),
	})
}

// Fills returns the fills recorded for a market
func (s *Summary) Fills(market core.MarketID) []Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fill(nil), s.fills[market]...)
}

// Stats computes the price statistics of a market, with a 95% bootstrap
// interval of the mean price.
func (s *Summary) Stats(market core.MarketID) FillStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	fills := s.fills[market]
	if len(fills) == 0 {
		return FillStats{}
	}

	stats := FillStats{Count: len(fills)}
	prices := make([]float64, 0, len(fills))
	for _, fill := range fills {
		stats.Input += fill.In
		stats.Output += fill.Out
		prices = append(prices, fill.Price())
	}

	sort.Float64s(prices)
	stats.Mean, stats.StdDev = stat.MeanStdDev(prices, nil)
	stats.Min = floats.Min(prices)
	stats.Max = floats.Max(prices)
	stats.Median = stat.Quantile(0.5, stat.Empirical, prices, nil)
	stats.Interval = Bootstrap(s.rng, prices, func(sample []float64) float64 {
		return stat.Mean(sample, nil)
	}, 1000, 0.95)

	return stats
}
