// Package metric turns the engine's order events into Prometheus metrics and
// fill statistics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raykavin/trailstop/pkg/core"
)

// Collector exposes order events as Prometheus metrics:
//   - trailstop_order_events_total{market,type}
//   - trailstop_deposited_total{market,direction}: placed minus withdrawn input
//   - trailstop_filled_input_total{market,direction}
//   - trailstop_filled_output_total{market,direction}
//   - trailstop_claimed_total{market,direction}
//   - trailstop_last_fill_tick{market,direction}
type Collector struct {
	events     *prometheus.CounterVec
	deposited  *prometheus.GaugeVec
	filledIn   *prometheus.CounterVec
	filledOut  *prometheus.CounterVec
	claimed    *prometheus.CounterVec
	lastFillAt *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them with registerer
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	sides := []string{"market", "direction"}

	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailstop_order_events_total",
			Help: "Order events by type",
		}, []string{"market", "type"}),
		deposited: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailstop_deposited_total",
			Help: "Input held by unexecuted orders, in base units",
		}, sides),
		filledIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailstop_filled_input_total",
			Help: "Input swapped by fills, in base units",
		}, sides),
		filledOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailstop_filled_output_total",
			Help: "Output received by fills, in base units",
		}, sides),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailstop_claimed_total",
			Help: "Output paid to depositors, in base units",
		}, sides),
		lastFillAt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailstop_last_fill_tick",
			Help: "Trigger tick of the last fill",
		}, sides),
	}

	for _, collector := range []prometheus.Collector{c.events, c.deposited, c.filledIn, c.filledOut, c.claimed,
		c.lastFillAt} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// OnOrder implements core.OrderSubscriber
func (c *Collector) OnOrder(event core.OrderEvent) {
	market := string(event.Order.Market)
	direction := event.Order.Direction.String()

	c.events.WithLabelValues(market, string(event.Type)).Inc()

	switch event.Type {
	case core.EventPlaced:
		c.deposited.WithLabelValues(market, direction).Add(event.Amount.InexactFloat64())
	case core.EventWithdrawn:
		c.deposited.WithLabelValues(market, direction).Sub(event.Amount.InexactFloat64())
	case core.EventFilled:
		c.deposited.WithLabelValues(market, direction).Sub(event.Amount.InexactFloat64())
		c.filledIn.WithLabelValues(market, direction).Add(event.Amount.InexactFloat64())
		c.filledOut.WithLabelValues(market, direction).Add(event.AmountOut.InexactFloat64())
		c.lastFillAt.WithLabelValues(market, direction).Set(float64(event.Order.TriggerTick))
	case core.EventClaimed:
		c.claimed.WithLabelValues(market, direction).Add(event.Amount.InexactFloat64())
	}
}
