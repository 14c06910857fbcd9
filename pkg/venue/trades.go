package venue

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTrade = errors.New("invalid trade")

	defaultHeaderMap = map[string]int{
		"time": 0, "sender": 1, "direction": 2, "amount": 3,
	}
)

// Trade is one scripted market order against a pool
type Trade struct {
	Time      time.Time
	Market    core.MarketID
	Sender    core.Address
	Direction core.Direction
	Amount    decimal.Decimal
}

// parseHeaders returns the column index of every field, and whether the first
// line is a header
func parseHeaders(headers []string) (map[string]int, bool) {
	if _, err := strconv.ParseInt(headers[0], 10, 64); err == nil {
		return defaultHeaderMap, false
	}

	headerMap := make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[header] = index
	}
	return headerMap, true
}

// ReadTrades loads the trades of a market from a CSV file with the columns
// time (unix seconds), sender, direction and amount. The header line is optional
// and may reorder the columns.
func ReadTrades(file string, market core.MarketID) ([]Trade, error) {
	csvFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	csvLines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if len(csvLines) == 0 {
		return nil, nil
	}

	headerMap, hasHeader := parseHeaders(csvLines[0])
	if hasHeader {
		csvLines = csvLines[1:]
	}
	for _, column := range []string{"time", "sender", "direction", "amount"} {
		if _, ok := headerMap[column]; !ok {
			return nil, fmt.Errorf("%s: missing column %q: %w", file, column, ErrInvalidTrade)
		}
	}

	trades := make([]Trade, 0, len(csvLines))
	for number, line := range csvLines {
		trade, err := parseTradeFromLine(line, headerMap, market)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", file, number+1, err)
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

func parseTradeFromLine(line []string, headerMap map[string]int, market core.MarketID) (Trade, error) {
	timestamp, err := strconv.ParseInt(line[headerMap["time"]], 10, 64)
	if err != nil {
		return Trade{}, err
	}

	direction, ok := core.ParseDirection(line[headerMap["direction"]])
	if !ok {
		return Trade{}, fmt.Errorf("direction %q: %w", line[headerMap["direction"]], ErrInvalidTrade)
	}

	amount, err := decimal.NewFromString(line[headerMap["amount"]])
	if err != nil {
		return Trade{}, err
	}
	if !amount.IsPositive() {
		return Trade{}, fmt.Errorf("amount %s: %w", amount, ErrInvalidTrade)
	}

	return Trade{
		Time:      time.Unix(timestamp, 0).UTC(),
		Market:    market,
		Sender:    core.Address(line[headerMap["sender"]]),
		Direction: direction,
		Amount:    amount.Truncate(0),
	}, nil
}

// LimitTrades keeps the trades of the last duration before the final trade
func LimitTrades(trades []Trade, duration time.Duration) []Trade {
	if len(trades) == 0 {
		return trades
	}

	start := trades[len(trades)-1].Time.Add(-duration)
	return lo.Filter(trades, func(trade Trade, _ int) bool {
		return trade.Time.After(start)
	})
}

// RandomTrades generates a random walk of count trades over a market, sent by
// the given traders, each of at most maxAmount.
func RandomTrades(rng *rand.Rand, market core.MarketID, traders []core.Address, count int,
	maxAmount int64, start time.Time, interval time.Duration) []Trade {

	if len(traders) == 0 || maxAmount <= 0 {
		return nil
	}

	trades := make([]Trade, 0, count)
	for i := 0; i < count; i++ {
		trades = append(trades, Trade{
			Time:      start.Add(time.Duration(i) * interval),
			Market:    market,
			Sender:    traders[rng.Intn(len(traders))],
			Direction: core.Directions[rng.Intn(len(core.Directions))],
			Amount:    decimal.NewFromInt(1 + rng.Int63n(maxAmount)),
		})
	}
	return trades
}

// Execute sends the trade with a price limit at the far end of the range.
func (p *PaperVenue) Execute(ctx context.Context, trade Trade) (decimal.Decimal, error) {
	limit := core.MaxTick
	if trade.Direction == core.ZeroForOne {
		limit = core.MinTick
	}
	return p.ExecuteExactInput(ctx, trade.Sender, trade.Market, trade.Direction, trade.Amount, limit)
}
