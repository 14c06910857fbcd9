package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/tidwall/buntdb"
)

const (
	marketPrefix = "market:"
	orderPrefix  = "order:"
)

// BuntStorage implements the core.OrderStorage interface using BuntDB
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	indexes := []struct {
		name, pattern, field string
	}{
		{"order_index", orderPrefix + "*", "id"},
		{"update_index", orderPrefix + "*", "updated_at"},
		{"market_index", marketPrefix + "*", "id"},
	}
	for _, index := range indexes {
		if err := db.CreateIndex(index.name, index.pattern, buntdb.IndexJSON(index.field)); err != nil &&
			!errors.Is(err, buntdb.ErrIndexExists) {
			return nil, fmt.Errorf("failed to create index %s: %w", index.name, err)
		}
	}

	return &BuntStorage{
		db: db,
	}, nil
}

func orderKey(id core.OrderID) string {
	return fmt.Sprintf("%s%d", orderPrefix, id)
}

func (b *BuntStorage) set(key string, value any) error {
	content, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(key, string(content), nil); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil
	})
}

// SaveMarket inserts or replaces a market
func (b *BuntStorage) SaveMarket(market core.Market) error {
	return b.set(marketPrefix+string(market.ID), market)
}

// Markets returns every stored market ordered by id
func (b *BuntStorage) Markets() ([]core.Market, error) {
	markets := make([]core.Market, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("market_index", func(key, value string) bool {
			var market core.Market
			if err := json.Unmarshal([]byte(value), &market); err != nil {
				log.Printf("Failed to unmarshal %s: %v", key, err)
				return true
			}
			markets = append(markets, market)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over markets: %w", err)
	}

	return markets, nil
}

// SaveOrder inserts or replaces an order record
func (b *BuntStorage) SaveOrder(order core.Order) error {
	if order.ID == 0 {
		return fmt.Errorf("storing order without id: %w", core.ErrUnknownOrder)
	}
	return b.set(orderKey(order.ID), order)
}

// Orders retrieves orders ordered by id, keeping those that pass every filter
func (b *BuntStorage) Orders(filters ...core.OrderFilter) ([]core.Order, error) {
	return b.scan("order_index", filters)
}

// RecentOrders retrieves orders from the most recently updated one backwards
func (b *BuntStorage) RecentOrders(limit int, filters ...core.OrderFilter) ([]core.Order, error) {
	orders := make([]core.Order, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("update_index", func(key, value string) bool {
			order, ok := decodeOrder(key, value, filters)
			if ok {
				orders = append(orders, order)
			}
			return limit <= 0 || len(orders) < limit
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over orders: %w", err)
	}

	return orders, nil
}

func (b *BuntStorage) scan(index string, filters []core.OrderFilter) ([]core.Order, error) {
	orders := make([]core.Order, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(index, func(key, value string) bool {
			if order, ok := decodeOrder(key, value, filters); ok {
				orders = append(orders, order)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over orders: %w", err)
	}

	return orders, nil
}

func decodeOrder(key, value string, filters []core.OrderFilter) (core.Order, bool) {
	var order core.Order
	if err := json.Unmarshal([]byte(value), &order); err != nil {
		log.Printf("Failed to unmarshal %s: %v", key, err)
		return order, false
	}

	for _, filter := range filters {
		if !filter(order) {
			return order, false
		}
	}
	return order, true
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
