package storage

import (
	"fmt"
	"time"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStorage implements the core.OrderStorage interface using a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// FromSQL creates a new SQL storage instance
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&core.Market{}, &core.Order{})
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{
		db: db,
	}, nil
}

// SaveMarket inserts or replaces a market
func (s *SQLStorage) SaveMarket(market core.Market) error {
	result := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&market)
	if result.Error != nil {
		return fmt.Errorf("failed to save market %s: %w", market.ID, result.Error)
	}
	return nil
}

// Markets returns every stored market ordered by id
func (s *SQLStorage) Markets() ([]core.Market, error) {
	var markets []core.Market

	result := s.db.Order("id").Find(&markets)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", result.Error)
	}
	return markets, nil
}

// SaveOrder inserts or replaces an order record
func (s *SQLStorage) SaveOrder(order core.Order) error {
	if order.ID == 0 {
		return fmt.Errorf("storing order without id: %w", core.ErrUnknownOrder)
	}

	result := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&order)
	if result.Error != nil {
		return fmt.Errorf("failed to save order %d: %w", order.ID, result.Error)
	}
	return nil
}

// Orders retrieves orders ordered by id, keeping those that pass every filter
func (s *SQLStorage) Orders(filters ...core.OrderFilter) ([]core.Order, error) {
	return s.OrdersWithQuery(func(db *gorm.DB) *gorm.DB { return db }, filters...)
}

// OrdersWithQuery narrows the lookup with GORM's query builder before the
// in-memory filters run
func (s *SQLStorage) OrdersWithQuery(query func(*gorm.DB) *gorm.DB, filters ...core.OrderFilter) ([]core.Order, error) {
	var orders []core.Order

	result := query(s.db).Order("id").Find(&orders)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", result.Error)
	}

	return lo.Filter(orders, func(order core.Order, _ int) bool {
		for _, filter := range filters {
			if !filter(order) {
				return false
			}
		}
		return true
	}), nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
