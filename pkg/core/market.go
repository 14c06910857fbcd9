package core

import "time"

// MarketID identifies a venue instance (a pool).
type MarketID string

// Asset identifies a token.
type Asset string

// Address identifies an account: depositors, the engine itself, the venue.
type Address string

// Market is the per-venue context threaded through every engine operation.
type Market struct {
	ID              MarketID  `json:"id" gorm:"primaryKey"`
	Token0          Asset     `json:"token0"`
	Token1          Asset     `json:"token1"`
	TickSpacing     int64     `json:"tick_spacing"`
	LastTrackedTick int64     `json:"last_tracked_tick"`
	UpdatedAt       time.Time `json:"updated_at"`
}
