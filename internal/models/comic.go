package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Comic struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Title       string
	SeriesTitle string
	Issue       string
	Year        string
	Publisher   string
	Grade       string
	Notes       string
	Image       string

	// Comic is wanted, not owned
	WantList bool

	// Market value snapshot, nil until first refresh
	MarketAverage   *decimal.Decimal
	MarketSales     []Sale
	MarketUpdatedAt *time.Time
}

// Editable comic fields
type ComicInfo struct {
	Title       string
	SeriesTitle string
	Issue       string
	Year        string
	Publisher   string
	Grade       string
	Notes       string
	Image       string
	WantList    bool
}

type Sale struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
}

// Market value snapshot of a comic
type MarketValue struct {
	Average   decimal.Decimal
	Sales     []Sale
	UpdatedAt time.Time
}
