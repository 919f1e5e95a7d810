package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockState classifies product availability.
type StockState string

const (
	StockIn      StockState = "in_stock"
	StockOut     StockState = "out_of_stock"
	StockUnknown StockState = "unknown"
)

// Label returns a human-readable form for chat messages.
func (s StockState) Label() string {
	switch s {
	case StockIn:
		return "In stock"
	case StockOut:
		return "Out of stock"
	default:
		return "Unknown"
	}
}

// Product is a tracked product page.
// LastPrice and LastPromoPrice are invalid until the first successful
// extraction and when the page shows no discounted price, respectively.
type Product struct {
	ID             int64
	URL            string
	OwnerID        int64
	LastPrice      decimal.NullDecimal
	LastPromoPrice decimal.NullDecimal
	LastStock      StockState
	TargetPrice    decimal.Decimal
	CreatedAt      time.Time
}
