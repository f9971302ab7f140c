package store

import (
	"context"
	"time"
)

// Transaction is a single line item from a scanned receipt. Transactions are
// written by the receipt processing pipeline; this core only reads them.
type Transaction struct {
	ID               int64
	UserID           string
	ReceiptID        string // trip identifier; one receipt = one shopping trip
	Date             time.Time
	StoreName        string
	ItemName         string
	NormalizedName   string
	NormalizedBrand  string
	Category         string
	GranularCategory string
	Quantity         int
	ItemPrice        float64
	HealthScore      *int // 1-5 scale, nil when unscored
	IsDiscount       bool
	IsDeposit        bool
	IsPremium        bool
}

// FindTransaction is the find condition for transactions.
type FindTransaction struct {
	UserID string
	Since  *time.Time
}

// ListTransactions lists transactions for a user, newest window first.
func (s *Store) ListTransactions(ctx context.Context, find *FindTransaction) ([]*Transaction, error) {
	return s.driver.ListTransactions(ctx, find)
}
