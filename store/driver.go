package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Transaction model related methods.
	ListTransactions(ctx context.Context, find *FindTransaction) ([]*Transaction, error)

	// Promo model related methods.
	UpsertPromo(ctx context.Context, upsert *Promo) (*Promo, error)
	SearchPromosByVector(ctx context.Context, opts *SearchPromoOptions) ([]*PromoWithScore, error)
	DeleteExpiredPromos(ctx context.Context, before time.Time) (int64, error)
}
