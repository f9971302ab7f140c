package enrich

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/store"
)

// Enricher builds enriched profiles from raw transaction history.
type Enricher struct {
	store        *store.Store
	lookbackDays int
	now          func() time.Time
}

// NewEnricher creates a profile enricher over the given store.
func NewEnricher(st *store.Store, lookbackDays int) *Enricher {
	return &Enricher{
		store:        st,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// BuildProfile computes the enriched profile for a user from the rolling
// transaction window. An empty window yields an empty profile, not an error.
func (e *Enricher) BuildProfile(ctx context.Context, userID string) (*EnrichedProfile, error) {
	now := e.now()
	since := now.AddDate(0, 0, -e.lookbackDays)

	transactions, err := e.store.ListTransactions(ctx, &store.FindTransaction{
		UserID: userID,
		Since:  &since,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch transactions for user %s", userID)
	}

	profile := &EnrichedProfile{
		UserID:      userID,
		Items:       []*InterestItem{},
		PeriodStart: since,
		PeriodEnd:   now,
	}
	if len(transactions) == 0 {
		slog.Info("no transactions in window", "user", userID, "since", since)
		profile.Habits = &ShoppingHabits{PreferredStores: []StoreStat{}, TopGranularCategories: []string{}}
		return profile, nil
	}

	weeks := float64(e.lookbackDays) / 7
	if weeks < 1 {
		weeks = 1
	}

	cc := &classifyContext{
		now:         now,
		weeks:       weeks,
		totalTrips:  countTrips(transactions),
		medianPrice: medianItemPrice(transactions),
	}

	aggregates := BuildAggregates(transactions)
	profile.Items = classify(aggregates, cc)

	// Sparse item-level data: fall back to category-level interests so users
	// with few receipts still get relevant matches.
	if len(profile.Items) < minItemsBeforeCategoryFallback {
		profile.Items = appendCategoryFallback(profile.Items, transactions, cc)
	}

	profile.Habits = buildHabits(transactions, weeks)

	first, last := transactions[len(transactions)-1].Date, transactions[0].Date
	for _, txn := range transactions {
		if txn.Date.Before(first) {
			first = txn.Date
		}
		if txn.Date.After(last) {
			last = txn.Date
		}
	}
	profile.PeriodStart, profile.PeriodEnd = first, last

	slog.Info("enriched profile built",
		"user", userID,
		"transactions", len(transactions),
		"aggregates", len(aggregates),
		"items", len(profile.Items))

	return profile, nil
}

func countTrips(transactions []*store.Transaction) int {
	trips := map[string]struct{}{}
	for _, txn := range transactions {
		if txn.ReceiptID != "" {
			trips[txn.ReceiptID] = struct{}{}
		}
	}
	return len(trips)
}

func medianItemPrice(transactions []*store.Transaction) float64 {
	prices := []float64{}
	for _, txn := range transactions {
		if txn.IsDeposit || txn.IsDiscount || txn.ItemPrice <= 0 {
			continue
		}
		prices = append(prices, txn.ItemPrice)
	}
	if len(prices) == 0 {
		return 0
	}
	sort.Float64s(prices)
	return prices[len(prices)/2]
}
