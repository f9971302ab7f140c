package enrich

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/scandelicious/promopilot/store"
)

const (
	// Below this many classified items the profile is considered sparse and
	// category-level interests are appended.
	minItemsBeforeCategoryFallback = 5
	maxCategoryItems               = 3
)

type categoryAggregate struct {
	category   string
	totalSpend float64
	totalUnits int
	trips      map[string]struct{}
	dates      []time.Time
}

// appendCategoryFallback adds up to three category-level interest items for
// the top-spend categories not already represented, still subject to the
// global item ceiling.
func appendCategoryFallback(items []*InterestItem, transactions []*store.Transaction, cc *classifyContext) []*InterestItem {
	byCategory := map[string]*categoryAggregate{}
	for _, txn := range transactions {
		cat := txn.GranularCategory
		if cat == "" || cat == CategoryOther || cat == "Discounts" {
			continue
		}
		if txn.IsDeposit || txn.IsDiscount {
			continue
		}
		agg, ok := byCategory[cat]
		if !ok {
			agg = &categoryAggregate{category: cat, trips: map[string]struct{}{}}
			byCategory[cat] = agg
		}
		agg.totalSpend += txn.ItemPrice
		if txn.Quantity > 0 {
			agg.totalUnits += txn.Quantity
		} else {
			agg.totalUnits++
		}
		if txn.ReceiptID != "" {
			agg.trips[txn.ReceiptID] = struct{}{}
		}
		agg.dates = append(agg.dates, txn.Date)
	}

	represented := map[string]struct{}{}
	for _, item := range items {
		represented[item.GranularCategory] = struct{}{}
	}

	sorted := make([]*categoryAggregate, 0, len(byCategory))
	for _, agg := range byCategory {
		sorted = append(sorted, agg)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].totalSpend != sorted[j].totalSpend {
			return sorted[i].totalSpend > sorted[j].totalSpend
		}
		return sorted[i].category < sorted[j].category
	})

	added := 0
	for _, agg := range sorted {
		if len(items) >= MaxInterestItems || added >= maxCategoryItems {
			break
		}
		if _, ok := represented[agg.category]; ok {
			continue
		}
		items = append(items, buildCategoryItem(agg, cc))
		represented[agg.category] = struct{}{}
		added++
	}
	return items
}

func buildCategoryItem(agg *categoryAggregate, cc *classifyContext) *InterestItem {
	tripCount := len(agg.trips)
	if tripCount == 0 {
		tripCount = len(agg.dates)
	}

	var last time.Time
	for _, d := range agg.dates {
		if d.After(last) {
			last = d
		}
	}

	m := Metrics{
		TotalSpend: agg.totalSpend,
		TripCount:  tripCount,
		TotalUnits: agg.totalUnits,
	}
	if agg.totalUnits > 0 {
		v := agg.totalSpend / float64(agg.totalUnits)
		m.AvgUnitPrice = &v
	}
	if tripCount > 0 {
		units := float64(agg.totalUnits) / float64(tripCount)
		m.AvgUnitsPerTrip = &units
		spend := agg.totalSpend / float64(tripCount)
		m.AvgSpendPerTrip = &spend
	}
	if !last.IsZero() {
		m.DaysSinceLast = int(cc.now.Sub(last).Hours() / 24)
	}

	return &InterestItem{
		NormalizedName:   strings.ToLower(agg.category),
		Brands:           []string{},
		GranularCategory: agg.category,
		InterestCategory: BucketCategoryFallback,
		Tags:             []string{"category_level"},
		Reason: fmt.Sprintf(
			"Category-level fallback: no single product stands out, but user spends €%.2f on %s",
			agg.totalSpend, agg.category),
		Metrics:          m,
		LastPurchased:    last,
		CategoryFallback: true,
	}
}
