package enrich

import (
	"sort"
	"strings"
	"time"

	"github.com/scandelicious/promopilot/store"
)

// PurchaseAggregate collects per-product statistics over one user's
// transaction window. Aggregates are computed fresh per request and never
// persisted; the profile shifts continuously with the rolling window.
type PurchaseAggregate struct {
	NormalizedName   string
	GranularCategory string
	Brands           map[string]int // brand -> purchase count
	StoreNames       map[string]int
	PurchaseCount    int
	TotalSpend       float64
	TotalQuantity    int
	PremiumCount     int
	Dates            []time.Time

	trips       map[string]struct{}
	healthSum   int
	healthCount int
}

func newPurchaseAggregate(name string) *PurchaseAggregate {
	return &PurchaseAggregate{
		NormalizedName: name,
		Brands:         map[string]int{},
		StoreNames:     map[string]int{},
		trips:          map[string]struct{}{},
	}
}

func (a *PurchaseAggregate) add(txn *store.Transaction) {
	a.PurchaseCount++
	a.TotalSpend += txn.ItemPrice
	if txn.Quantity > 0 {
		a.TotalQuantity += txn.Quantity
	} else {
		a.TotalQuantity++
	}
	if txn.ReceiptID != "" {
		a.trips[txn.ReceiptID] = struct{}{}
	}
	if txn.NormalizedBrand != "" {
		a.Brands[txn.NormalizedBrand]++
	}
	if txn.StoreName != "" {
		a.StoreNames[txn.StoreName]++
	}
	if txn.IsPremium {
		a.PremiumCount++
	}
	if txn.HealthScore != nil {
		a.healthSum += *txn.HealthScore
		a.healthCount++
	}
	if a.GranularCategory == "" {
		a.GranularCategory = txn.GranularCategory
	}
	a.Dates = append(a.Dates, txn.Date)
}

// UniqueTripCount returns the number of distinct shopping trips the product
// appeared on. Falls back to the purchase count when receipts are untracked.
func (a *PurchaseAggregate) UniqueTripCount() int {
	if len(a.trips) > 0 {
		return len(a.trips)
	}
	return a.PurchaseCount
}

// AvgHealthScore returns the mean health score, or false when unscored.
func (a *PurchaseAggregate) AvgHealthScore() (float64, bool) {
	if a.healthCount == 0 {
		return 0, false
	}
	return float64(a.healthSum) / float64(a.healthCount), true
}

// DominantBrand returns the most purchased brand and its share of branded
// purchases.
func (a *PurchaseAggregate) DominantBrand() (string, float64) {
	if len(a.Brands) == 0 || a.PurchaseCount == 0 {
		return "", 0
	}
	top, topCount := "", 0
	for brand, count := range a.Brands {
		if count > topCount || (count == topCount && brand < top) {
			top, topCount = brand, count
		}
	}
	return top, float64(topCount) / float64(a.PurchaseCount)
}

// BrandList returns the brands seen for this product, sorted.
func (a *PurchaseAggregate) BrandList() []string {
	brands := make([]string, 0, len(a.Brands))
	for brand := range a.Brands {
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	return brands
}

// TripFrequencyPerWeek returns trips per week over the window.
func (a *PurchaseAggregate) TripFrequencyPerWeek(weeks float64) float64 {
	if weeks <= 0 {
		return 0
	}
	return float64(a.UniqueTripCount()) / weeks
}

// AvgUnitsPerTrip returns the average quantity bought per trip.
func (a *PurchaseAggregate) AvgUnitsPerTrip() float64 {
	trips := a.UniqueTripCount()
	if trips == 0 {
		return 0
	}
	return float64(a.TotalQuantity) / float64(trips)
}

// LastPurchased returns the most recent purchase date.
func (a *PurchaseAggregate) LastPurchased() time.Time {
	var last time.Time
	for _, d := range a.Dates {
		if d.After(last) {
			last = d
		}
	}
	return last
}

// sortedUniqueDates returns the distinct purchase dates in ascending order.
func (a *PurchaseAggregate) sortedUniqueDates() []time.Time {
	seen := map[time.Time]struct{}{}
	dates := []time.Time{}
	for _, d := range a.Dates {
		day := d.Truncate(24 * time.Hour)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// AvgGapDays returns the mean number of days between purchases, or false when
// there are fewer than two distinct purchase dates.
func (a *PurchaseAggregate) AvgGapDays() (float64, bool) {
	dates := a.sortedUniqueDates()
	if len(dates) < 2 {
		return 0, false
	}
	total := 0.0
	for i := 1; i < len(dates); i++ {
		total += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	return total / float64(len(dates)-1), true
}

// BuildAggregates groups transactions by normalized product name. Deposits,
// discounts, and items without a usable granular category are skipped: they
// are not products the user chose, and "Other" items (carrier bags and the
// like) produce garbage promo search results.
func BuildAggregates(transactions []*store.Transaction) map[string]*PurchaseAggregate {
	aggregates := map[string]*PurchaseAggregate{}
	for _, txn := range transactions {
		name := txn.NormalizedName
		if name == "" {
			name = txn.ItemName
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if txn.IsDeposit || txn.IsDiscount {
			continue
		}
		if txn.GranularCategory == "" || txn.GranularCategory == CategoryOther {
			continue
		}

		agg, ok := aggregates[name]
		if !ok {
			agg = newPurchaseAggregate(name)
			aggregates[name] = agg
		}
		agg.add(txn)
	}
	return aggregates
}
