package enrich

import (
	"sort"

	"github.com/scandelicious/promopilot/store"
)

const (
	maxPreferredStores = 10
	maxTopCategories   = 15
)

// buildHabits summarizes the whole transaction window into aggregate shopping
// habits. Always returns a non-nil value.
func buildHabits(transactions []*store.Transaction, weeks float64) *ShoppingHabits {
	habits := &ShoppingHabits{
		PreferredStores:       []StoreStat{},
		TopGranularCategories: []string{},
	}

	trips := map[string]struct{}{}
	storeSpend := map[string]float64{}
	storeTrips := map[string]map[string]struct{}{}
	categorySpend := map[string]float64{}
	healthSum, healthCount := 0, 0
	brandedCount, premiumCount := 0, 0

	for _, txn := range transactions {
		if txn.IsDeposit {
			continue
		}
		habits.TotalSpend += txn.ItemPrice
		if txn.ReceiptID != "" {
			trips[txn.ReceiptID] = struct{}{}
		}
		if txn.StoreName != "" {
			storeSpend[txn.StoreName] += txn.ItemPrice
			if txn.ReceiptID != "" {
				if storeTrips[txn.StoreName] == nil {
					storeTrips[txn.StoreName] = map[string]struct{}{}
				}
				storeTrips[txn.StoreName][txn.ReceiptID] = struct{}{}
			}
		}
		if txn.IsDiscount {
			continue
		}
		if cat := txn.GranularCategory; cat != "" && cat != CategoryOther && cat != "Discounts" {
			categorySpend[cat] += txn.ItemPrice
		}
		if txn.HealthScore != nil {
			healthSum += *txn.HealthScore
			healthCount++
		}
		if txn.NormalizedBrand != "" {
			brandedCount++
			if txn.IsPremium {
				premiumCount++
			}
		}
	}

	habits.TripCount = len(trips)
	if habits.TripCount > 0 {
		habits.AvgTripTotal = habits.TotalSpend / float64(habits.TripCount)
	}
	if weeks > 0 {
		habits.FrequencyPerWeek = float64(habits.TripCount) / weeks
	}
	if healthCount > 0 {
		avg := float64(healthSum) / float64(healthCount)
		habits.AvgHealthScore = &avg
	}
	if brandedCount > 0 {
		habits.PremiumBrandRatio = float64(premiumCount) / float64(brandedCount)
	}

	habits.PreferredStores = rankStores(storeSpend, storeTrips, habits.TotalSpend)
	habits.TopGranularCategories = rankCategories(categorySpend)

	return habits
}

func rankStores(spend map[string]float64, trips map[string]map[string]struct{}, total float64) []StoreStat {
	stats := make([]StoreStat, 0, len(spend))
	for name, s := range spend {
		stat := StoreStat{Name: name, Spend: s, Visits: len(trips[name])}
		if total > 0 {
			stat.Pct = s / total
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Spend != stats[j].Spend {
			return stats[i].Spend > stats[j].Spend
		}
		return stats[i].Name < stats[j].Name
	})
	if len(stats) > maxPreferredStores {
		stats = stats[:maxPreferredStores]
	}
	return stats
}

func rankCategories(spend map[string]float64) []string {
	type catSpend struct {
		name  string
		spend float64
	}
	ranked := make([]catSpend, 0, len(spend))
	for name, s := range spend {
		ranked = append(ranked, catSpend{name, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].spend != ranked[j].spend {
			return ranked[i].spend > ranked[j].spend
		}
		return ranked[i].name < ranked[j].name
	})
	names := make([]string, 0, len(ranked))
	for _, c := range ranked {
		if len(names) >= maxTopCategories {
			break
		}
		names = append(names, c.name)
	}
	return names
}
