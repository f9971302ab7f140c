package enrich

// Tag vocabulary for interest items. Tags are frequency/health/brand
// descriptors consumed by the recommendation assembler; they never affect
// bucket assignment.
const (
	TagWeekly       = "weekly"
	TagBiweekly     = "biweekly"
	TagPremiumBrand = "premium_brand"
	TagHealthy      = "healthy"
	TagIndulgence   = "indulgence"
	TagBulk         = "bulk"
	TagWeekendBuy   = "weekend_buy"
	TagBasketAnchor = "basket_anchor"
	TagSplurge      = "splurge"
	TagRestockSoon  = "restock_soon"
	TagDeclining    = "declining"
	TagIncreasing   = "increasing"
)

func computeTags(cc *classifyContext, a *PurchaseAggregate) []string {
	tags := []string{}

	freq := a.TripFrequencyPerWeek(cc.weeks)
	if freq >= 1 {
		tags = append(tags, TagWeekly)
	} else if freq >= 0.5 {
		tags = append(tags, TagBiweekly)
	}

	if a.PremiumCount > 0 {
		tags = append(tags, TagPremiumBrand)
	}

	if score, ok := a.AvgHealthScore(); ok {
		if score >= 4 {
			tags = append(tags, TagHealthy)
		}
		if score <= 2 {
			tags = append(tags, TagIndulgence)
		}
	}

	if a.AvgUnitsPerTrip() >= 2 {
		tags = append(tags, TagBulk)
	}

	if len(a.Dates) > 0 {
		weekend := 0
		for _, d := range a.Dates {
			if wd := d.Weekday(); wd == 0 || wd == 6 {
				weekend++
			}
		}
		if float64(weekend)/float64(len(a.Dates)) >= 0.6 {
			tags = append(tags, TagWeekendBuy)
		}
	}

	if cc.totalTrips > 0 && float64(a.UniqueTripCount())/float64(cc.totalTrips) >= 0.7 {
		tags = append(tags, TagBasketAnchor)
	}

	if cc.medianPrice > 0 && a.PurchaseCount > 0 {
		avgPrice := a.TotalSpend / float64(a.PurchaseCount)
		if avgPrice >= cc.medianPrice*2 {
			tags = append(tags, TagSplurge)
		}
	}

	daysSince := cc.now.Sub(a.LastPurchased()).Hours() / 24
	if gap, ok := a.AvgGapDays(); ok && gap > 0 {
		// Approaching the typical repurchase interval.
		if daysSince >= gap*0.8 {
			tags = append(tags, TagRestockSoon)
		}

		// Trend: compare the last two purchase gaps against the overall mean.
		dates := a.sortedUniqueDates()
		if len(dates) >= 4 {
			recent := 0.0
			for i := len(dates) - 2; i < len(dates); i++ {
				recent += dates[i].Sub(dates[i-1]).Hours() / 24
			}
			recent /= 2
			if recent > gap*1.5 {
				tags = append(tags, TagDeclining)
			} else if recent < gap*0.6 {
				tags = append(tags, TagIncreasing)
			}
		}
	}

	return tags
}

func computeMetrics(cc *classifyContext, a *PurchaseAggregate) Metrics {
	m := Metrics{
		TotalSpend: a.TotalSpend,
		TripCount:  a.UniqueTripCount(),
		TotalUnits: a.TotalQuantity,
	}

	if a.TotalQuantity > 0 {
		v := a.TotalSpend / float64(a.TotalQuantity)
		m.AvgUnitPrice = &v
	}
	if trips := a.UniqueTripCount(); trips > 0 {
		units := float64(a.TotalQuantity) / float64(trips)
		m.AvgUnitsPerTrip = &units
		spend := a.TotalSpend / float64(trips)
		m.AvgSpendPerTrip = &spend
	}

	m.DaysSinceLast = int(cc.now.Sub(a.LastPurchased()).Hours() / 24)

	if gap, ok := a.AvgGapDays(); ok {
		m.PurchaseGapDays = &gap
		if gap > 0 {
			urgency := float64(m.DaysSinceLast) / gap
			m.RestockUrgency = &urgency
		}
	}

	return m
}
