package enrich

import (
	"fmt"
	"sort"
	"time"
)

// classifyContext carries cross-item statistics needed by rules and tags.
type classifyContext struct {
	now         time.Time
	weeks       float64
	totalTrips  int     // distinct trips in the whole window
	medianPrice float64 // median item price in the window
}

// bucketRule is one classification rule. Rules form an explicit
// priority-ordered list; an aggregate may qualify for several buckets, and
// the first bucket that allocates it keeps it.
type bucketRule struct {
	bucket   Bucket
	maxSlots int
	// qualifies reports whether the aggregate belongs in this bucket.
	qualifies func(cc *classifyContext, a *PurchaseAggregate) bool
	// rank orders qualifying aggregates within the bucket, higher first.
	rank func(cc *classifyContext, a *PurchaseAggregate) float64
	// reason renders the human-readable context string. pos is the
	// aggregate's zero-based allocation position within the bucket.
	reason func(cc *classifyContext, a *PurchaseAggregate, pos int) string
}

// bucketRules is the fixed priority order. Slot constants sum past the
// 25-item ceiling, which is enforced independently as a hard cap.
var bucketRules = []bucketRule{
	{
		bucket:   BucketStaple,
		maxSlots: 8,
		qualifies: func(cc *classifyContext, a *PurchaseAggregate) bool {
			return a.TripFrequencyPerWeek(cc.weeks) >= 0.5 && a.UniqueTripCount() >= 3
		},
		rank: func(cc *classifyContext, a *PurchaseAggregate) float64 {
			return a.TripFrequencyPerWeek(cc.weeks)
		},
		reason: func(cc *classifyContext, a *PurchaseAggregate, _ int) string {
			return fmt.Sprintf("Bought frequently (%.1fx/week)", a.TripFrequencyPerWeek(cc.weeks))
		},
	},
	{
		bucket:   BucketHighSpend,
		maxSlots: 6,
		qualifies: func(_ *classifyContext, a *PurchaseAggregate) bool {
			return a.UniqueTripCount() >= 2
		},
		rank: func(_ *classifyContext, a *PurchaseAggregate) float64 {
			return a.TotalSpend
		},
		reason: func(_ *classifyContext, _ *PurchaseAggregate, pos int) string {
			return fmt.Sprintf("Top %d by total spend in your history", pos+1)
		},
	},
	{
		bucket:   BucketBrandLoyal,
		maxSlots: 4,
		qualifies: func(_ *classifyContext, a *PurchaseAggregate) bool {
			_, share := a.DominantBrand()
			return share >= 0.8 && a.UniqueTripCount() >= 2
		},
		rank: func(_ *classifyContext, a *PurchaseAggregate) float64 {
			return float64(a.UniqueTripCount())
		},
		reason: func(_ *classifyContext, a *PurchaseAggregate, _ int) string {
			brand, _ := a.DominantBrand()
			return fmt.Sprintf("Consistently buy same brand (%s)", brand)
		},
	},
	{
		bucket:   BucketHealthPick,
		maxSlots: 4,
		qualifies: func(_ *classifyContext, a *PurchaseAggregate) bool {
			score, ok := a.AvgHealthScore()
			return ok && score >= 4 && a.UniqueTripCount() >= 3
		},
		rank: func(_ *classifyContext, a *PurchaseAggregate) float64 {
			score, _ := a.AvgHealthScore()
			return score
		},
		reason: func(_ *classifyContext, a *PurchaseAggregate, _ int) string {
			score, _ := a.AvgHealthScore()
			return fmt.Sprintf("Healthy choice (health score %.1f/5)", score)
		},
	},
	{
		bucket:   BucketOccasionalTreat,
		maxSlots: 3,
		qualifies: func(_ *classifyContext, a *PurchaseAggregate) bool {
			score, ok := a.AvgHealthScore()
			return ok && score <= 2 && a.UniqueTripCount() >= 2
		},
		rank: func(_ *classifyContext, a *PurchaseAggregate) float64 {
			return float64(a.UniqueTripCount())
		},
		reason: func(_ *classifyContext, _ *PurchaseAggregate, _ int) string {
			return "Indulgence item you enjoy periodically"
		},
	},
	{
		bucket:   BucketBulkBuy,
		maxSlots: 3,
		qualifies: func(_ *classifyContext, a *PurchaseAggregate) bool {
			return a.AvgUnitsPerTrip() >= 2 && a.UniqueTripCount() >= 2
		},
		rank: func(_ *classifyContext, a *PurchaseAggregate) float64 {
			return a.AvgUnitsPerTrip()
		},
		reason: func(_ *classifyContext, a *PurchaseAggregate, _ int) string {
			return fmt.Sprintf("Often bought in bulk (%.1f units/trip)", a.AvgUnitsPerTrip())
		},
	},
}

// classify turns purchase aggregates into the bounded interest item list.
//
// Each rule keeps its full ranked list of qualifying aggregates; dedup
// happens at allocation time through the assigned set, so first bucket wins
// means the lowest-numbered bucket that actually allocates a name keeps it.
// Allocation runs in two passes: pass 1 grants every non-empty bucket its
// single best unassigned item before any bucket fills up, so no bucket is
// starved by a broader rule ahead of it; pass 2 fills each bucket up to its
// slot constant. Aggregates no bucket allocates are dropped. The 25-item
// ceiling is enforced strictly — allocation stops the instant the 25th item
// is added, even mid-bucket.
func classify(aggregates map[string]*PurchaseAggregate, cc *classifyContext) []*InterestItem {
	names := make([]string, 0, len(aggregates))
	for name := range aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	// Rank within each bucket by its metric desc, then recency, then name.
	candidates := make([][]*PurchaseAggregate, len(bucketRules))
	for i := range bucketRules {
		rule := &bucketRules[i]
		pool := []*PurchaseAggregate{}
		for _, name := range names {
			if a := aggregates[name]; rule.qualifies(cc, a) {
				pool = append(pool, a)
			}
		}
		sort.SliceStable(pool, func(x, y int) bool {
			rx, ry := rule.rank(cc, pool[x]), rule.rank(cc, pool[y])
			if rx != ry {
				return rx > ry
			}
			lx, ly := pool[x].LastPurchased(), pool[y].LastPurchased()
			if !lx.Equal(ly) {
				return lx.After(ly)
			}
			return pool[x].NormalizedName < pool[y].NormalizedName
		})
		candidates[i] = pool
	}

	items := []*InterestItem{}
	assigned := map[string]struct{}{}
	taken := make([]int, len(bucketRules)) // items allocated per bucket

	appendFrom := func(bucket int, limit int) {
		rule := &bucketRules[bucket]
		for _, a := range candidates[bucket] {
			if taken[bucket] >= limit || len(items) >= MaxInterestItems {
				return
			}
			if _, ok := assigned[a.NormalizedName]; ok {
				continue
			}
			assigned[a.NormalizedName] = struct{}{}
			items = append(items, buildItem(cc, a, rule.bucket, rule.reason(cc, a, taken[bucket])))
			taken[bucket]++
		}
	}

	// Pass 1: one item per non-empty bucket, across all buckets first.
	for i := range bucketRules {
		appendFrom(i, 1)
	}
	// Pass 2: fill remaining slots up to each bucket's cap.
	for i := range bucketRules {
		appendFrom(i, bucketRules[i].maxSlots)
	}

	return items
}

func buildItem(cc *classifyContext, a *PurchaseAggregate, bucket Bucket, reason string) *InterestItem {
	return &InterestItem{
		NormalizedName:   a.NormalizedName,
		Brands:           a.BrandList(),
		GranularCategory: a.GranularCategory,
		InterestCategory: bucket,
		Tags:             computeTags(cc, a),
		Reason:           reason,
		Metrics:          computeMetrics(cc, a),
		LastPurchased:    a.LastPurchased(),
	}
}
