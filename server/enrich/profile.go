package enrich

import "time"

// CategoryOther is the sentinel granular category for utility items that
// should never drive promo search.
const CategoryOther = "Other"

// MaxInterestItems is the hard ceiling on interest items per profile,
// enforced across all buckets.
const MaxInterestItems = 25

// Bucket is a fixed interest classification with its own qualification rule
// and slot quota.
type Bucket string

const (
	BucketStaple          Bucket = "staple"
	BucketHighSpend       Bucket = "high_spend"
	BucketBrandLoyal      Bucket = "brand_loyal"
	BucketHealthPick      Bucket = "health_pick"
	BucketOccasionalTreat Bucket = "occasional_treat"
	BucketBulkBuy         Bucket = "bulk_buy"

	// BucketCategoryFallback marks category-level items appended for sparse
	// profiles; it is not part of the classification rules.
	BucketCategoryFallback Bucket = "category_fallback"
)

// Metrics summarizes a user's purchase history for one interest item. Nil
// pointer fields mean insufficient data to calculate.
type Metrics struct {
	TotalSpend      float64  `json:"total_spend"`
	TripCount       int      `json:"trip_count"`
	TotalUnits      int      `json:"total_units"`
	AvgUnitPrice    *float64 `json:"avg_unit_price"`
	AvgUnitsPerTrip *float64 `json:"avg_units_per_trip"`
	AvgSpendPerTrip *float64 `json:"avg_spend_per_trip"`
	PurchaseGapDays *float64 `json:"purchase_frequency_days"`
	DaysSinceLast   int      `json:"days_since_last_purchase"`
	// RestockUrgency is days-since-last / purchase gap: >1 means overdue.
	RestockUrgency *float64 `json:"restock_urgency"`
}

// InterestItem is a single normalized product the user appears interested in,
// tagged with the bucket that explains why. Items are immutable once the
// profile is built.
type InterestItem struct {
	NormalizedName   string   `json:"normalized_name"`
	Brands           []string `json:"brands"`
	GranularCategory string   `json:"granular_category"`
	InterestCategory Bucket   `json:"interest_category"`
	Tags             []string `json:"tags"`
	Reason           string   `json:"interest_reason"`
	Metrics          Metrics  `json:"metrics"`
	LastPurchased    time.Time `json:"last_purchased"`
	CategoryFallback bool     `json:"is_category_fallback,omitempty"`
}

// StoreStat is one store's share of the user's spend.
type StoreStat struct {
	Name   string  `json:"name"`
	Spend  float64 `json:"spend"`
	Pct    float64 `json:"pct"`
	Visits int     `json:"visits"`
}

// ShoppingHabits is the aggregate summary of the user's window, consumed by
// the recommendation assembler for LLM context.
type ShoppingHabits struct {
	TotalSpend            float64     `json:"total_spend"`
	TripCount             int         `json:"trip_count"`
	AvgTripTotal          float64     `json:"avg_trip_total"`
	FrequencyPerWeek      float64     `json:"shopping_frequency_per_week"`
	PreferredStores       []StoreStat `json:"preferred_stores"`
	AvgHealthScore        *float64    `json:"avg_health_score"`
	PremiumBrandRatio     float64     `json:"premium_brand_ratio"`
	TopGranularCategories []string    `json:"top_granular_categories"`
}

// EnrichedProfile is the bounded, deduplicated, slot-allocated list of
// interest items for one user, plus the habits summary.
type EnrichedProfile struct {
	UserID      string          `json:"user_id"`
	Items       []*InterestItem `json:"promo_interest_items"`
	Habits      *ShoppingHabits `json:"shopping_habits"`
	PeriodStart time.Time       `json:"data_period_start"`
	PeriodEnd   time.Time       `json:"data_period_end"`
}
