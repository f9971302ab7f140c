package store

import (
	"context"
	"time"
)

// Promo is a promotional offer extracted from a retailer folder and indexed
// for semantic search.
type Promo struct {
	ID                  string // UUID assigned at ingest
	NormalizedName      string
	OriginalDescription string
	Brand               string
	GranularCategory    string
	ParentCategory      string
	OriginalPrice       *float64
	PromoPrice          *float64
	PromoMechanism      string // e.g. "1+1 Gratis", "-30%"
	UnitInfo            string
	ValidityStart       *time.Time
	ValidityEnd         *time.Time
	SourceRetailer      string
	PageNumber          *int
	FolderURL           string

	// Embedding is the vector for SearchText under EmbeddingModel.
	Embedding      []float32
	EmbeddingModel string
}

// SearchText is the canonical text representation of a promo: the clean
// product name paired with the descriptive offer text. It is embedded at
// ingest and fed to the reranker as the document side, so it must stay stable
// across promotions for scores to be comparable.
func (p *Promo) SearchText() string {
	if p.OriginalDescription == "" {
		return p.NormalizedName
	}
	return p.NormalizedName + ". " + p.OriginalDescription
}

// PromoWithScore is a vector search hit with its similarity score.
type PromoWithScore struct {
	Promo *Promo
	Score float64 // cosine similarity, higher is more similar
}

// SearchPromoOptions are the options for vector search over the promo index.
type SearchPromoOptions struct {
	Vector           []float32
	Model            string
	Limit            int
	GranularCategory *string    // exact-match metadata filter, nil = unfiltered
	ActiveOn         *time.Time // only promos still valid on this date
}

// UpsertPromo inserts or updates a promo record with its embedding.
func (s *Store) UpsertPromo(ctx context.Context, upsert *Promo) (*Promo, error) {
	return s.driver.UpsertPromo(ctx, upsert)
}

// SearchPromosByVector performs cosine similarity search over the promo index.
func (s *Store) SearchPromosByVector(ctx context.Context, opts *SearchPromoOptions) ([]*PromoWithScore, error) {
	return s.driver.SearchPromosByVector(ctx, opts)
}

// DeleteExpiredPromos removes promos whose validity ended before the cutoff.
func (s *Store) DeleteExpiredPromos(ctx context.Context, before time.Time) (int64, error) {
	return s.driver.DeleteExpiredPromos(ctx, before)
}
