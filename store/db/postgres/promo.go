package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/store"
)

// UpsertPromo inserts or updates a promo record with its embedding.
func (d *DB) UpsertPromo(ctx context.Context, upsert *store.Promo) (*store.Promo, error) {
	stmt := `
		INSERT INTO promo (
			id, normalized_name, original_description, brand,
			granular_category, parent_category,
			original_price, promo_price, promo_mechanism, unit_info,
			validity_start, validity_end, source_retailer,
			page_number, folder_url,
			embedding, embedding_model
		)
		VALUES (` + placeholders(17) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			original_price = EXCLUDED.original_price,
			promo_price = EXCLUDED.promo_price,
			promo_mechanism = EXCLUDED.promo_mechanism,
			validity_start = EXCLUDED.validity_start,
			validity_end = EXCLUDED.validity_end,
			embedding = EXCLUDED.embedding,
			embedding_model = EXCLUDED.embedding_model
	`

	vector := pgvector.NewVector(upsert.Embedding)
	_, err := d.db.ExecContext(ctx, stmt,
		upsert.ID,
		upsert.NormalizedName,
		upsert.OriginalDescription,
		upsert.Brand,
		upsert.GranularCategory,
		upsert.ParentCategory,
		upsert.OriginalPrice,
		upsert.PromoPrice,
		upsert.PromoMechanism,
		upsert.UnitInfo,
		upsert.ValidityStart,
		upsert.ValidityEnd,
		upsert.SourceRetailer,
		upsert.PageNumber,
		upsert.FolderURL,
		vector,
		upsert.EmbeddingModel,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert promo")
	}

	return upsert, nil
}

// SearchPromosByVector performs vector similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// results are ordered by distance ASC to get most similar first.
func (d *DB) SearchPromosByVector(ctx context.Context, opts *store.SearchPromoOptions) ([]*store.PromoWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	vector := pgvector.NewVector(opts.Vector)

	where, args := []string{"embedding_model = $1"}, []any{opts.Model}
	if opts.GranularCategory != nil {
		where, args = append(where, "granular_category = "+placeholder(len(args)+1)), append(args, *opts.GranularCategory)
	}
	if opts.ActiveOn != nil {
		where, args = append(where, "(validity_end IS NULL OR validity_end >= "+placeholder(len(args)+1)+")"), append(args, *opts.ActiveOn)
	}

	scoreArg := placeholder(len(args) + 1)
	args = append(args, vector)
	orderArg := placeholder(len(args) + 1)
	args = append(args, vector)
	limitArg := placeholder(len(args) + 1)
	args = append(args, limit)

	query := `
		SELECT
			id, normalized_name, original_description, brand,
			granular_category, parent_category,
			original_price, promo_price, promo_mechanism, unit_info,
			validity_start, validity_end, source_retailer,
			page_number, folder_url,
			1 - (embedding <=> ` + scoreArg + `) AS score
		FROM promo
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + orderArg + `
		LIMIT ` + limitArg

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search promos")
	}
	defer rows.Close()

	results := []*store.PromoWithScore{}
	for rows.Next() {
		var result store.PromoWithScore
		var promo store.Promo
		err := rows.Scan(
			&promo.ID,
			&promo.NormalizedName,
			&promo.OriginalDescription,
			&promo.Brand,
			&promo.GranularCategory,
			&promo.ParentCategory,
			&promo.OriginalPrice,
			&promo.PromoPrice,
			&promo.PromoMechanism,
			&promo.UnitInfo,
			&promo.ValidityStart,
			&promo.ValidityEnd,
			&promo.SourceRetailer,
			&promo.PageNumber,
			&promo.FolderURL,
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan promo search result")
		}
		result.Promo = &promo
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteExpiredPromos removes promos whose validity ended before the cutoff.
func (d *DB) DeleteExpiredPromos(ctx context.Context, before time.Time) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM promo WHERE validity_end IS NOT NULL AND validity_end < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired promos")
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
