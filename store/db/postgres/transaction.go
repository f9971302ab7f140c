package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/store"
)

// ListTransactions lists receipt line items for a user.
func (d *DB) ListTransactions(ctx context.Context, find *store.FindTransaction) ([]*store.Transaction, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != "" {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, find.UserID)
	}
	if find.Since != nil {
		where, args = append(where, "date >= "+placeholder(len(args)+1)), append(args, *find.Since)
	}

	query := `
		SELECT id, user_id, receipt_id, date, store_name,
			item_name, normalized_name, normalized_brand,
			category, granular_category,
			quantity, item_price, health_score,
			is_discount, is_deposit, is_premium
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, id DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}
	defer rows.Close()

	list := []*store.Transaction{}
	for rows.Next() {
		var txn store.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.ReceiptID,
			&txn.Date,
			&txn.StoreName,
			&txn.ItemName,
			&txn.NormalizedName,
			&txn.NormalizedBrand,
			&txn.Category,
			&txn.GranularCategory,
			&txn.Quantity,
			&txn.ItemPrice,
			&txn.HealthScore,
			&txn.IsDiscount,
			&txn.IsDeposit,
			&txn.IsPremium,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction")
		}
		list = append(list, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
