package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL connection shared by the transaction source and
// the promo index. The pool is the only shared resource across concurrent
// interest-item workers, so it is sized to the worker limit.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	db.SetMaxOpenConns(profile.WorkerLimit + 2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_catalog = current_database() AND table_name = 'promo' AND table_type = 'BASE TABLE')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// placeholder returns the n-th positional parameter, e.g. $3.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n comma-separated positional parameters, e.g. $1, $2, $3.
func placeholders(n int) string {
	list := []string{}
	for i := 1; i <= n; i++ {
		list = append(list, placeholder(i))
	}
	return strings.Join(list, ", ")
}
