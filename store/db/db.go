package db

import (
	"github.com/pkg/errors"

	"github.com/scandelicious/promopilot/internal/profile"
	"github.com/scandelicious/promopilot/store"
	"github.com/scandelicious/promopilot/store/db/postgres"
)

// NewDBDriver creates new db driver based on profile.
// PostgreSQL is the only supported backend: the promo index depends on the
// pgvector extension for similarity search.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := postgres.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
