package entry

import (
	"context"
	"errors"
	"fmt"
)

// Seed describes the defaults taken from the config file.
type Seed struct {
	APIKey                string
	UpdateIntervalMinutes int
}

// Ensure returns the stored entry, creating it from seed on first start.
// created reports whether a new entry was written.
//
// An existing entry is returned as is; seed values do not overwrite it.
// Without a stored entry and without a seed key, ErrEmptyAPIKey is returned.
func Ensure(ctx context.Context, repo Repository, seed Seed) (e *Entry, created bool, err error) {
	e, err = repo.Get(ctx)
	if err == nil {
		return e, false, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, false, fmt.Errorf("loading entry: %w", err)
	}

	e = &Entry{APIKey: seed.APIKey, UpdateIntervalMinutes: seed.UpdateIntervalMinutes}
	if err := repo.Create(ctx, e); err != nil {
		return nil, false, fmt.Errorf("seeding entry: %w", err)
	}
	return e, true, nil
}
