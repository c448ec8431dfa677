package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines config entry persistence.
type Repository interface {
	// Get returns the stored entry or ErrEntryNotFound.
	Get(ctx context.Context) (*Entry, error)

	// Create stores a new entry. ID, CreatedAt and UpdatedAt are filled
	// in when empty.
	Create(ctx context.Context, e *Entry) error

	UpdateOptions(ctx context.Context, id string, updateIntervalMinutes int) (*Entry, error)
	UpdateAPIKey(ctx context.Context, id string, apiKey string) (*Entry, error)
}

// SQLiteRepository implements Repository on the config_entries table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a SQLite-backed entry repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const selectEntry = `SELECT id, api_key, update_interval_minutes, created_at, updated_at
	FROM config_entries`

// Get returns the oldest stored entry.
func (r *SQLiteRepository) Get(ctx context.Context) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntry+` ORDER BY created_at LIMIT 1`)
	return scanEntry(row)
}

func (r *SQLiteRepository) getByID(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	return scanEntry(row)
}

// Create inserts a new entry.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	key, err := NormalizeAPIKey(e.APIKey)
	if err != nil {
		return err
	}
	if e.UpdateIntervalMinutes == 0 {
		e.UpdateIntervalMinutes = DefaultUpdateIntervalMinutes
	}
	if err := ValidateInterval(e.UpdateIntervalMinutes); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Second)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.APIKey = key

	const query = `INSERT INTO config_entries (id, api_key, update_interval_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.APIKey, e.UpdateIntervalMinutes, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return nil
}

// UpdateOptions sets the poll interval and returns the updated entry.
func (r *SQLiteRepository) UpdateOptions(ctx context.Context, id string, updateIntervalMinutes int) (*Entry, error) {
	if err := ValidateInterval(updateIntervalMinutes); err != nil {
		return nil, err
	}
	const query = `UPDATE config_entries SET update_interval_minutes = ?, updated_at = ? WHERE id = ?`
	if err := r.update(ctx, id, query, updateIntervalMinutes); err != nil {
		return nil, fmt.Errorf("updating options for entry %s: %w", id, err)
	}
	return r.getByID(ctx, id)
}

// UpdateAPIKey replaces the stored key and returns the updated entry.
// Callers validate the key against Beestat before storing it.
func (r *SQLiteRepository) UpdateAPIKey(ctx context.Context, id string, apiKey string) (*Entry, error) {
	key, err := NormalizeAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	const query = `UPDATE config_entries SET api_key = ?, updated_at = ? WHERE id = ?`
	if err := r.update(ctx, id, query, key); err != nil {
		return nil, fmt.Errorf("updating api key for entry %s: %w", id, err)
	}
	return r.getByID(ctx, id)
}

// update runs a single-column UPDATE of the form "SET col = ?, updated_at = ? WHERE id = ?".
func (r *SQLiteRepository) update(ctx context.Context, id, query string, value any) error {
	res, err := r.db.ExecContext(ctx, query, value, formatTime(r.now().UTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var e Entry
	var createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.APIKey, &e.UpdateIntervalMinutes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
