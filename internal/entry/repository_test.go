package entry

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/database"
	"github.com/nerrad567/beestat-bridge/migrations"
)

// setupRepo opens an in-memory database with the real migrations applied.
func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func TestGet_Empty(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Get(context.Background())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get() error = %v, want ErrEntryNotFound", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	e := &Entry{APIKey: "  abcdef0123456789 ", UpdateIntervalMinutes: 10}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" {
		t.Error("Create() should assign an ID")
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("ID = %q, want %q", got.ID, e.ID)
	}
	if got.APIKey != "abcdef0123456789" {
		t.Errorf("APIKey = %q, want trimmed key", got.APIKey)
	}
	if got.UpdateInterval() != 10*time.Minute {
		t.Errorf("UpdateInterval() = %v", got.UpdateInterval())
	}
	if got.CreatedAt.IsZero() || !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestCreate_Validation(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &Entry{APIKey: "   "}); !errors.Is(err, ErrEmptyAPIKey) {
		t.Errorf("empty key error = %v, want ErrEmptyAPIKey", err)
	}
	if err := repo.Create(ctx, &Entry{APIKey: "k", UpdateIntervalMinutes: -1}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("negative interval error = %v, want ErrInvalidInterval", err)
	}

	e := &Entry{APIKey: "k"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.UpdateIntervalMinutes != DefaultUpdateIntervalMinutes {
		t.Errorf("UpdateIntervalMinutes = %d, want default", e.UpdateIntervalMinutes)
	}
}

func TestUpdateOptions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	e := &Entry{APIKey: "key-1", UpdateIntervalMinutes: 5}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.UpdateOptions(ctx, e.ID, 15)
	if err != nil {
		t.Fatalf("UpdateOptions() error = %v", err)
	}
	if got.UpdateIntervalMinutes != 15 {
		t.Errorf("UpdateIntervalMinutes = %d, want 15", got.UpdateIntervalMinutes)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v should be after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
	if got.APIKey != "key-1" {
		t.Errorf("APIKey changed to %q", got.APIKey)
	}

	if _, err := repo.UpdateOptions(ctx, e.ID, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("UpdateOptions(0) error = %v, want ErrInvalidInterval", err)
	}
	if _, err := repo.UpdateOptions(ctx, "missing", 5); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("UpdateOptions(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestUpdateAPIKey(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	e := &Entry{APIKey: "old-key", UpdateIntervalMinutes: 7}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.UpdateAPIKey(ctx, e.ID, " new-key ")
	if err != nil {
		t.Fatalf("UpdateAPIKey() error = %v", err)
	}
	if got.APIKey != "new-key" || got.UpdateIntervalMinutes != 7 {
		t.Errorf("entry = %+v", got)
	}

	if _, err := repo.UpdateAPIKey(ctx, e.ID, ""); !errors.Is(err, ErrEmptyAPIKey) {
		t.Errorf("UpdateAPIKey(\"\") error = %v, want ErrEmptyAPIKey", err)
	}
	if _, err := repo.UpdateAPIKey(ctx, "missing", "k"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("UpdateAPIKey(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestIntervalCheckConstraint(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.db.ExecContext(context.Background(),
		`INSERT INTO config_entries (id, api_key, update_interval_minutes, created_at, updated_at)
		 VALUES ('x', 'k', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	if err == nil {
		t.Error("schema should reject update_interval_minutes below 1")
	}
}

// =============================================================================
// Failure paths (sqlmock)
// =============================================================================

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestGet_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM config_entries ORDER BY created_at LIMIT 1")).
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.Get(context.Background())
	if err == nil || errors.Is(err, ErrEntryNotFound) || !strings.Contains(err.Error(), "disk I/O error") {
		t.Fatalf("Get() error = %v, want wrapped driver error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestGet_ScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "api_key", "update_interval_minutes", "created_at", "updated_at"}).
		AddRow("id-1", "key", 3, "2026-03-01T12:00:00Z", "2026-03-02T12:00:00Z")
	mock.ExpectQuery("SELECT id, api_key").WillReturnRows(rows)

	got, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "id-1" || got.UpdateIntervalMinutes != 3 {
		t.Errorf("entry = %+v", got)
	}
	if want := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC); !got.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO config_entries")).
		WithArgs(sqlmock.AnyArg(), "key", 5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("locked"))

	err := repo.Create(context.Background(), &Entry{APIKey: "key"})
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestUpdateOptions_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE config_entries SET update_interval_minutes")).
		WithArgs(9, sqlmock.AnyArg(), "id-1").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.UpdateOptions(context.Background(), "id-1", 9)
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("UpdateOptions() error = %v, want sql.ErrConnDone", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestUpdateAPIKey_NoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE config_entries SET api_key")).
		WithArgs("k", sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateAPIKey(context.Background(), "gone", "k")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("UpdateAPIKey() error = %v, want ErrEntryNotFound", err)
	}
}
