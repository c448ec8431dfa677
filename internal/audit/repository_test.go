package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/database"
	"github.com/nerrad567/beestat-bridge/migrations"
)

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

func TestCreateAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := &Record{Action: ActionOptionsUpdated, EntryID: "e1", Subject: "ops",
		Details: map[string]any{"update_interval_minutes": 10}}
	second := &Record{Action: ActionAPIKeyReplaced, EntryID: "e1",
		Details: map[string]any{"api_key_hint": "…wxyz"}}
	for _, rec := range []*Record{first, second} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if rec.ID == "" || rec.CreatedAt.IsZero() {
			t.Errorf("Create() did not fill ID/CreatedAt: %+v", rec)
		}
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 || len(res.Records) != 2 || res.Limit != DefaultLimit {
		t.Fatalf("List() = %+v", res)
	}
	if res.Records[0].ID != second.ID {
		t.Errorf("first record = %s, want newest (%s)", res.Records[0].ID, second.ID)
	}

	got := res.Records[1]
	if got.Subject != "ops" || got.EntryID != "e1" {
		t.Errorf("record = %+v", got)
	}
	if got.Details["update_interval_minutes"] != float64(10) {
		t.Errorf("details = %v", got.Details)
	}
	if res.Records[0].Subject != "" {
		t.Errorf("empty subject read back as %q", res.Records[0].Subject)
	}
}

func TestList_Filter(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for range 3 {
		if err := repo.Create(ctx, &Record{Action: ActionOptionsUpdated}); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Create(ctx, &Record{Action: ActionAPIKeyReplaced}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantLen   int
		wantLimit int
	}{
		{"by action", Filter{Action: ActionOptionsUpdated}, 3, 3, DefaultLimit},
		{"paged", Filter{Limit: 2, Offset: 1}, 4, 2, 2},
		{"past end", Filter{Offset: 10}, 4, 0, DefaultLimit},
		{"limit capped", Filter{Limit: 1000}, 4, 4, MaxLimit},
		{"negative offset", Filter{Offset: -3}, 4, 4, DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Records) != tt.wantLen || res.Limit != tt.wantLimit {
				t.Errorf("List() total=%d len=%d limit=%d, want %d/%d/%d",
					res.Total, len(res.Records), res.Limit, tt.wantTotal, tt.wantLen, tt.wantLimit)
			}
			if res.Records == nil {
				t.Error("Records = nil, want empty slice")
			}
		})
	}
}

func TestCreate_RequiresAction(t *testing.T) {
	repo := setupRepo(t)
	if err := repo.Create(context.Background(), &Record{}); err == nil {
		t.Error("Create() without action = nil error")
	}
}

func TestCreate_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnError(errors.New("disk I/O error"))

	repo := NewSQLiteRepository(db)
	if err := repo.Create(context.Background(), &Record{Action: ActionOptionsUpdated}); err == nil {
		t.Error("Create() error = nil, want database failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_CountError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnError(errors.New("database is locked"))

	repo := NewSQLiteRepository(db)
	if _, err := repo.List(context.Background(), Filter{}); err == nil {
		t.Error("List() error = nil, want database failure")
	}
}
