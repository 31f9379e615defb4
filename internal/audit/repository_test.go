package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/database"
	"github.com/rowanabisaiutp/api-websocket-messages/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecord_FillsIDAndTime(t *testing.T) {
	repo := setupRepo(t)

	e := &Entry{Action: ActionCreate, RecordID: 7, Project: "Web", Source: "rest"}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" || e.At.IsZero() {
		t.Errorf("entry = %+v, want generated ID and time", e)
	}
}

func TestList_NewestFirstWithDetails(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionCreate, RecordID: 1, Project: "Web", Source: "rest", At: base},
		{Action: ActionUpdate, RecordID: 1, Project: "Web", Source: "rest", Actor: "admin1", At: base.Add(500 * time.Millisecond)},
		{Action: ActionDelete, RecordID: 1, Project: "Web", Source: "rest", At: base.Add(time.Second),
			Details: map[string]any{"email": "ana@example.com"}},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 3 || page.Limit != defaultPageSize {
		t.Fatalf("page = total %d limit %d", page.Total, page.Limit)
	}
	want := []string{ActionDelete, ActionUpdate, ActionCreate}
	for i, e := range page.Entries {
		if e.Action != want[i] {
			t.Errorf("Entries[%d].Action = %q, want %q", i, e.Action, want[i])
		}
	}
	if page.Entries[0].Details["email"] != "ana@example.com" {
		t.Errorf("details = %v", page.Entries[0].Details)
	}
	if page.Entries[1].Actor != "admin1" {
		t.Errorf("actor = %q, want admin1", page.Entries[1].Actor)
	}
	if !page.Entries[2].At.Equal(base) {
		t.Errorf("At = %v, want %v", page.Entries[2].At, base)
	}
}

func TestList_Filters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, e := range []*Entry{
		{Action: ActionCreate, RecordID: 1, Project: "Web", Source: "rest"},
		{Action: ActionCreate, RecordID: 2, Project: "Mobile", Source: "socket"},
		{Action: ActionDelete, RecordID: 1, Project: "Web", Source: "rest"},
	} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by action", Filter{Action: ActionCreate}, 2},
		{"by project", Filter{Project: "Mobile"}, 1},
		{"by record", Filter{RecordID: 1}, 2},
		{"combined", Filter{Action: ActionDelete, RecordID: 1}, 1},
		{"no match", Filter{Project: "Nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if page.Total != tt.want || len(page.Entries) != tt.want {
				t.Errorf("total=%d len=%d, want %d", page.Total, len(page.Entries), tt.want)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := repo.Record(ctx, &Entry{Action: ActionCreate, RecordID: i, Source: "rest"}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 5 || len(page.Entries) != 1 {
		t.Errorf("total=%d len=%d, want 5/1", page.Total, len(page.Entries))
	}

	page, err = repo.List(ctx, Filter{Limit: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != maxPageSize {
		t.Errorf("Limit = %d, want clamp to %d", page.Limit, maxPageSize)
	}
}
