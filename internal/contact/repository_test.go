package contact

import (
	"context"
	"errors"
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
		Path:        filepath.Join(t.TempDir(), "contacts.db"),
		WALMode:     true,
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

func sample(name string) Input {
	return Input{
		Name:    name,
		Email:   name + "@example.com",
		Subject: "Hello",
		Message: "Message from " + name,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	in := sample("ana")
	in.Project = "Proyecto Web Principal"
	in.Source = SourceSocket

	id, err := repo.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("Create() id = %d", id)
	}

	m, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if m.ID != id || m.Name != "ana" || m.Email != "ana@example.com" {
		t.Errorf("FindByID() = %+v", m)
	}
	if m.Source != SourceSocket || m.Project != "Proyecto Web Principal" {
		t.Errorf("source/project = %q/%q", m.Source, m.Project)
	}
	if time.Since(m.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v, want about now", m.CreatedAt)
	}
}

func TestCreate_DefaultSource(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, sample("bo"))
	m, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if m.Source != SourceREST {
		t.Errorf("Source = %q, want %q", m.Source, SourceREST)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo := setupRepo(t)
	if _, err := repo.FindByID(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID() error = %v, want ErrNotFound", err)
	}
}

func TestFindAll_NewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	empty, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("FindAll() on empty table = %v, want empty non-nil slice", empty)
	}

	var ids []int64
	for _, n := range []string{"a", "b", "c"} {
		id, err := repo.Create(ctx, sample(n))
		if err != nil {
			t.Fatalf("Create(%s) error = %v", n, err)
		}
		ids = append(ids, id)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(FindAll()) = %d, want 3", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("order = %d,%d,%d; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestFindByEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, _ = repo.Create(ctx, sample("a"))
	_, _ = repo.Create(ctx, sample("b"))
	_, _ = repo.Create(ctx, sample("a"))

	got, err := repo.FindByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(FindByEmail()) = %d, want 2", len(got))
	}
}

func TestUpdate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, sample("a"))
	changed := sample("a")
	changed.Subject = "Changed"

	if err := repo.Update(ctx, id, changed); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	m, _ := repo.FindByID(ctx, id)
	if m.Subject != "Changed" {
		t.Errorf("Subject = %q, want Changed", m.Subject)
	}

	if err := repo.Update(ctx, id+100, changed); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, _ := repo.Create(ctx, sample("a"))
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID after delete error = %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestPersistenceErrorsAreWrapped(t *testing.T) {
	repo := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, sample("a"))
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Create() on cancelled ctx error = %v, want ErrPersistence", err)
	}
}
