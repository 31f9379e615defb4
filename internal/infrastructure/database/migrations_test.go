package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/rowanabisaiutp/api-websocket-messages/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20250101_000000_create_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"20250101_000000_create_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20250102_000000_add_gadgets.up.sql":      {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
		"20250102_000000_add_gadgets.down.sql":    {Data: []byte("DROP TABLE gadgets;")},
		"README.md":                               {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("expected widgets and gadgets tables")
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}

	// Second run is a no-op.
	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "gadgets") {
		t.Error("latest migration should be reverted")
	}
	if !tableExists(t, db, "widgets") {
		t.Error("earlier migration should remain")
	}

	_, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Version != "20250102_000000" {
		t.Errorf("pending = %+v, want the reverted migration", pending)
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
}

func TestMigrate_EmbeddedSchema(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate(migrations.FS) error = %v", err)
	}
	for _, table := range []string{"contact_messages", "audit_entries"} {
		if !tableExists(t, db, table) {
			t.Errorf("%s table not created", table)
		}
	}
}

func TestLoadMigrations_MissingUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20250101_000000_orphan.down.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := LoadMigrations(fsys); err == nil {
		t.Error("LoadMigrations() should reject a down file without an up file")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20250601_120000_create_contact_messages.up.sql", "20250601_120000", "create_contact_messages", true, true},
		{"20250601_120000_create_contact_messages.down.sql", "20250601_120000", "create_contact_messages", false, true},
		{"20250601_120000.up.sql", "20250601_120000", "", true, true},
		{"20250601.up.sql", "", "", false, false},
		{"20250601_120000_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
