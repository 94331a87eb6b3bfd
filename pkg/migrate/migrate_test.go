package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBundledMigrationsValidate(t *testing.T) {
	if err := ValidateTree("migrations"); err != nil {
		t.Fatalf("bundled migrations: %v", err)
	}
}

func TestDialectsShipMatchingVersions(t *testing.T) {
	pg, err := EmbeddedFS(goose.DialectPostgres)
	if err != nil {
		t.Fatalf("postgres fs: %v", err)
	}
	lite, err := EmbeddedFS(goose.DialectSQLite3)
	if err != nil {
		t.Fatalf("sqlite fs: %v", err)
	}

	pgFiles, err := fs.Glob(pg, "*.sql")
	if err != nil {
		t.Fatalf("glob postgres: %v", err)
	}
	liteFiles, err := fs.Glob(lite, "*.sql")
	if err != nil {
		t.Fatalf("glob sqlite: %v", err)
	}
	if len(pgFiles) == 0 || !slices.Equal(pgFiles, liteFiles) {
		t.Fatalf("dialects drifted: postgres %v sqlite %v", pgFiles, liteFiles)
	}
}

func TestPostgresOrdersMigrationGuardsTotals(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "postgres", "*_create_orders.sql"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one orders migration, got %v err=%v", matches, err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (total >= 0)",
		"CHECK (cgst = sgst)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_id",
		"DROP TABLE IF EXISTS orders",
	} {
		if !strings.Contains(content, sub) {
			t.Fatalf("missing %q", sub)
		}
	}
}

func TestUpAppliesSQLiteMigrations(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	if err := Up(context.Background(), sqlDB, goose.DialectSQLite3); err != nil {
		t.Fatalf("up: %v", err)
	}
	for _, table := range []string{"products", "cart_lines", "orders", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}

	// idempotent
	if err := Up(context.Background(), sqlDB, goose.DialectSQLite3); err != nil {
		t.Fatalf("second up: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	if err != nil || d != goose.DialectSQLite3 {
		t.Fatalf("expected sqlite3 dialect, got %v err=%v", d, err)
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatal("expected unsupported dialect error")
	}
}

func TestCreatePairWritesEveryDialect(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	paths, err := CreatePair(root, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	want := []string{
		filepath.Join(root, "postgres", "20260501120000_add_order_notes.sql"),
		filepath.Join(root, "sqlite", "20260501120000_add_order_notes.sql"),
	}
	if !slices.Equal(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	if err := ValidateTree(root); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if _, err := CreatePair(root, "add order notes", now); err == nil {
		t.Fatal("same version and name must not be overwritten")
	}
	if _, err := CreatePair(root, "!!!", now); err == nil {
		t.Fatal("expected error for a name with no usable characters")
	}
}

func TestValidateTreeDetectsDialectDrift(t *testing.T) {
	root := t.TempDir()
	if _, err := CreatePair(root, "create pets", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	extra := filepath.Join(root, "postgres", "20260502000000_pg_only.sql")
	if err := os.WriteFile(extra, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write extra: %v", err)
	}

	if err := ValidateDir(filepath.Join(root, "postgres")); err != nil {
		t.Fatalf("single dir should still validate: %v", err)
	}
	if err := ValidateTree(root); err == nil {
		t.Fatal("expected drift between dialects to fail")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"001_bad.sql":                "-- +goose Up",
		"20260101000000_no_down.sql": "-- +goose Up",
	}
	for name, content := range tests {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := ValidateDir(dir); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
