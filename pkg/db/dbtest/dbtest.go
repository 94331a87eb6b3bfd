// Package dbtest opens migrated in-memory sqlite databases for repository tests.
package dbtest

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/migrate"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a fresh, fully migrated sqlite database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Up(context.Background(), sqlDB, goose.DialectSQLite3); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	// shared-cache writers lock each other out; serialize like the sqlite dev client does
	sqlDB.SetMaxOpenConns(1)
	return conn
}

// OpenClient wraps Open in a db.Client so services can run transactions.
func OpenClient(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}
