// Package migratetest opens throwaway sqlite databases with the embedded schema applied.
package migratetest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/shopnearby-backend/pkg/config"
	"github.com/angelmondragon/shopnearby-backend/pkg/db"
	"github.com/angelmondragon/shopnearby-backend/pkg/migrate"
)

var seq atomic.Int64

// Open returns a migrated and seeded in-memory database private to the test.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DBConfig{
		DSN:    fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
		Driver: config.DBDriverSQLite,
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if _, err := migrate.Up(context.Background(), sqlDB, config.DBDriverSQLite); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return client
}
