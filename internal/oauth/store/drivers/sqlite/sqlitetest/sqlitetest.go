// Package sqlitetest opens migrated sqlite stores for tests.
package sqlitetest

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite"
)

// New returns a migrated store backed by a file in t.TempDir. A file is used
// rather than :memory: so every pooled connection sees the same database.
func New(t testing.TB) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "oauth.db")))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.ApplyMigrations(); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return s
}
