// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/storage"
)

// TestSQLiteStore creates a temporary SQLite-backed store that is
// automatically cleaned up.
func TestSQLiteStore(t *testing.T) storage.Provider {
	t.Helper()
	dbFile, err := os.CreateTemp("", "corkboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestFileStore creates a file-backed store in a temp directory.
func TestFileStore(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.NewFile(filepath.Join(t.TempDir(), "board.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestService creates an initialized board service over a file store with a
// discarded logger and write-through persistence.
func TestService(t *testing.T) *boardservice.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := boardservice.NewService(TestFileStore(t), logger, 0)
	svc.Initialize(context.Background())
	t.Cleanup(svc.Close)
	return svc
}
