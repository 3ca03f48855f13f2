package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSQLiteStore_CreatesDatabase(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}

func TestSQLiteStore_Migration_CreatesSchema(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	tables := []string{"schema_meta", "kv", "response_cache"}
	for _, table := range tables {
		_, err := store.DB().ExecContext(context.Background(),
			"SELECT 1 FROM "+table+" LIMIT 1")
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}

	v, err := store.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 1 {
		t.Errorf("SchemaVersion() = %d, want 1", v)
	}
}

func TestSQLiteStore_Migration_Reopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.SetValue(context.Background(), "login", "x"); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	store.Close()

	store, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	got, err := store.GetValue(context.Background(), "login")
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}
	if got != "x" {
		t.Errorf("GetValue() = %q, want x", got)
	}
}

func TestSQLiteStore_WALMode_Enabled(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	var journalMode string
	err := store.DB().QueryRowContext(context.Background(),
		"PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Journal mode = %s, want wal", journalMode)
	}
}

func TestSQLiteStore_Close(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	_ = store.Close()
}

func TestSQLiteStore_ConcurrentWrites_Safe(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	const numWriters = 10
	const writesPerWriter = 10

	errCh := make(chan error, numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			for j := 0; j < writesPerWriter; j++ {
				if err := store.SetValue(ctx, generateTestKey(writerID, j), "v"); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}(i)
	}

	var errs []error
	for i := 0; i < numWriters; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	for _, err := range errs {
		t.Errorf("Concurrent write error: %v", err)
	}

	if len(errs) == 0 {
		var n int
		if err := store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&n); err != nil {
			t.Fatalf("count error = %v", err)
		}
		if n != numWriters*writesPerWriter {
			t.Errorf("Got %d keys, want %d", n, numWriters*writesPerWriter)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath() error = %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("DefaultDBPath() = %s is not absolute", path)
	}

	if !strings.HasSuffix(path, "state.db") {
		t.Errorf("DefaultDBPath() = %s does not end with state.db", path)
	}
}

// Helper functions

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return store
}

func generateTestKey(writerID, writeNum int) string {
	return fmt.Sprintf("key-%c-%c", 'a'+writerID, '0'+writeNum)
}
