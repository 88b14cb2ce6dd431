package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestNewSQLStoreValidation checks configuration errors
func TestNewSQLStoreValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite default dialect", cfg: Config{Path: "x.db"}},
		{name: "sqlite missing path", cfg: Config{Dialect: DialectSQLite}, wantErr: true},
		{name: "postgres", cfg: Config{Dialect: DialectPostgres, DSN: "postgres://localhost/roster"}},
		{name: "postgres missing dsn", cfg: Config{Dialect: DialectPostgres}, wantErr: true},
		{name: "unknown dialect", cfg: Config{Dialect: "oracle", Path: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewSQLStore(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.Dialect() == "" {
				t.Errorf("expected dialect to be set")
			}
		})
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(memoryPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if _, err := store.List(ctx); err == nil {
		t.Errorf("expected error before Init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests the schema bootstrap is idempotent
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t, memoryPath)
	ctx := context.Background()

	var count int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		t.Fatalf("students table is not accessible: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

// TestSQLitePersistence checks records survive reopening the database file
func TestSQLitePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	first, err := OpenSQLStore(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	mustInsert(t, first, ann, bo)
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	second := setupTestStore(t, path)
	got := mustList(t, second)
	if !reflect.DeepEqual(got, []Record{ann, bo}) {
		t.Errorf("expected records to persist, got %v", got)
	}
}

// TestSQLiteReleasesConnections checks failed writes give their connection back
func TestSQLiteReleasesConnections(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, filepath.Join(t.TempDir(), "roster.db"))
	mustInsert(t, s, ann)

	if err := s.Insert(ctx, ann); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	path := writeFile(t, "bad.csv", "id,name,program,gender,status\n9,Cy\n")
	if err := s.ImportCSV(ctx, path); !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected malformed row error, got %v", err)
	}
	path = writeFile(t, "dup.csv", "id,name,program,gender,status\n9,Cy,BS ECE,Male,Not Enrolled\n1,Ann,BS CoE,Female,Enrolled\n")
	if err := s.ImportCSV(ctx, path); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}

	stats := s.db.Stats()
	if stats.OpenConnections != 0 || stats.InUse != 0 {
		t.Errorf("expected no open connections, got open=%d in use=%d", stats.OpenConnections, stats.InUse)
	}
	if got := mustList(t, s); len(got) != 1 {
		t.Errorf("expected only the first insert to persist, got %v", got)
	}
}

// TestSQLiteMemoryIsPrivate checks two :memory: stores do not share data
func TestSQLiteMemoryIsPrivate(t *testing.T) {
	a := setupTestStore(t, memoryPath)
	b := setupTestStore(t, memoryPath)

	mustInsert(t, a, ann)
	if got := mustList(t, b); len(got) != 0 {
		t.Errorf("expected second store empty, got %v", got)
	}
}

// TestRebind checks placeholder conversion per dialect
func TestRebind(t *testing.T) {
	query := `UPDATE students SET name = ?, status = ? WHERE id = ?`

	lite := &SQLStore{cfg: Config{Dialect: DialectSQLite}}
	if got := lite.rebind(query); got != query {
		t.Errorf("expected sqlite query unchanged, got %s", got)
	}

	pg := &SQLStore{cfg: Config{Dialect: DialectPostgres}}
	want := `UPDATE students SET name = $1, status = $2 WHERE id = $3`
	if got := pg.rebind(query); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// TestPostgresContract runs the store contract against a live PostgreSQL
// when ROSTER_TEST_POSTGRES_DSN is set.
func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("ROSTER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROSTER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := OpenSQLStore(ctx, Config{Dialect: DialectPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if _, err := store.db.ExecContext(ctx, "DELETE FROM students"); err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}

	mustInsert(t, store, ann, bo)
	if err := store.Insert(ctx, ann); !IsDuplicateKey(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}

	changed := bo
	changed.Status = "Not Enrolled"
	if err := store.Update(ctx, changed); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if err := store.Delete(ctx, "1"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	got := mustList(t, store)
	if !reflect.DeepEqual(got, []Record{changed}) {
		t.Errorf("expected %v, got %v", []Record{changed}, got)
	}

	path := writeFile(t, "in.csv", "id,name,program,gender,status\n9,Cy,BS ECE,Male,Not Enrolled\n2,Bo,BS EE,Male,Enrolled\n")
	if err := store.ImportCSV(ctx, path); !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if ok, _ := store.Exists(ctx, "9"); ok {
		t.Errorf("expected failed import to roll back")
	}
}
