package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/roster/roster/pkg/location"

	// PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// memoryPath is the SQLite path for a private in-memory database.
const memoryPath = ":memory:"

// Config holds SQL store configuration
type Config struct {
	Dialect Dialect
	Path    string // SQLite database file, or ":memory:"
	DSN     string // PostgreSQL connection string
}

// SQLStore implements the Store interface over a single students table.
// Every operation acquires its own connection and transaction and releases
// both before returning.
type SQLStore struct {
	db        *sql.DB
	cfg       Config
	locations location.Resolver
}

// NewSQLStore creates a new SQL store instance. Call Init and Migrate before use.
func NewSQLStore(cfg Config, opts ...Option) (*SQLStore, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = DialectSQLite
	}

	switch cfg.Dialect {
	case DialectSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required")
		}
	case DialectPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database dsn is required")
		}
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", cfg.Dialect)
	}

	o := buildOptions(opts)
	return &SQLStore{
		cfg:       cfg,
		locations: o.locations,
	}, nil
}

// NewSQLiteStore is shorthand for a SQLite-backed store at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLStore, error) {
	return NewSQLStore(Config{Dialect: DialectSQLite, Path: path}, opts...)
}

// OpenSQLStore creates, initializes and migrates a store in one call.
func OpenSQLStore(ctx context.Context, cfg Config, opts ...Option) (*SQLStore, error) {
	store, err := NewSQLStore(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Init opens the database handle.
func (s *SQLStore) Init(ctx context.Context) error {
	db, err := sql.Open(s.driverName(), s.dataSource())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if s.cfg.Dialect == DialectSQLite && s.cfg.Path == memoryPath {
		// Each SQLite connection to :memory: is a separate database, so the
		// single connection must stay open between operations.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// No idle connections: the connection taken by an operation is
		// closed when the operation releases it.
		db.SetMaxIdleConns(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the students table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, release, err := s.migrationDriver(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(s.cfg.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrationDriver returns a migrate driver and a release func. The SQLite
// driver shares the store handle (required for :memory:); the PostgreSQL
// driver pins a connection, so it gets a private handle closed on release.
func (s *SQLStore) migrationDriver(ctx context.Context) (database.Driver, func(), error) {
	switch s.cfg.Dialect {
	case DialectPostgres:
		db, err := sql.Open(s.driverName(), s.dataSource())
		if err != nil {
			return nil, nil, err
		}
		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return driver, func() { _ = driver.Close() }, nil
	default:
		driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, err
		}
		return driver, func() {}, nil
	}
}

// List returns all records in storage order.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	records := []Record{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, program, gender, status FROM students`)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.ID, &rec.Name, &rec.Program, &rec.Gender, &rec.Status); err != nil {
				return fmt.Errorf("failed to scan record: %w", err)
			}
			records = append(records, rec)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get retrieves a record by ID
func (s *SQLStore) Get(ctx context.Context, id string) (Record, bool, error) {
	var rec Record
	found := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			s.rebind(`SELECT id, name, program, gender, status FROM students WHERE id = ?`), id,
		).Scan(&rec.ID, &rec.Name, &rec.Program, &rec.Gender, &rec.Status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

// Exists reports whether a record with id is stored.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM students WHERE id = ?`), id).Scan(&count); err != nil {
			return fmt.Errorf("failed to check record: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of rows in the students table.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}
		return nil
	})
	return n, err
}

// Insert creates a new record. A taken id fails with a duplicate key error.
func (s *SQLStore) Insert(ctx context.Context, rec Record) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, rec)
	})
}

// Update replaces name, program, gender and status of the record with rec.ID.
func (s *SQLStore) Update(ctx context.Context, rec Record) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.rebind(`UPDATE students SET name = ?, program = ?, gender = ?, status = ? WHERE id = ?`),
			rec.Name, rec.Program, rec.Gender, rec.Status, rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	})
}

// Delete deletes a record by ID
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM students WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	})
}

// ExportCSV writes all records to path as CSV.
func (s *SQLStore) ExportCSV(ctx context.Context, path string) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	return exportTo(ctx, s.locations, path, records, writeCSV)
}

// ExportJSON writes all records to path as a JSON array.
func (s *SQLStore) ExportJSON(ctx context.Context, path string) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	return exportTo(ctx, s.locations, path, records, writeJSON)
}

// ImportCSV inserts the rows of path in a single transaction.
func (s *SQLStore) ImportCSV(ctx context.Context, path string) error {
	records, err := loadCSV(ctx, s.locations, path)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			if err := s.insert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// HealthCheck verifies the database connection is healthy
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// Dialect returns the configured backend.
func (s *SQLStore) Dialect() Dialect {
	return s.cfg.Dialect
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, rec Record) error {
	_, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO students (id, name, program, gender, status) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.Name, rec.Program, rec.Gender, rec.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return NewDuplicateKeyError(rec.ID, err)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// withTx runs fn on a dedicated connection inside a transaction. The
// transaction is rolled back unless fn and the commit succeed, and the
// connection is released on every path.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) driverName() string {
	if s.cfg.Dialect == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (s *SQLStore) dataSource() string {
	if s.cfg.Dialect == DialectPostgres {
		return s.cfg.DSN
	}
	if s.cfg.Path == memoryPath {
		return memoryPath
	}
	return s.cfg.Path + "?_pragma=busy_timeout(5000)"
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.cfg.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
