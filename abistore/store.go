// Package abistore keeps a history of generated ABI documents in a SQL
// database. Postgres, MySQL and SQLite are supported; the dialect comes
// from the database URL.
package abistore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/dburl"
)

const tableName = "nearabi_history"

var (
	ErrNotFound = errors.New("abi not found in history")
	ErrNoName   = errors.New("abi metadata has no contract name")
)

// Entry is one recorded document.
type Entry struct {
	ID        int64
	Name      string
	Version   string
	Digest    string
	Document  []byte
	CreatedAt time.Time
}

// Store is an ABI history backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect string
	logger  *zap.Logger
}

// Open connects to the database at dbURL and creates the history table if
// needed.
func Open(ctx context.Context, dbURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect, err := dburl.InferDialect(dbURL)
	if err != nil {
		return nil, err
	}
	driver, dsn, err := dburl.DriverDSN(dbURL)
	if err != nil {
		return nil, err
	}
	if dialect == dburl.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", dsn, err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dburl.Redact(dbURL), err)
	}
	if dialect == dburl.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dburl.Redact(dbURL), err)
	}

	s := &Store{db: db, dialect: dialect, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("opened abi history", zap.String("dialect", dialect), zap.String("url", dburl.Redact(dbURL)))
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Dialect reports which database the store talks to.
func (s *Store) Dialect() string { return s.dialect }

// Migrate creates the history table if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	var createSQL string
	switch s.dialect {
	case dburl.DialectPostgres:
		createSQL = `
			CREATE TABLE IF NOT EXISTS nearabi_history (
				id         BIGSERIAL PRIMARY KEY,
				name       VARCHAR(255) NOT NULL,
				version    VARCHAR(64) NOT NULL,
				digest     CHAR(64) NOT NULL,
				document   TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (name, version, digest)
			)`
	case dburl.DialectMySQL:
		createSQL = `
			CREATE TABLE IF NOT EXISTS nearabi_history (
				id         BIGINT AUTO_INCREMENT PRIMARY KEY,
				name       VARCHAR(255) NOT NULL,
				version    VARCHAR(64) NOT NULL,
				digest     CHAR(64) NOT NULL,
				document   LONGTEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE KEY name_version_digest (name, version, digest)
			)`
	case dburl.DialectSQLite:
		createSQL = `
			CREATE TABLE IF NOT EXISTS nearabi_history (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT NOT NULL,
				version    TEXT NOT NULL,
				digest     TEXT NOT NULL,
				document   TEXT NOT NULL,
				created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (name, version, digest)
			)`
	default:
		return fmt.Errorf("unsupported dialect: %s", s.dialect)
	}
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}
	return nil
}

// Record stores doc unless an identical document (same name, version and
// digest) is already present. It reports whether a new row was written.
func (s *Store) Record(ctx context.Context, doc *abi.Document) (Entry, bool, error) {
	if doc.Metadata.Name == "" {
		return Entry{}, false, ErrNoName
	}
	digest, err := doc.Digest()
	if err != nil {
		return Entry{}, false, err
	}
	data, err := doc.Encode(abi.FormatJSON)
	if err != nil {
		return Entry{}, false, err
	}

	existing, err := s.find(ctx, doc.Metadata.Name, doc.Metadata.Version, digest)
	switch {
	case err == nil:
		s.logger.Debug("abi already recorded",
			zap.String("name", existing.Name), zap.String("version", existing.Version), zap.String("digest", digest))
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Entry{}, false, err
	}

	now := time.Now().UTC()
	var stamp any = now
	if s.dialect == dburl.DialectSQLite {
		stamp = now.Format(time.RFC3339)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO nearabi_history (name, version, digest, document, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		doc.Metadata.Name, doc.Metadata.Version, digest, string(data), stamp)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to record abi %s %s: %w", doc.Metadata.Name, doc.Metadata.Version, err)
	}

	entry, err := s.find(ctx, doc.Metadata.Name, doc.Metadata.Version, digest)
	if err != nil {
		return Entry{}, false, err
	}
	s.logger.Info("recorded abi",
		zap.String("name", entry.Name), zap.String("version", entry.Version), zap.String("digest", digest))
	return entry, true, nil
}

// List returns the recorded entries for name, oldest first, without their
// documents. An empty name lists every contract.
func (s *Store) List(ctx context.Context, name string) ([]Entry, error) {
	query := `SELECT id, name, version, digest, created_at FROM nearabi_history`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query abi history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created any
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Version, &e.Digest, &created); err != nil {
			return nil, fmt.Errorf("failed to scan abi history row: %w", err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating abi history: %w", err)
	}
	return entries, nil
}

// Get returns the latest entry for name. A non-empty version restricts the
// lookup to that version.
func (s *Store) Get(ctx context.Context, name, version string) (Entry, error) {
	query := `SELECT id, name, version, digest, document, created_at FROM nearabi_history WHERE name = ?`
	args := []any{name}
	if version != "" {
		query += ` AND version = ?`
		args = append(args, version)
	}
	query += ` ORDER BY id DESC LIMIT 1`
	return s.scanOne(ctx, query, args...)
}

func (s *Store) find(ctx context.Context, name, version, digest string) (Entry, error) {
	return s.scanOne(ctx, `
		SELECT id, name, version, digest, document, created_at FROM nearabi_history
		WHERE name = ? AND version = ? AND digest = ?`, name, version, digest)
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (Entry, error) {
	var (
		e       Entry
		doc     string
		created any
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).
		Scan(&e.ID, &e.Name, &e.Version, &e.Digest, &doc, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query abi history: %w", err)
	}
	e.Document = []byte(doc)
	if e.CreatedAt, err = parseTime(created); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dburl.DialectPostgres {
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

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unexpected created_at value of type %T", v)
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid created_at value %q", s)
}
