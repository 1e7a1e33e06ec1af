// Package remote reads and writes the hosted content table: one row per
// section, keyed by section name, holding the section record as JSON.
package remote

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const table = "site_content"

type dialect struct {
	name      string
	driver    string
	schema    string
	selectAll string
	upsert    string
}

var dialects = map[string]dialect{
	"postgres": {
		name:      "postgres",
		driver:    "postgres",
		schema:    "schema/postgres.sql",
		selectAll: "SELECT key, data FROM " + table + " ORDER BY key",
		upsert: "INSERT INTO " + table + " (key, data, updated_at) VALUES ($1, $2, now()) " +
			"ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at",
	},
	"sqlite": {
		name:      "sqlite",
		driver:    "sqlite",
		schema:    "schema/sqlite.sql",
		selectAll: "SELECT key, data FROM " + table + " ORDER BY key",
		upsert: "INSERT INTO " + table + " (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) " +
			"ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
	},
}

var ErrInvalidRow = errors.New("invalid content row")

// Store is a database/sql backed content table.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Open prepares a connection pool for driver ("postgres" or "sqlite").
// No connection is made until the first query, so an unreachable database
// surfaces on FetchAll/Upsert rather than here.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("remote dsn is required")
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}
	if d.name == "sqlite" && strings.Contains(dsn, ":memory:") {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	return newStore(db, d, opts), nil
}

// New wraps an existing pool.
func New(db *sql.DB, driver string, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return newStore(db, d, opts), nil
}

func newStore(db *sql.DB, d dialect, opts []Option) *Store {
	s := &Store{db: db, dialect: d, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("module", "remote"), zap.String("driver", d.name))
	return s
}

// EnsureSchema creates the content table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile(s.dialect.schema)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("ensure %s table: %w", table, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s db: %w", s.dialect.name, err)
	}
	return nil
}

// FetchAll returns every row of the content table ordered by key.
func (s *Store) FetchAll(ctx context.Context) ([]model.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.selectAll)
	if err != nil {
		return nil, fmt.Errorf("select content rows: %w", err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		out = append(out, model.Row{Key: key, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}
	s.log.Debug("fetched content rows", zap.Int("rows", len(out)))
	return out, nil
}

// Upsert inserts the row or replaces the data stored under its key.
func (s *Store) Upsert(ctx context.Context, row model.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.TrimSpace(row.Key)
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRow)
	}
	if !json.Valid(row.Data) {
		return fmt.Errorf("%w: %s data is not valid JSON", ErrInvalidRow, key)
	}
	// lib/pq would send []byte as bytea; jsonb wants text.
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, string(row.Data)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	s.log.Debug("upserted content row", zap.String("key", key), zap.Int("bytes", len(row.Data)))
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
