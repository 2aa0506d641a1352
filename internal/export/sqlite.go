// Package export persists evaluation results on request, either to a SQLite
// database or to a parquet file.
package export

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned by Load for an unknown export id.
var ErrNotFound = errors.New("export not found")

// Export summarizes one saved result.
type Export struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	Anchor     string    `json:"anchor"`
	CreatedAt  time.Time `json:"created_at"`
	Rows       int       `json:"rows"`
}

// SQLiteStore saves results into a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Migrate brings the schema up to date.
func (s *SQLiteStore) Migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores res and returns its new id. The result is written in a single
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, res *engine.Result) (string, error) {
	if len(res.X) != len(res.Values) {
		return "", fmt.Errorf("result has %d x values for %d samples", len(res.X), len(res.Values))
	}

	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO exports (id, expression, anchor, created_at) VALUES (?, ?, ?, ?)",
		id, res.Expression, res.Anchor, s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert export: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO export_values (export_id, idx, x, y) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare values insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, y := range res.Values {
		if _, err := stmt.ExecContext(ctx, id, i, res.X[i], y); err != nil {
			return "", fmt.Errorf("failed to insert value %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit export: %w", err)
	}
	return id, nil
}

// Load returns a saved result by id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*engine.Result, error) {
	res := &engine.Result{}
	err := s.db.QueryRowContext(ctx,
		"SELECT expression, anchor FROM exports WHERE id = ?", id,
	).Scan(&res.Expression, &res.Anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT x, y FROM export_values WHERE export_id = ? ORDER BY idx", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	res.X = []float64{}
	res.Values = []float64{}
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		res.X = append(res.X, x)
		res.Values = append(res.Values, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	return res, nil
}

// List returns every saved export, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Export, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.expression, e.anchor, e.created_at, COUNT(v.idx)
		FROM exports e
		LEFT JOIN export_values v ON v.export_id = e.id
		GROUP BY e.id
		ORDER BY e.created_at DESC, e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Export
	for rows.Next() {
		var (
			e       Export
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Expression, &e.Anchor, &created, &e.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
