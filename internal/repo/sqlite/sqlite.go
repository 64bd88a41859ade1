package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/repo"
)

var _ repo.StatusCheckStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS status_checks (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT    NOT NULL UNIQUE,
    client_name TEXT    NOT NULL,
    created_at  TEXT    NOT NULL
);
`

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert persists a status check.
func (s *Store) Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error) {
	if err := repo.Validate(sc); err != nil {
		return domain.StatusCheck{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_checks (id, client_name, created_at) VALUES (?, ?, ?)`,
		sc.ID,
		sc.ClientName,
		sc.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.StatusCheck{}, fmt.Errorf("inserting status check %q: %w", sc.ID, repo.ErrDuplicateID)
		}
		return domain.StatusCheck{}, fmt.Errorf("inserting status check %q: %w", sc.ID, err)
	}
	return sc, nil
}

// ListAll returns every status check in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_name, created_at FROM status_checks ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying status checks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StatusCheck, 0)
	for rows.Next() {
		var sc domain.StatusCheck
		var createdAt string
		if err := rows.Scan(&sc.ID, &sc.ClientName, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning status check row: %w", err)
		}
		ts, err := domain.ParseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		sc.Timestamp = ts
		out = append(out, sc)
	}
	return out, rows.Err()
}
