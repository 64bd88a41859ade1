package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/repo"
)

var _ repo.StatusCheckStore = (*Store)(nil)

// Schema is applied on open. seq carries insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS status_checks (
  seq         BIGSERIAL PRIMARY KEY,
  id          TEXT NOT NULL UNIQUE,
  client_name TEXT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
`

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctxPing, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("postgres_connected", zap.String("host", cfg.ConnConfig.Host), zap.String("database", cfg.ConnConfig.Database))
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error) {
	if err := repo.Validate(sc); err != nil {
		return domain.StatusCheck{}, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO status_checks (id, client_name, created_at)
		 VALUES ($1, $2, $3)`,
		sc.ID, sc.ClientName, sc.Timestamp.Time,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.StatusCheck{}, fmt.Errorf("insert status check %s: %w", sc.ID, repo.ErrDuplicateID)
		}
		return domain.StatusCheck{}, fmt.Errorf("insert status check: %w", err)
	}
	return sc, nil
}

func (s *Store) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_name, created_at
		   FROM status_checks
		  ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list status checks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StatusCheck, 0)
	for rows.Next() {
		var (
			id        string
			name      string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan status check: %w", err)
		}
		out = append(out, domain.StatusCheck{
			ID:         id,
			ClientName: name,
			Timestamp:  domain.NewTimestamp(createdAt),
		})
	}
	return out, rows.Err()
}
