// Package backend picks a StatusCheckStore adapter from a DATABASE_URL.
package backend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/repo"
	"github.com/hamed0406/statuscheck/internal/repo/memory"
	"github.com/hamed0406/statuscheck/internal/repo/postgres"
	"github.com/hamed0406/statuscheck/internal/repo/redis"
	"github.com/hamed0406/statuscheck/internal/repo/sqlite"
)

type Kind string

const (
	Memory   Kind = "memory"
	Postgres Kind = "postgres"
	SQLite   Kind = "sqlite"
	Redis    Kind = "redis"
)

// Detect maps a DATABASE_URL to the adapter that serves it. An empty URL
// means the in-memory store.
func Detect(dsn string) (Kind, error) {
	d := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case d == "":
		return Memory, nil
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(d, "sqlite:"), strings.HasPrefix(d, "file:"):
		return SQLite, nil
	case strings.HasPrefix(d, "redis://"), strings.HasPrefix(d, "rediss://"):
		return Redis, nil
	}
	return "", fmt.Errorf("unsupported DATABASE_URL scheme in %q", redact(dsn))
}

// Open connects the adapter for dsn. The caller owns Close.
func Open(ctx context.Context, dsn string, log *zap.Logger) (repo.StatusCheckStore, Kind, error) {
	kind, err := Detect(dsn)
	if err != nil {
		return nil, "", err
	}

	var store repo.StatusCheckStore
	switch kind {
	case Memory:
		store = memory.New()
	case Postgres:
		store, err = postgres.New(ctx, dsn, log)
	case SQLite:
		store, err = sqlite.Open(sqlitePath(dsn))
	case Redis:
		store, err = redis.New(ctx, dsn, "")
	}
	if err != nil {
		return nil, kind, fmt.Errorf("open %s store: %w", kind, err)
	}
	return store, kind, nil
}

// sqlitePath strips the sqlite:// or sqlite: scheme; file: URIs are passed
// through for the driver to interpret.
func sqlitePath(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	for _, p := range []string{"sqlite://", "sqlite:"} {
		if len(dsn) >= len(p) && strings.EqualFold(dsn[:len(p)], p) {
			return dsn[len(p):]
		}
	}
	return dsn
}

// redact hides credentials before a DSN reaches an error message or log.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
