package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/repo"
)

// Store keeps status checks in process memory. Used by tests and when no
// DATABASE_URL is configured.
type Store struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	checks []domain.StatusCheck
}

func New() *Store {
	return &Store{
		ids:    make(map[string]struct{}),
		checks: make([]domain.StatusCheck, 0, 128),
	}
}

func (m *Store) Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error) {
	if err := repo.Validate(sc); err != nil {
		return domain.StatusCheck{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.ids[sc.ID]; dup {
		return domain.StatusCheck{}, repo.ErrDuplicateID
	}
	m.ids[sc.ID] = struct{}{}
	m.checks = append(m.checks, sc)
	return sc, nil
}

func (m *Store) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.StatusCheck, len(m.checks))
	copy(out, m.checks)
	return out, nil
}

func (m *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Store) Close() error { return nil }
