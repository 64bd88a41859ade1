package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hamed0406/statuscheck/internal/domain"
)

// WithTimeout bounds every store call by d. A call that runs out of time
// fails with an error matching ErrUnavailable.
func WithTimeout(s StatusCheckStore, d time.Duration) StatusCheckStore {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

type timeoutStore struct {
	next    StatusCheckStore
	timeout time.Duration
}

func (t *timeoutStore) Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.next.Insert(ctx, sc)
	return out, t.mapErr(ctx, "insert", err)
}

func (t *timeoutStore) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.next.ListAll(ctx)
	return out, t.mapErr(ctx, "list", err)
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.mapErr(ctx, "ping", t.next.Ping(ctx))
}

func (t *timeoutStore) Close() error { return t.next.Close() }

func (t *timeoutStore) mapErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %s: %w", op, ErrUnavailable, t.timeout, err)
	}
	return err
}
