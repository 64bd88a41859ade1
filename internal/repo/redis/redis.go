package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/repo"
)

var _ repo.StatusCheckStore = (*Store)(nil)

const (
	defaultPrefix = "statuscheck"
	listSuffix    = ":checks"
	idsSuffix     = ":ids"

	maxTxRetries = 50
)

// Store keeps status checks in a Redis list (insertion order) and their ids
// in a set (uniqueness).
type Store struct {
	client  *goredis.Client
	listKey string
	idsKey  string
}

// New connects using a redis:// URL. prefix namespaces the keys; empty uses
// the default.
func New(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client:  client,
		listKey: prefix + listSuffix,
		idsKey:  prefix + idsSuffix,
	}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error) {
	if err := repo.Validate(sc); err != nil {
		return domain.StatusCheck{}, err
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return domain.StatusCheck{}, fmt.Errorf("encode status check: %w", err)
	}

	// WATCH the id set so the membership check, SADD and RPUSH commit
	// together or not at all; a concurrent insert aborts the EXEC and we retry.
	txf := func(tx *goredis.Tx) error {
		exists, err := tx.SIsMember(ctx, s.idsKey, sc.ID).Result()
		if err != nil {
			return err
		}
		if exists {
			return repo.ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SAdd(ctx, s.idsKey, sc.ID)
			pipe.RPush(ctx, s.listKey, payload)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, s.idsKey)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return sc, nil
	case errors.Is(err, repo.ErrDuplicateID):
		return domain.StatusCheck{}, fmt.Errorf("insert status check %s: %w", sc.ID, repo.ErrDuplicateID)
	default:
		return domain.StatusCheck{}, fmt.Errorf("insert status check: %w", err)
	}
}

func (s *Store) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	raw, err := s.client.LRange(ctx, s.listKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list status checks: %w", err)
	}
	out := make([]domain.StatusCheck, 0, len(raw))
	for _, item := range raw {
		var sc domain.StatusCheck
		if err := json.Unmarshal([]byte(item), &sc); err != nil {
			return nil, fmt.Errorf("decode status check: %w", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Reset removes every key owned by the store. Used by tests.
func (s *Store) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.listKey, s.idsKey).Err()
}
