package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/repo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_Insert_ListAll_Order(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Unique names per run so previous rows in a shared DB don't interfere.
	run := time.Now().UTC().UnixNano()
	var inserted []domain.StatusCheck
	for i := 1; i <= 3; i++ {
		sc := domain.StatusCheck{
			ID:         uuid.NewString(),
			ClientName: fmt.Sprintf("Client %d-%d", i, run),
			Timestamp:  domain.NewTimestamp(time.Now()),
		}
		got, err := store.Insert(ctx, sc)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if got != sc {
			t.Fatalf("Insert changed the record: %+v", got)
		}
		inserted = append(inserted, sc)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	pos := make(map[string]int, len(all))
	for i, sc := range all {
		pos[sc.ID] = i
	}
	prev := -1
	for _, sc := range inserted {
		i, ok := pos[sc.ID]
		if !ok {
			t.Fatalf("record %s missing from list", sc.ID)
		}
		if i <= prev {
			t.Fatalf("records not in insertion order")
		}
		prev = i
		if !all[i].Timestamp.Equal(sc.Timestamp.Time) {
			t.Fatalf("timestamp changed: %v != %v", all[i].Timestamp, sc.Timestamp)
		}
	}
}

func TestPostgresStore_DuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sc := domain.StatusCheck{ID: uuid.NewString(), ClientName: "dup", Timestamp: domain.NewTimestamp(time.Now())}
	if _, err := store.Insert(ctx, sc); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := store.Insert(ctx, sc); !errors.Is(err, repo.ErrDuplicateID) {
		t.Fatalf("want ErrDuplicateID, got %v", err)
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	store := openTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
