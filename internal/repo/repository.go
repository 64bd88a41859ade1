package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/statuscheck/internal/domain"
)

var (
	// ErrInvalidRecord is returned by Insert when the record lacks an id or client name.
	ErrInvalidRecord = errors.New("status check requires id and client_name")
	// ErrDuplicateID is returned by Insert when the id is already stored.
	ErrDuplicateID = errors.New("status check id already exists")
	// ErrUnavailable marks failures where the medium could not be reached in time.
	ErrUnavailable = errors.New("store unavailable")
)

// StatusCheckStore is the persistence port. Adapters live in the sub-packages.
type StatusCheckStore interface {
	// Insert persists sc and returns it unchanged.
	Insert(ctx context.Context, sc domain.StatusCheck) (domain.StatusCheck, error)
	// ListAll returns every stored record in insertion order. Empty, never nil.
	ListAll(ctx context.Context) ([]domain.StatusCheck, error)
	// Ping reports whether the medium is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Validate checks the fields every adapter requires before writing.
func Validate(sc domain.StatusCheck) error {
	if sc.ID == "" || sc.ClientName == "" {
		return ErrInvalidRecord
	}
	return nil
}
