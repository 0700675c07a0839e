package purchase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/sneakerdrop/internal/domain"
)

// Business failures surfaced by the store or the mutation callback.
// Anything else coming out of a Store method is an infrastructure error.
var (
	ErrNotFound    = errors.New("sneaker not found")
	ErrInvalidSize = errors.New("invalid size")
	ErrOutOfStock  = errors.New("out of stock")
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// MutateFunc inspects and mutates a sneaker under exclusive ownership.
// Returning a non-nil order schedules the order append in the same
// atomic unit as the sneaker write-back. Returning an error aborts the
// transaction with no visible mutation.
type MutateFunc func(snk *domain.Sneaker) (*domain.Order, error)

// OrderFilter narrows ledger listings.
type OrderFilter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}

// Store is the transactional capability the purchase engine is written
// against. Two backends implement it: gormstore (PostgreSQL, row locks
// via SELECT ... FOR UPDATE) and boltstore (embedded bbolt).
type Store interface {
	// UpdateSneaker locks the sneaker row identified by id, runs fn and
	// commits the mutated record plus the returned order atomically.
	// Missing rows yield ErrNotFound; a context deadline hit while
	// waiting for the lock yields ErrLockTimeout. Any error from fn or
	// the backend rolls the whole unit back.
	UpdateSneaker(ctx context.Context, id int64, fn MutateFunc) error

	// CountOrdersSince counts committed orders by userID with
	// ordered_at > since. It reads historical data only and runs
	// outside any product lock.
	CountOrdersSince(ctx context.Context, userID string, since time.Time) (int64, error)

	GetSneaker(ctx context.Context, id int64) (*domain.Sneaker, error)
	ListSneakers(ctx context.Context) ([]domain.Sneaker, error)
	CreateSneaker(ctx context.Context, snk *domain.Sneaker) error

	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// DeleteOrdersBefore prunes ledger rows older than cutoff and
	// returns how many were removed. Callers must keep cutoff far
	// outside the guard window.
	DeleteOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
