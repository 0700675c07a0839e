package purchase

import (
	"context"
	"time"
)

// Guard defaults, overridable through config.Drop.
const (
	DefaultRateWindow           = 60 * time.Second
	DefaultMaxAttemptsPerWindow = 3
)

// OrderCounter is the slice of Store the guard needs.
type OrderCounter interface {
	CountOrdersSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// Guard rejects purchase attempts once a user exceeds the attempt
// threshold inside the trailing window. The decision is derived from the
// order ledger alone: only committed purchases count, there is no
// separate counter state to keep in sync.
type Guard struct {
	counter     OrderCounter
	window      time.Duration
	maxAttempts int
}

func NewGuard(counter OrderCounter, window time.Duration, maxAttempts int) *Guard {
	if window <= 0 {
		window = DefaultRateWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttemptsPerWindow
	}
	return &Guard{counter: counter, window: window, maxAttempts: maxAttempts}
}

// Allow reports whether userID may attempt a purchase at now, together
// with the in-window purchase count that produced the decision. It runs
// before any inventory lock is taken.
func (g *Guard) Allow(ctx context.Context, userID string, now time.Time) (bool, int64, error) {
	count, err := g.counter.CountOrdersSince(ctx, userID, now.Add(-g.window))
	if err != nil {
		return false, 0, err
	}
	return count < int64(g.maxAttempts), count, nil
}
