package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/pricing"
	"go.uber.org/zap"
)

// Result statuses, part of the external contract.
const (
	StatusSuccess  = "SUCCESS"
	StatusFail     = "FAIL"
	StatusRejected = "REJECTED"
	StatusError    = "ERROR"
)

// EventTopic is published on the event bus for every finished purchase
// attempt, with the result status as payload.
const EventTopic = "purchase.result"

// txState tracks a purchase through its transaction. Failures exit early
// from whichever state they occur in; stateCommitted is the only
// terminal success.
type txState int

const (
	stateStarted txState = iota
	stateGuardChecked
	stateLocked
	stateValidated
	statePriced
	stateCommitted
)

func (s txState) String() string {
	switch s {
	case stateStarted:
		return "started"
	case stateGuardChecked:
		return "guard_checked"
	case stateLocked:
		return "locked"
	case stateValidated:
		return "validated"
	case statePriced:
		return "priced"
	case stateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Request is one purchase attempt. Premium has already been normalized
// to a strict boolean at the boundary.
type Request struct {
	SneakerID int64
	Size      string
	UserID    string
	Premium   bool
}

// Result is the outcome reported to the caller. Price is set only on
// success.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Price   int64  `json:"price,omitempty"`
}

// Publisher is the slice of the event bus the coordinator uses. A nil
// publisher disables events.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Coordinator orchestrates guard check, inventory lock, validation,
// pricing and commit into one atomic purchase.
type Coordinator struct {
	store  Store
	guard  *Guard
	engine pricing.Engine
	bus    Publisher
	now    func() time.Time
}

func NewCoordinator(store Store, guard *Guard, engine pricing.Engine) *Coordinator {
	return &Coordinator{
		store:  store,
		guard:  guard,
		engine: engine,
		now:    time.Now,
	}
}

// WithPublisher attaches an event bus publisher.
func (c *Coordinator) WithPublisher(bus Publisher) *Coordinator {
	c.bus = bus
	return c
}

// WithClock overrides the time source, used by tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

func (c *Coordinator) publish(status string) {
	if c.bus != nil {
		c.bus.Publish(EventTopic, status)
	}
}

// Purchase runs one attempt to buy a single unit of (sneakerID, size)
// for userID. Every failure before commit leaves both the sneaker and
// the order ledger untouched.
func (c *Coordinator) Purchase(ctx context.Context, req Request) Result {
	state := stateStarted
	now := c.now()

	allowed, recent, err := c.guard.Allow(ctx, req.UserID, now)
	if err != nil {
		zap.L().Error("purchase guard query failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		c.publish(StatusError)
		return Result{Status: StatusError, Message: "internal error"}
	}
	state = stateGuardChecked
	if !allowed {
		zap.L().Debug("purchase rejected by guard",
			zap.String("user_id", req.UserID), zap.Int64("recent", recent))
		c.publish(StatusRejected)
		return Result{
			Status:  StatusRejected,
			Message: fmt.Sprintf("too many purchases in a short period (recent purchases: %d)", recent),
		}
	}

	var price int64
	err = c.store.UpdateSneaker(ctx, req.SneakerID, func(snk *domain.Sneaker) (*domain.Order, error) {
		state = stateLocked
		stock, ok := snk.Sizes[req.Size]
		if !ok {
			return nil, ErrInvalidSize
		}
		if stock <= 0 {
			return nil, ErrOutOfStock
		}
		state = stateValidated

		// price per unit, from pre-decrement attributes
		price = c.engine.Price(snk.BasePrice, snk.IsCollab, req.Premium)
		snk.Sizes[req.Size] = stock - 1
		snk.UpdatedAt = now
		state = statePriced

		return &domain.Order{
			SneakerID: snk.ID,
			Size:      req.Size,
			UserID:    req.UserID,
			Amount:    price,
			OrderedAt: now,
		}, nil
	})
	if err != nil {
		return c.failure(req, state, err)
	}
	state = stateCommitted

	zap.L().Debug("purchase committed",
		zap.Int64("sneaker_id", req.SneakerID),
		zap.String("size", req.Size),
		zap.String("user_id", req.UserID),
		zap.Int64("price", price),
		zap.String("state", state.String()))
	c.publish(StatusSuccess)
	return Result{Status: StatusSuccess, Message: "purchase complete", Price: price}
}

// failure maps store and validation errors onto the response taxonomy.
// Business failures are expected and not logged as errors; everything
// else is an infrastructure error whose details stay out of the
// response.
func (c *Coordinator) failure(req Request, state txState, err error) Result {
	switch {
	case errors.Is(err, ErrNotFound):
		c.publish(StatusFail)
		return Result{Status: StatusFail, Message: "sneaker not found"}
	case errors.Is(err, ErrInvalidSize):
		c.publish(StatusFail)
		return Result{Status: StatusFail, Message: "invalid size"}
	case errors.Is(err, ErrOutOfStock):
		c.publish(StatusFail)
		return Result{Status: StatusFail, Message: "out of stock"}
	case errors.Is(err, ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		zap.L().Warn("purchase lock timeout",
			zap.Int64("sneaker_id", req.SneakerID),
			zap.String("user_id", req.UserID),
			zap.String("state", state.String()))
		c.publish(StatusError)
		return Result{Status: StatusError, Message: "purchase timed out, try again"}
	default:
		zap.L().Error("purchase transaction failed",
			zap.Int64("sneaker_id", req.SneakerID),
			zap.String("user_id", req.UserID),
			zap.String("state", state.String()),
			zap.Error(err))
		c.publish(StatusError)
		return Result{Status: StatusError, Message: "internal error"}
	}
}
