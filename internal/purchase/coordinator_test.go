package purchase_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/pricing"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/internal/store/boltstore"
)

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) Publish(topic string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			b.events = append(b.events, s)
		}
	}
}

func newTestCoordinator(t *testing.T) (*purchase.Coordinator, *boltstore.Store, *recordingBus) {
	t.Helper()
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "drop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	guard := purchase.NewGuard(store, time.Minute, 3)
	bus := &recordingBus{}
	coord := purchase.NewCoordinator(store, guard, pricing.NewEngine(150)).WithPublisher(bus)
	return coord, store, bus
}

func seed(t *testing.T, store *boltstore.Store, snk *domain.Sneaker) {
	t.Helper()
	require.NoError(t, store.CreateSneaker(context.Background(), snk))
}

func TestPurchaseSuccess(t *testing.T) {
	coord, store, bus := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 5}})
	ctx := context.Background()

	res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1"})
	assert.Equal(t, purchase.StatusSuccess, res.Status)
	assert.Equal(t, "purchase complete", res.Message)
	assert.Equal(t, int64(15000), res.Price)

	snk, err := store.GetSneaker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, snk.Sizes["US10"])

	orders, err := store.ListOrders(ctx, purchase.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(15000), orders[0].Amount)
	assert.Equal(t, "US10", orders[0].Size)
	assert.Equal(t, []string{purchase.StatusSuccess}, bus.events)
}

func TestPurchasePremiumDiscount(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 5}})

	res := coord.Purchase(context.Background(), purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1", Premium: true})
	assert.Equal(t, purchase.StatusSuccess, res.Status)
	assert.Equal(t, int64(13500), res.Price)
}

func TestPurchaseCollabNoDiscount(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "TS x AJ1", BasePrice: 100, IsCollab: true, Sizes: domain.SizeStock{"US10": 1}})
	ctx := context.Background()

	res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1", Premium: true})
	assert.Equal(t, purchase.StatusSuccess, res.Status)
	assert.Equal(t, int64(15000), res.Price, "collab models never discount")

	// last unit is gone, the next attempt fails
	res = coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u2"})
	assert.Equal(t, purchase.StatusFail, res.Status)
	assert.Equal(t, "out of stock", res.Message)
	assert.Zero(t, res.Price)

	snk, err := store.GetSneaker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, snk.Sizes["US10"], "stock never goes negative")
}

func TestPurchaseBusinessFailures(t *testing.T) {
	coord, store, bus := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 5}})
	ctx := context.Background()

	res := coord.Purchase(ctx, purchase.Request{SneakerID: 77, Size: "US10", UserID: "u1"})
	assert.Equal(t, purchase.StatusFail, res.Status)
	assert.Equal(t, "sneaker not found", res.Message)

	res = coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US13", UserID: "u1"})
	assert.Equal(t, purchase.StatusFail, res.Status)
	assert.Equal(t, "invalid size", res.Message)

	// failed attempts leave no trace in the ledger
	orders, err := store.ListOrders(ctx, purchase.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, []string{purchase.StatusFail, purchase.StatusFail}, bus.events)

	snk, err := store.GetSneaker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, snk.Sizes["US10"])
}

func TestPurchaseRateLimit(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 50}})
	ctx := context.Background()

	base := time.Now()
	clock := base
	coord.WithClock(func() time.Time { return clock })

	// three purchases inside the window succeed
	for i := 0; i < 3; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "bot"})
		require.Equal(t, purchase.StatusSuccess, res.Status, "purchase %d", i+1)
	}

	// the fourth inside the window is rejected, with no store mutation
	clock = base.Add(3 * time.Second)
	res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "bot"})
	assert.Equal(t, purchase.StatusRejected, res.Status)
	assert.Contains(t, res.Message, "recent purchases: 3")

	snk, err := store.GetSneaker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 47, snk.Sizes["US10"])

	// a different user is unaffected
	res = coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "human"})
	assert.Equal(t, purchase.StatusSuccess, res.Status)

	// once the window slides past, the bot may buy again
	clock = base.Add(2 * time.Minute)
	res = coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "bot"})
	assert.Equal(t, purchase.StatusSuccess, res.Status)
}

func TestPurchaseTwoPriorSucceedsOnThird(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 10}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1"})
		require.Equal(t, purchase.StatusSuccess, res.Status)
	}
	res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1"})
	assert.Equal(t, purchase.StatusSuccess, res.Status)
}

func TestPurchaseConcurrentDrop(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	const initialStock = 5
	const buyers = 20
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 180, Sizes: domain.SizeStock{"US10": initialStock}})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]purchase.Result, buyers)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = coord.Purchase(ctx, purchase.Request{
				SneakerID: 1,
				Size:      "US10",
				UserID:    string(rune('a' + i)),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	success := 0
	for _, res := range results {
		switch res.Status {
		case purchase.StatusSuccess:
			success++
			assert.Equal(t, int64(27000), res.Price)
		case purchase.StatusFail:
			assert.Equal(t, "out of stock", res.Message)
		default:
			t.Fatalf("unexpected result %+v", res)
		}
	}
	assert.Equal(t, initialStock, success, "exactly the available stock sells")

	snk, err := store.GetSneaker(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, snk.Sizes["US10"])

	orders, err := store.ListOrders(ctx, purchase.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, success, "one ledger row per successful purchase")
}

func TestPurchaseLockTimeoutIsError(t *testing.T) {
	coord, store, _ := newTestCoordinator(t)
	seed(t, store, &domain.Sneaker{ID: 1, Model: "AJ1", BasePrice: 100, Sizes: domain.SizeStock{"US10": 5}})

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.UpdateSneaker(context.Background(), 1, func(snk *domain.Sneaker) (*domain.Order, error) {
			close(holding)
			<-release
			return nil, nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := coord.Purchase(ctx, purchase.Request{SneakerID: 1, Size: "US10", UserID: "u1"})
	assert.Equal(t, purchase.StatusError, res.Status)
	assert.Equal(t, "purchase timed out, try again", res.Message)
}
