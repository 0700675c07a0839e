// Package boltstore implements the purchase store on an embedded bbolt
// database. Exclusive sneaker ownership is a per-id latch held across
// the update transaction; bolt's serialized writer then makes the stock
// write-back and the order append one atomic unit.
package boltstore

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/pkg/common"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	bucketSneakers = []byte("sneakers")
	bucketOrders   = []byte("orders")
)

type Store struct {
	db *bolt.DB

	mu      sync.Mutex
	latches map[int64]chan struct{}
}

var _ purchase.Store = (*Store)(nil)

// Open opens (or creates) the bolt data file and its buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSneakers, bucketOrders} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init bolt buckets")
	}
	return &Store{db: db, latches: make(map[int64]chan struct{})}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (s *Store) latch(id int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.latches[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.latches[id] = l
	}
	return l
}

// UpdateSneaker implements the exclusive read-modify-write cycle.
// Latches for different ids never contend; attempts on the same id
// serialize, and a context deadline while waiting surfaces as
// ErrLockTimeout.
func (s *Store) UpdateSneaker(ctx context.Context, id int64, fn purchase.MutateFunc) error {
	l := s.latch(id)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return purchase.ErrLockTimeout
		}
		return ctx.Err()
	}
	defer func() { <-l }()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSneakers)
		raw := b.Get(itob(id))
		if raw == nil {
			return purchase.ErrNotFound
		}

		var snk domain.Sneaker
		if err := json.Unmarshal(raw, &snk); err != nil {
			return errors.Wrap(err, "decode sneaker record")
		}

		order, err := fn(&snk)
		if err != nil {
			return err
		}

		data, err := json.Marshal(&snk)
		if err != nil {
			return errors.Wrap(err, "encode sneaker record")
		}
		if err := b.Put(itob(id), data); err != nil {
			return errors.Wrap(err, "write sneaker record")
		}

		if order != nil {
			if order.ID == 0 {
				order.ID = common.UUIDint64()
			}
			odata, err := json.Marshal(order)
			if err != nil {
				return errors.Wrap(err, "encode order record")
			}
			if err := tx.Bucket(bucketOrders).Put(itob(order.ID), odata); err != nil {
				return errors.Wrap(err, "append order record")
			}
		}
		return nil
	})
}

func (s *Store) GetSneaker(ctx context.Context, id int64) (*domain.Sneaker, error) {
	var snk domain.Sneaker
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSneakers).Get(itob(id))
		if raw == nil {
			return purchase.ErrNotFound
		}
		return json.Unmarshal(raw, &snk)
	})
	if err != nil {
		return nil, err
	}
	return &snk, nil
}

func (s *Store) ListSneakers(ctx context.Context) ([]domain.Sneaker, error) {
	var sneakers []domain.Sneaker
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSneakers).ForEach(func(_, v []byte) error {
			var snk domain.Sneaker
			if err := json.Unmarshal(v, &snk); err != nil {
				return errors.Wrap(err, "decode sneaker record")
			}
			sneakers = append(sneakers, snk)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sneakers, nil
}

func (s *Store) CreateSneaker(ctx context.Context, snk *domain.Sneaker) error {
	if snk.ID == 0 {
		snk.ID = common.UUIDint64()
	}
	now := time.Now()
	if snk.CreatedAt.IsZero() {
		snk.CreatedAt = now
	}
	snk.UpdatedAt = now
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(snk)
		if err != nil {
			return errors.Wrap(err, "encode sneaker record")
		}
		return tx.Bucket(bucketSneakers).Put(itob(snk.ID), data)
	})
}

func (s *Store) CountOrdersSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(_, v []byte) error {
			var order domain.Order
			if err := json.Unmarshal(v, &order); err != nil {
				return errors.Wrap(err, "decode order record")
			}
			if order.UserID == userID && order.OrderedAt.After(since) {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (s *Store) ListOrders(ctx context.Context, filter purchase.OrderFilter) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(_, v []byte) error {
			if filter.Limit > 0 && len(orders) >= filter.Limit {
				return nil
			}
			var order domain.Order
			if err := json.Unmarshal(v, &order); err != nil {
				return errors.Wrap(err, "decode order record")
			}
			if filter.UserID != "" && order.UserID != filter.UserID {
				return nil
			}
			if !filter.From.IsZero() && order.OrderedAt.Before(filter.From) {
				return nil
			}
			if !filter.To.IsZero() && order.OrderedAt.After(filter.To) {
				return nil
			}
			orders = append(orders, order)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) DeleteOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var order domain.Order
			if err := json.Unmarshal(v, &order); err != nil {
				return errors.Wrap(err, "decode order record")
			}
			if order.OrderedAt.Before(cutoff) {
				if err := c.Delete(); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}
