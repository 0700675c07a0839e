// Package gormstore implements the purchase store on PostgreSQL through
// GORM. Exclusive sneaker ownership is the database row lock
// (SELECT ... FOR UPDATE) held for the duration of one transaction.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/sneakerdrop/config"
	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/pkg/common"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ purchase.Store = (*Store)(nil)

// Open connects to PostgreSQL with the configured pool limits and
// returns the store.
func Open(cfg config.DBConfig) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
	return OpenDSN(dsn, cfg.MaxConn, cfg.IdleConn)
}

// OpenDSN connects with an explicit DSN, used by integration tests.
func OpenDSN(dsn string, maxConn, idleConn int) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	sqldb, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "postgres pool")
	}
	if maxConn > 0 {
		sqldb.SetMaxOpenConns(maxConn)
	}
	if idleConn > 0 {
		sqldb.SetMaxIdleConns(idleConn)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.Migrator().AutoMigrate(domain.Tables...)
}

// DropAll removes all managed tables, used by initdb.
func (s *Store) DropAll() {
	if err := s.db.Migrator().DropTable(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
}

func (s *Store) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

// mapErr normalizes driver errors into the store taxonomy.
func mapErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return purchase.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return purchase.ErrLockTimeout
	default:
		return errors.Wrap(err, msg)
	}
}

// UpdateSneaker locks the row FOR UPDATE, runs fn and persists the
// mutated record plus the returned order in the same transaction. The
// lock is released on commit or rollback; a context deadline while
// blocked on the lock surfaces as ErrLockTimeout.
func (s *Store) UpdateSneaker(ctx context.Context, id int64, fn purchase.MutateFunc) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var snk domain.Sneaker
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&snk, id).Error; err != nil {
			return mapErr(err, "lock sneaker row")
		}

		order, err := fn(&snk)
		if err != nil {
			return err
		}

		if err := tx.Save(&snk).Error; err != nil {
			return mapErr(err, "write back sneaker")
		}
		if order != nil {
			if order.ID == 0 {
				order.ID = common.UUIDint64()
			}
			if err := tx.Create(order).Error; err != nil {
				return mapErr(err, "append order")
			}
		}
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return purchase.ErrLockTimeout
	}
	return err
}

func (s *Store) GetSneaker(ctx context.Context, id int64) (*domain.Sneaker, error) {
	var snk domain.Sneaker
	if err := s.db.WithContext(ctx).First(&snk, id).Error; err != nil {
		return nil, mapErr(err, "query sneaker")
	}
	return &snk, nil
}

func (s *Store) ListSneakers(ctx context.Context) ([]domain.Sneaker, error) {
	var sneakers []domain.Sneaker
	err := s.db.WithContext(ctx).Order("id ASC").Find(&sneakers).Error
	if err != nil {
		return nil, mapErr(err, "list sneakers")
	}
	return sneakers, nil
}

func (s *Store) CreateSneaker(ctx context.Context, snk *domain.Sneaker) error {
	if snk.ID == 0 {
		snk.ID = common.UUIDint64()
	}
	return mapErr(s.db.WithContext(ctx).Create(snk).Error, "create sneaker")
}

func (s *Store) CountOrdersSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("user_id = ? AND ordered_at > ?", userID, since).
		Count(&count).Error
	return count, mapErr(err, "count recent orders")
}

func (s *Store) ListOrders(ctx context.Context, filter purchase.OrderFilter) ([]domain.Order, error) {
	query := s.db.WithContext(ctx).Model(&domain.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		query = query.Where("ordered_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("ordered_at <= ?", filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var orders []domain.Order
	err := query.Order("ordered_at ASC").Find(&orders).Error
	if err != nil {
		return nil, mapErr(err, "list orders")
	}
	return orders, nil
}

func (s *Store) DeleteOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("ordered_at < ?", cutoff).
		Delete(&domain.Order{})
	return result.RowsAffected, mapErr(result.Error, "prune orders")
}
