package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
)

// Store 聚合各仓储；Transaction 回调中的 Store 共享同一个事务
type Store struct {
	db *gorm.DB

	Orders     OrderRepository
	Products   ProductRepository
	Customers  CustomerRepository
	Categories CategoryRepository
	Users      UserRepository
	Outbox     OutboxRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Orders:     NewOrderRepository(db),
		Products:   NewProductRepository(db),
		Customers:  NewCustomerRepository(db),
		Categories: NewCategoryRepository(db),
		Users:      NewUserRepository(db),
		Outbox:     NewOutboxRepository(db),
	}
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误则整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB 底层连接
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate 初始化数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.User{},
		&model.Order{},
		&model.OrderItem{},
		&model.Outbox{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}
