// Package testutil 提供基于 sqlite 内存库的测试夹具
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
)

var seq atomic.Int64

// NewDB 打开独立的 :memory: 数据库并完成迁移；单连接保证所有会话看到同一个库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Customer 创建客户
func Customer(t testing.TB, db *gorm.DB, name string) *model.Customer {
	t.Helper()
	n := seq.Add(1)
	c := &model.Customer{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      fmt.Sprintf("cliente%d@example.com", n),
		TotalSpent: decimal.Zero,
		Address: &model.Address{
			Street: "Rua das Flores", Number: "100", Neighborhood: "Centro",
			City: "São Paulo", State: "SP", ZipCode: "01000-000",
		},
	}
	if err := repository.NewCustomerRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// Product 创建启用状态的商品，price 形如 "20.00"
func Product(t testing.TB, db *gorm.DB, name, price string, stock int) *model.Product {
	t.Helper()
	n := seq.Add(1)
	p := &model.Product{
		ID:     uuid.New().String(),
		SKU:    fmt.Sprintf("SKU-%05d", n),
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	if err := repository.NewProductRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// User 创建账号，密码哈希由调用方提供
func User(t testing.TB, db *gorm.DB, role, passwordHash string, customerID *string) *model.User {
	t.Helper()
	n := seq.Add(1)
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         fmt.Sprintf("usuario %d", n),
		Email:        fmt.Sprintf("usuario%d@example.com", n),
		PasswordHash: passwordHash,
		Role:         role,
		CustomerID:   customerID,
		Active:       true,
	}
	if err := repository.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// ReloadProduct 重新读取商品
func ReloadProduct(t testing.TB, db *gorm.DB, id string) *model.Product {
	t.Helper()
	var p model.Product
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &p
}

// ReloadCustomer 重新读取客户
func ReloadCustomer(t testing.TB, db *gorm.DB, id string) *model.Customer {
	t.Helper()
	var c model.Customer
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	return &c
}
