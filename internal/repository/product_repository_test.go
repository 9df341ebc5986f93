package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/testutil"
)

func TestProductRepository_DecrementStock(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	p := testutil.Product(t, db, "P", "5.00", 3)

	ok, err := repo.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only 1 left")

	ok, err = repo.DecrementStock(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	got := testutil.ReloadProduct(t, db, p.ID)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 3, got.SalesCount)

	ok, err = repo.DecrementStock(ctx, "missing", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductRepository_RestoreStock(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	p := testutil.Product(t, db, "P", "5.00", 3)

	ok, err := repo.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.RestoreStock(ctx, p.ID, 3))

	got := testutil.ReloadProduct(t, db, p.ID)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 0, got.SalesCount)

	assert.ErrorIs(t, repo.RestoreStock(ctx, "missing", 1), gorm.ErrRecordNotFound)
}

func TestProductRepository_StockCheckConstraint(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Product(t, db, "P", "5.00", 1)
	err := db.Model(&model.Product{}).Where("id = ?", p.ID).Update("stock", -1).Error
	assert.Error(t, err)
}

func TestCustomerRepository_ApplyAndRevert(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCustomerRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")

	require.NoError(t, repo.ApplyOrder(ctx, c.ID, decimal.RequireFromString("42.10"), time.Now().UTC()))
	got := testutil.ReloadCustomer(t, db, c.ID)
	assert.Equal(t, 1, got.TotalOrders)
	assert.Equal(t, "42.10", got.TotalSpent.StringFixed(2))
	assert.NotNil(t, got.LastOrderDate)

	require.NoError(t, repo.RevertOrder(ctx, c.ID, decimal.RequireFromString("42.10")))
	got = testutil.ReloadCustomer(t, db, c.ID)
	assert.Equal(t, 0, got.TotalOrders)
	assert.Equal(t, "0.00", got.TotalSpent.StringFixed(2))

	assert.ErrorIs(t, repo.ApplyOrder(ctx, "missing", decimal.RequireFromString("1"), time.Now().UTC()), gorm.ErrRecordNotFound)
}

func TestCategoryRepository_Tree(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCategoryRepository(db)
	ctx := context.Background()

	food := &model.Category{Name: "Alimentos", Slug: "alimentos", Active: true}
	require.NoError(t, repo.Create(ctx, food))
	drinks := &model.Category{Name: "Bebidas", Slug: "bebidas", Active: true}
	require.NoError(t, repo.Create(ctx, drinks))
	juice := &model.Category{Name: "Sucos", Slug: "sucos", ParentID: &drinks.ID, Active: true}
	require.NoError(t, repo.Create(ctx, juice))
	off := &model.Category{Name: "Antigos", Slug: "antigos", Active: false}
	require.NoError(t, repo.Create(ctx, off))
	orphan := &model.Category{Name: "Órfã", Slug: "orfa", ParentID: &off.ID, Active: true}
	require.NoError(t, repo.Create(ctx, orphan))

	tree, err := repo.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, "Alimentos", tree[0].Name)
	assert.Equal(t, "Bebidas", tree[1].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Sucos", tree[1].Children[0].Name)
	assert.Equal(t, "Órfã", tree[2].Name)
}

func TestUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{Name: "Ana", Email: "Ana@Example.com", PasswordHash: "x", Role: model.RoleAdmin, Active: true}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "ANA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &model.User{Name: "Ana 2", Email: "ana@example.com", PasswordHash: "x", Role: model.RoleAdmin, Active: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)
}
