package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/testutil"
)

func newOrder(customerID string, p *model.Product, qty int, status model.OrderStatus) *model.Order {
	unit := p.Price
	sub := unit.Mul(decimal.NewFromInt(int64(qty)))
	id := uuid.New().String()
	return &model.Order{
		ID:            id,
		CustomerID:    customerID,
		OrderNumber:   "PED-" + id[:8],
		Status:        status,
		PaymentMethod: model.PaymentPix,
		Subtotal:      sub,
		Discount:      decimal.Zero,
		DeliveryFee:   decimal.Zero,
		Total:         sub,
		Items: []model.OrderItem{{
			ID:          uuid.New().String(),
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   unit,
			Quantity:    qty,
			Subtotal:    sub,
		}},
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")
	p := testutil.Product(t, db, "P", "12.50", 10)

	o := newOrder(c.ID, p, 2, model.OrderStatusPending)
	o.DeliveryAddress = &model.Address{Street: "Rua A", City: "Recife", State: "PE"}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, "25.00", got.Total.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, o.ID, got.Items[0].OrderID)
	require.NotNil(t, got.Items[0].Product)
	assert.Equal(t, p.ID, got.Items[0].Product.ID)
	require.NotNil(t, got.Customer)
	require.NotNil(t, got.DeliveryAddress)
	assert.Equal(t, "Recife", got.DeliveryAddress.City)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_DuplicateOrderNumber(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")
	p := testutil.Product(t, db, "P", "1.00", 10)

	a := newOrder(c.ID, p, 1, model.OrderStatusPending)
	require.NoError(t, repo.Create(ctx, a))
	b := newOrder(c.ID, p, 1, model.OrderStatusPending)
	b.OrderNumber = a.OrderNumber
	err := repo.Create(ctx, b)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestOrderRepository_UpdateFieldsAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")
	p := testutil.Product(t, db, "P", "1.00", 10)
	o := newOrder(c.ID, p, 1, model.OrderStatusPending)
	require.NoError(t, repo.Create(ctx, o))

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateFields(ctx, o.ID, map[string]interface{}{
		"status":            model.OrderStatusConfirmed,
		"confirmation_date": now,
		"delivery_address":  &model.Address{Street: "Nova"},
	}))
	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmationDate)
	assert.WithinDuration(t, now, *got.ConfirmationDate, time.Second)
	assert.Equal(t, "Nova", got.DeliveryAddress.Street)

	require.NoError(t, repo.Delete(ctx, o.ID))
	var items int64
	require.NoError(t, db.Model(&model.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
	assert.ErrorIs(t, repo.Delete(ctx, o.ID), gorm.ErrRecordNotFound)
}

func TestOrderRepository_ListDefaultsToNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")
	p := testutil.Product(t, db, "P", "1.00", 10)

	var ids []string
	for i := 0; i < 3; i++ {
		o := newOrder(c.ID, p, 1, model.OrderStatusPending)
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
		time.Sleep(2 * time.Millisecond)
	}

	orders, total, err := repo.List(ctx, repository.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	assert.Equal(t, ids[2], orders[0].ID)
	assert.Equal(t, ids[1], orders[1].ID)
	assert.Len(t, orders[0].Items, 1)

	orders, total, err = repo.List(ctx, repository.OrderFilter{Status: model.OrderStatusDelivered, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderRepository_Stats(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()
	c := testutil.Customer(t, db, "C")
	p := testutil.Product(t, db, "P", "10.00", 100)

	for _, st := range []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusPending,
		model.OrderStatusShipped,
		model.OrderStatusDelivered,
		model.OrderStatusCancelled,
	} {
		require.NoError(t, repo.Create(ctx, newOrder(c.ID, p, 1, st)))
	}

	st, err := repo.Stats(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.TotalOrders)
	assert.Equal(t, int64(2), st.PendingOrders)
	assert.Equal(t, int64(1), st.DeliveredOrders)
	assert.Equal(t, int64(1), st.CancelledOrders)
	assert.Equal(t, "40.00", st.Revenue.StringFixed(2))

	future := time.Now().UTC().Add(time.Hour)
	st, err = repo.Stats(ctx, &future, nil)
	require.NoError(t, err)
	assert.Zero(t, st.TotalOrders)
	assert.True(t, st.Revenue.IsZero())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
