package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
)

// CustomerRepository 客户仓储，统计字段只通过 ApplyOrder/RevertOrder 修改
type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	// ApplyOrder 订单数 +1，消费额 +total，更新最近下单时间
	ApplyOrder(ctx context.Context, id string, total decimal.Decimal, at time.Time) error
	// RevertOrder 订单数 -1，消费额 -total
	RevertOrder(ctx context.Context, id string, total decimal.Decimal) error
}

type customerRepository struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepository{db: db} }

func (r *customerRepository) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) ApplyOrder(ctx context.Context, id string, total decimal.Decimal, at time.Time) error {
	return r.adjust(ctx, id, map[string]interface{}{
		"total_orders":    gorm.Expr("total_orders + 1"),
		"total_spent":     gorm.Expr("total_spent + ?", total),
		"last_order_date": at,
	})
}

func (r *customerRepository) RevertOrder(ctx context.Context, id string, total decimal.Decimal) error {
	return r.adjust(ctx, id, map[string]interface{}{
		"total_orders": gorm.Expr("total_orders - 1"),
		"total_spent":  gorm.Expr("total_spent - ?", total),
	})
}

func (r *customerRepository) adjust(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Customer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
