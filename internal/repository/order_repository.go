package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/venda-certa/internal/model"
)

// OrderSortColumns 允许排序的字段（接口字段名 -> 列名）
var OrderSortColumns = map[string]string{
	"id":               "id",
	"clienteId":        "customer_id",
	"numeroPedido":     "order_number",
	"status":           "status",
	"metodoPagamento":  "payment_method",
	"subtotal":         "subtotal",
	"desconto":         "discount",
	"taxaEntrega":      "delivery_fee",
	"total":            "total",
	"dataConfirmacao":  "confirmation_date",
	"dataEntrega":      "delivery_date",
	"dataCancelamento": "cancellation_date",
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
}

// OrderFilter 订单列表查询条件
type OrderFilter struct {
	Search        string
	CustomerID    string
	Status        model.OrderStatus
	PaymentMethod model.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
	// SortColumn 必须来自 OrderSortColumns 的值
	SortColumn string
	SortDesc   bool
	Offset     int
	Limit      int
}

// OrderStats 订单统计原始数据
type OrderStats struct {
	TotalOrders     int64
	PendingOrders   int64
	DeliveredOrders int64
	CancelledOrders int64
	// Revenue 非取消订单 total 之和
	Revenue decimal.Decimal
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 创建订单头及明细
	Create(ctx context.Context, order *model.Order) error

	// GetByID 查询订单并加载明细、商品与客户
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// GetForUpdate 加行锁查询订单及明细（需在事务内调用）
	GetForUpdate(ctx context.Context, id string) (*model.Order, error)

	// List 按条件分页查询
	List(ctx context.Context, f OrderFilter) ([]*model.Order, int64, error)

	// UpdateFields 更新指定字段
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete 删除订单及其明细
	Delete(ctx context.Context, id string) error

	// Stats 统计时间范围内的订单
	Stats(ctx context.Context, from, to *time.Time) (*OrderStats, error)

	// Count 统计订单数量
	Count(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepository{db: db} }

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return db.Omit(clause.Associations).Create(&order.Items).Error
}

// itemsInPosition 按下单时的行顺序返回明细
func itemsInPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", itemsInPosition).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", itemsInPosition).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, f OrderFilter) ([]*model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(order_number) LIKE ? OR LOWER(notes) LIKE ?)", like, like)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*model.Order, 0)
	if total == 0 {
		return orders, 0, nil
	}

	col := f.SortColumn
	if col == "" {
		col = "created_at"
		f.SortDesc = true
	}
	err := q.
		Preload("Customer").
		Preload("Items", itemsInPosition).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.SortDesc}).
		Order("id ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type statusBucket struct {
	Status  string
	Cnt     int64
	Revenue decimal.Decimal
}

func (r *orderRepository) Stats(ctx context.Context, from, to *time.Time) (*OrderStats, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var buckets []statusBucket
	err := q.
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(total), 0) AS revenue").
		Group("status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{Revenue: decimal.Zero}
	for _, b := range buckets {
		stats.TotalOrders += b.Cnt
		switch model.OrderStatus(b.Status) {
		case model.OrderStatusPending:
			stats.PendingOrders += b.Cnt
		case model.OrderStatusDelivered:
			stats.DeliveredOrders += b.Cnt
		case model.OrderStatusCancelled:
			stats.CancelledOrders += b.Cnt
			continue
		}
		stats.Revenue = stats.Revenue.Add(b.Revenue)
	}
	stats.Revenue = model.Money(stats.Revenue)
	return stats, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error
	return count, err
}
