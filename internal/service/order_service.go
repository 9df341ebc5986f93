package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/pkg/apperr"
	"github.com/d60-Lab/venda-certa/pkg/logger"
)

var tracer = otel.Tracer("github.com/d60-Lab/venda-certa/internal/service")

// CreateOrderItemInput 下单明细
type CreateOrderItemInput struct {
	ProductID string `json:"produtoId" binding:"required"`
	Quantity  int    `json:"quantidade" binding:"required,min=1"`
	Notes     string `json:"observacoes" binding:"max=500"`
}

// CreateOrderInput 下单请求
type CreateOrderInput struct {
	CustomerID      string                 `json:"clienteId" binding:"required"`
	PaymentMethod   model.PaymentMethod    `json:"metodoPagamento" binding:"required,paymentmethod"`
	Items           []CreateOrderItemInput `json:"itens" binding:"required,min=1,dive"`
	Discount        *decimal.Decimal       `json:"desconto"`
	DeliveryFee     *decimal.Decimal       `json:"taxaEntrega"`
	Notes           string                 `json:"observacoes" binding:"max=1000"`
	DeliveryAddress *model.Address         `json:"enderecoEntrega"`
}

// UpdateOrderInput 订单更新，字段为空表示不修改
type UpdateOrderInput struct {
	Status             *model.OrderStatus   `json:"status" binding:"omitempty,orderstatus"`
	CancellationReason *string              `json:"motivoCancelamento" binding:"omitempty,max=500"`
	PaymentMethod      *model.PaymentMethod `json:"metodoPagamento" binding:"omitempty,paymentmethod"`
	Notes              *string              `json:"observacoes" binding:"omitempty,max=1000"`
	DeliveryAddress    *model.Address       `json:"enderecoEntrega"`
}

// ListOrdersQuery 列表查询参数
type ListOrdersQuery struct {
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
	Search        string `form:"search"`
	CustomerID    string `form:"clienteId"`
	Status        string `form:"status"`
	PaymentMethod string `form:"metodoPagamento"`
	DateFrom      string `form:"dateFrom"`
	DateTo        string `form:"dateTo"`
	SortBy        string `form:"sortBy"`
	SortOrder     string `form:"sortOrder"`
}

// PageInfo 分页信息
type PageInfo struct {
	CurrentPage  int
	TotalPages   int
	TotalItems   int64
	ItemsPerPage int
	HasNextPage  bool
	HasPrevPage  bool
}

// OrderPage 一页订单
type OrderPage struct {
	Orders []*model.Order
	Page   PageInfo
}

// OrderStats 统计结果
type OrderStats struct {
	TotalOrders       int64           `json:"totalOrders"`
	PendingOrders     int64           `json:"pendingOrders"`
	DeliveredOrders   int64           `json:"deliveredOrders"`
	CancelledOrders   int64           `json:"cancelledOrders"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// StatsCache 统计缓存
type StatsCache interface {
	Generation(ctx context.Context) int64
	Load(ctx context.Context, rangeKey string, dst any) bool
	Store(ctx context.Context, gen int64, rangeKey string, v any)
	Invalidate(ctx context.Context)
}

// OrderService 订单生命周期服务
type OrderService interface {
	Create(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context, q ListOrdersQuery) (*OrderPage, error)
	Update(ctx context.Context, id string, in UpdateOrderInput) (*model.Order, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, dateFrom, dateTo string) (*OrderStats, error)
}

// OrderServiceOptions 可选配置；Events 在写入提交后被唤醒
type OrderServiceOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	Cache           StatsCache
	Events          Notifier
	Now             func() time.Time
}

// Notifier 订单写入提交后的通知
type Notifier interface {
	Notify()
}

type orderService struct {
	store    *repository.Store
	cache    StatsCache
	events   Notifier
	now      func() time.Time
	pageSize int
	maxPage  int
}

func NewOrderService(store *repository.Store, opts OrderServiceOptions) OrderService {
	s := &orderService{
		store:    store,
		cache:    opts.Cache,
		events:   opts.Events,
		now:      opts.Now,
		pageSize: opts.DefaultPageSize,
		maxPage:  opts.MaxPageSize,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.pageSize <= 0 {
		s.pageSize = 10
	}
	if s.maxPage < s.pageSize {
		s.maxPage = 100
	}
	return s
}

// committed 订单写入提交后：统计缓存失效并唤醒事件外发
func (s *orderService) committed(ctx context.Context) {
	s.cache.Invalidate(ctx)
	if s.events != nil {
		s.events.Notify()
	}
}

type noopCache struct{}

func (noopCache) Generation(context.Context) int64          { return -1 }
func (noopCache) Load(context.Context, string, any) bool    { return false }
func (noopCache) Store(context.Context, int64, string, any) {}
func (noopCache) Invalidate(context.Context)                {}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := s.now()
	var order *model.Order
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		customer, err := tx.Customers.GetByID(ctx, in.CustomerID)
		if err != nil {
			return notFoundOr(err, "cliente %s não encontrado", in.CustomerID)
		}

		o, err := buildOrder(ctx, tx, customer, in, now)
		if err != nil {
			return err
		}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}
		for _, it := range o.Items {
			ok, err := tx.Products.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.InsufficientStock("estoque insuficiente para o produto %s", it.ProductName)
			}
		}
		if err := tx.Customers.ApplyOrder(ctx, customer.ID, o.Total, now); err != nil {
			return err
		}
		order = o
		return recordEvent(ctx, tx, o, model.EventOrderCreated, "", now)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", order.Total.StringFixed(2)))
	s.committed(ctx)
	logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return s.store.Orders.GetByID(ctx, order.ID)
}

// buildOrder 校验商品并计算金额；对同一商品的多行按累计数量检查库存
func buildOrder(ctx context.Context, tx *repository.Store, customer *model.Customer, in CreateOrderInput, now time.Time) (*model.Order, error) {
	products := make(map[string]*model.Product, len(in.Items))
	requested := make(map[string]int, len(in.Items))
	items := make([]model.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero

	for i, line := range in.Items {
		p, ok := products[line.ProductID]
		if !ok {
			var err error
			p, err = tx.Products.GetByID(ctx, line.ProductID)
			if err != nil {
				return nil, notFoundOr(err, "produto %s não encontrado", line.ProductID)
			}
			if !p.Active {
				return nil, apperr.InvalidState("produto %s está inativo", p.Name)
			}
			products[p.ID] = p
		}
		requested[p.ID] += line.Quantity
		if p.Stock < requested[p.ID] {
			return nil, apperr.InsufficientStock("estoque insuficiente para o produto %s: disponível %d, solicitado %d",
				p.Name, p.Stock, requested[p.ID])
		}

		unit := model.Money(p.EffectivePrice())
		lineTotal := model.Money(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, model.OrderItem{
			ID:          uuid.New().String(),
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   unit,
			Quantity:    line.Quantity,
			Subtotal:    lineTotal,
			Notes:       strings.TrimSpace(line.Notes),
			Position:    i,
		})
	}

	discount := decimal.Zero
	if in.Discount != nil {
		discount = model.Money(*in.Discount)
	}
	fee := decimal.Zero
	if in.DeliveryFee != nil {
		fee = model.Money(*in.DeliveryFee)
	}
	total := subtotal.Sub(discount).Add(fee)
	if total.IsNegative() {
		return nil, apperr.Validation("desconto maior que o valor do pedido", "desconto: não pode exceder subtotal + taxa de entrega")
	}

	address := in.DeliveryAddress
	if address == nil && customer.Address != nil {
		snap := *customer.Address
		address = &snap
	}

	return &model.Order{
		ID:              uuid.New().String(),
		CustomerID:      customer.ID,
		OrderNumber:     newOrderNumber(now),
		Status:          model.OrderStatusPending,
		PaymentMethod:   in.PaymentMethod,
		Subtotal:        subtotal,
		Discount:        discount,
		DeliveryFee:     fee,
		Total:           total,
		Notes:           strings.TrimSpace(in.Notes),
		DeliveryAddress: address,
		Items:           items,
	}, nil
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PED-%s-%s", now.Format("20060102"), suffix)
}

func validateCreate(in CreateOrderInput) error {
	var fields []string
	if strings.TrimSpace(in.CustomerID) == "" {
		fields = append(fields, "clienteId é obrigatório")
	}
	if !in.PaymentMethod.Valid() {
		fields = append(fields, "metodoPagamento: método de pagamento inválido")
	}
	if len(in.Items) == 0 {
		fields = append(fields, "itens: o pedido deve ter pelo menos um item")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			fields = append(fields, fmt.Sprintf("itens[%d].produtoId é obrigatório", i))
		}
		if it.Quantity < 1 {
			fields = append(fields, fmt.Sprintf("itens[%d].quantidade deve ser no mínimo 1", i))
		}
	}
	if in.Discount != nil && in.Discount.IsNegative() {
		fields = append(fields, "desconto não pode ser negativo")
	}
	if in.DeliveryFee != nil && in.DeliveryFee.IsNegative() {
		fields = append(fields, "taxaEntrega não pode ser negativa")
	}
	if len(fields) > 0 {
		return apperr.Validation("dados do pedido inválidos", fields...)
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "pedido %s não encontrado", id)
	}
	return order, nil
}

func (s *orderService) Update(ctx context.Context, id string, in UpdateOrderInput) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Update", withOrderID(id))
	defer span.End()

	reason := ""
	if in.CancellationReason != nil {
		reason = strings.TrimSpace(*in.CancellationReason)
	}
	if in.Status != nil && *in.Status == model.OrderStatusCancelled && reason == "" {
		return nil, apperr.Validation("motivo do cancelamento é obrigatório", "motivoCancelamento é obrigatório para cancelar o pedido")
	}
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return nil, apperr.Validation("método de pagamento inválido", "metodoPagamento: valor desconhecido")
	}

	now := s.now()
	changed := false
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		order, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "pedido %s não encontrado", id)
		}

		fields := map[string]interface{}{}
		event := model.EventOrderUpdated

		if in.PaymentMethod != nil && *in.PaymentMethod != order.PaymentMethod {
			if lockedAfterShipment(order.Status) {
				return apperr.InvalidState("método de pagamento não pode ser alterado com o pedido %s", order.Status)
			}
			fields["payment_method"] = *in.PaymentMethod
		}
		if in.DeliveryAddress != nil {
			if lockedAfterShipment(order.Status) {
				return apperr.InvalidState("endereço de entrega não pode ser alterado com o pedido %s", order.Status)
			}
			fields["delivery_address"] = in.DeliveryAddress
		}
		if in.Notes != nil {
			fields["notes"] = strings.TrimSpace(*in.Notes)
		}

		if in.Status != nil && *in.Status != order.Status {
			to := *in.Status
			if err := CanTransition(order.Status, to); err != nil {
				return err
			}
			for k, v := range transitionFields(to, reason, now) {
				fields[k] = v
			}
			event = model.EventOrderStatusChanged
			if to == model.OrderStatusCancelled {
				if err := compensate(ctx, tx, order); err != nil {
					return err
				}
				event = model.EventOrderCancelled
			}
			order.Status = to
		}

		if len(fields) == 0 {
			return nil
		}
		if err := tx.Orders.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		changed = true
		return recordEvent(ctx, tx, order, event, reason, now)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if changed {
		s.committed(ctx)
		logger.Info("order updated", zap.String("order_id", id))
	}
	return s.Get(ctx, id)
}

// compensate 回补库存、销量与客户统计
func compensate(ctx context.Context, tx *repository.Store, order *model.Order) error {
	for _, it := range order.Items {
		if err := tx.Products.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("restore stock for product %s: %w", it.ProductID, err)
		}
	}
	if err := tx.Customers.RevertOrder(ctx, order.CustomerID, order.Total); err != nil {
		return fmt.Errorf("revert customer stats: %w", err)
	}
	return nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "OrderService.Delete", withOrderID(id))
	defer span.End()

	now := s.now()
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		order, err := tx.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "pedido %s não encontrado", id)
		}
		switch order.Status {
		case model.OrderStatusPending:
			if err := compensate(ctx, tx, order); err != nil {
				return err
			}
		case model.OrderStatusCancelled:
		default:
			return apperr.InvalidState("apenas pedidos pendentes ou cancelados podem ser removidos (status atual: %s)", order.Status)
		}
		if err := tx.Orders.Delete(ctx, id); err != nil {
			return err
		}
		return recordEvent(ctx, tx, order, model.EventOrderDeleted, "", now)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.committed(ctx)
	logger.Info("order deleted", zap.String("order_id", id))
	return nil
}

func (s *orderService) List(ctx context.Context, q ListOrdersQuery) (*OrderPage, error) {
	ctx, span := tracer.Start(ctx, "OrderService.List")
	defer span.End()

	f, page, limit, err := s.buildFilter(q)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.store.Orders.List(ctx, f)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &OrderPage{
		Orders: orders,
		Page: PageInfo{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
			HasNextPage:  page < totalPages,
			HasPrevPage:  page > 1,
		},
	}, nil
}

func (s *orderService) buildFilter(q ListOrdersQuery) (repository.OrderFilter, int, int, error) {
	var fields []string
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = s.pageSize
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}

	f := repository.OrderFilter{
		Search:     q.Search,
		CustomerID: strings.TrimSpace(q.CustomerID),
		Offset:     (page - 1) * limit,
		Limit:      limit,
	}
	if q.Status != "" {
		st := model.OrderStatus(q.Status)
		if !st.Valid() {
			fields = append(fields, "status: valor desconhecido "+q.Status)
		}
		f.Status = st
	}
	if q.PaymentMethod != "" {
		pm := model.PaymentMethod(q.PaymentMethod)
		if !pm.Valid() {
			fields = append(fields, "metodoPagamento: valor desconhecido "+q.PaymentMethod)
		}
		f.PaymentMethod = pm
	}
	var err error
	if f.DateFrom, err = parseDateBound(q.DateFrom, false); err != nil {
		fields = append(fields, "dateFrom: "+err.Error())
	}
	if f.DateTo, err = parseDateBound(q.DateTo, true); err != nil {
		fields = append(fields, "dateTo: "+err.Error())
	}
	if q.SortBy != "" {
		col, ok := repository.OrderSortColumns[q.SortBy]
		if !ok {
			fields = append(fields, "sortBy: campo de ordenação inválido "+q.SortBy)
		}
		f.SortColumn = col
		switch strings.ToUpper(q.SortOrder) {
		case "", "DESC":
			f.SortDesc = true
		case "ASC":
		default:
			fields = append(fields, "sortOrder: use ASC ou DESC")
		}
	}
	if len(fields) > 0 {
		return f, 0, 0, apperr.Validation("parâmetros de consulta inválidos", fields...)
	}
	return f, page, limit, nil
}

func (s *orderService) Stats(ctx context.Context, dateFrom, dateTo string) (*OrderStats, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	from, err := parseDateBound(dateFrom, false)
	if err != nil {
		return nil, apperr.Validation("parâmetros de consulta inválidos", "dateFrom: "+err.Error())
	}
	to, err := parseDateBound(dateTo, true)
	if err != nil {
		return nil, apperr.Validation("parâmetros de consulta inválidos", "dateTo: "+err.Error())
	}

	key := rangeKey(from, to)
	gen := s.cache.Generation(ctx)
	var cached OrderStats
	if s.cache.Load(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	raw, err := s.store.Orders.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	stats := &OrderStats{
		TotalOrders:       raw.TotalOrders,
		PendingOrders:     raw.PendingOrders,
		DeliveredOrders:   raw.DeliveredOrders,
		CancelledOrders:   raw.CancelledOrders,
		TotalRevenue:      raw.Revenue,
		AverageOrderValue: averageOrderValue(raw),
	}
	s.cache.Store(ctx, gen, key, stats)
	return stats, nil
}

// averageOrderValue 全部取消（或无订单）时为 0
func averageOrderValue(st *repository.OrderStats) decimal.Decimal {
	counted := st.TotalOrders - st.CancelledOrders
	if counted <= 0 {
		return decimal.Zero
	}
	return st.Revenue.Div(decimal.NewFromInt(counted)).Round(2)
}

func rangeKey(from, to *time.Time) string {
	f, t := "-", "-"
	if from != nil {
		f = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		t = to.UTC().Format(time.RFC3339)
	}
	return f + "_" + t
}

// parseDateBound 支持 YYYY-MM-DD 与 RFC3339；纯日期作为上界时取当天结束
func parseDateBound(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, errors.New("data inválida, use AAAA-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// notFoundOr 记录不存在时转为 NotFound，其它错误原样返回
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}
