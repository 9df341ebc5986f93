package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/venda-certa/internal/api/middleware"
	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/pkg/response"
)

// CreateOrder 创建订单
// @Summary 创建订单（扣减库存）
// @Tags 订单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateOrderInput true "订单信息"
// @Success 201 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/pedidos [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !ownsCustomer(middleware.CurrentUser(c), req.CustomerID) {
		response.Forbidden(c, "clientes só podem criar pedidos para si mesmos")
		return
	}
	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Pedido criado com sucesso", order)
}

// ListOrders 订单列表
// @Summary 分页查询订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param search query string false "订单号或备注"
// @Param clienteId query string false "客户ID"
// @Param status query string false "状态"
// @Param metodoPagamento query string false "支付方式"
// @Param dateFrom query string false "起始日期 AAAA-MM-DD"
// @Param dateTo query string false "结束日期 AAAA-MM-DD"
// @Param sortBy query string false "排序字段" default(createdAt)
// @Param sortOrder query string false "ASC 或 DESC" default(DESC)
// @Success 200 {object} response.Response{data=[]model.Order}
// @Failure 400 {object} response.Response
// @Router /api/pedidos [get]
func (h *Handler) ListOrders(c *gin.Context) {
	var q service.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.orderService.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page.Orders, response.Pagination{
		CurrentPage:  page.Page.CurrentPage,
		TotalPages:   page.Page.TotalPages,
		TotalItems:   page.Page.TotalItems,
		ItemsPerPage: page.Page.ItemsPerPage,
		HasNextPage:  page.Page.HasNextPage,
		HasPrevPage:  page.Page.HasPrevPage,
	})
}

// OrderStats 订单统计
// @Summary 订单统计
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param dateFrom query string false "起始日期"
// @Param dateTo query string false "结束日期"
// @Success 200 {object} response.Response{data=service.OrderStats}
// @Router /api/pedidos/stats [get]
func (h *Handler) OrderStats(c *gin.Context) {
	stats, err := h.orderService.Stats(c.Request.Context(), c.Query("dateFrom"), c.Query("dateTo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// GetOrder 订单详情
// @Summary 查询订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Router /api/pedidos/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ownsCustomer(middleware.CurrentUser(c), order.CustomerID) {
		response.Forbidden(c, "pedido pertence a outro cliente")
		return
	}
	response.Success(c, order)
}

// UpdateOrder 更新订单状态或信息
// @Summary 更新订单
// @Tags 订单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Param request body service.UpdateOrderInput true "更新内容"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/pedidos/{id} [put]
func (h *Handler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if u := middleware.CurrentUser(c); u != nil && u.Role == model.RoleDelivery && !deliveryUpdate(req) {
		response.Forbidden(c, "entregadores só podem marcar pedidos como enviado ou entregue")
		return
	}
	order, err := h.orderService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Pedido atualizado com sucesso", order)
}

// DeleteOrder 删除订单（仅待处理或已取消）
// @Summary 删除订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/pedidos/{id} [delete]
func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Pedido removido com sucesso", nil)
}

// ownsCustomer customer 角色只能访问自己的客户记录
func ownsCustomer(u *model.User, customerID string) bool {
	if u == nil || u.Role != model.RoleCustomer {
		return true
	}
	return u.CustomerID != nil && *u.CustomerID == customerID
}

func deliveryUpdate(req service.UpdateOrderInput) bool {
	if req.Status == nil || req.PaymentMethod != nil || req.DeliveryAddress != nil || req.CancellationReason != nil {
		return false
	}
	return *req.Status == model.OrderStatusShipped || *req.Status == model.OrderStatusDelivered
}
