package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/venda-certa/internal/api/middleware"
	"github.com/d60-Lab/venda-certa/pkg/response"
)

// GetProduct 商品详情
// @Summary 查询商品（库存、销量）
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Failure 404 {object} response.Response
// @Router /api/produtos/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.catalogService.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// ListCategories 分类树
// @Summary 分类树
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /api/categorias [get]
func (h *Handler) ListCategories(c *gin.Context) {
	tree, err := h.catalogService.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tree)
}

// GetCustomer 客户详情与统计
// @Summary 查询客户
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "客户ID"
// @Success 200 {object} response.Response{data=model.Customer}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/clientes/{id} [get]
func (h *Handler) GetCustomer(c *gin.Context) {
	id := c.Param("id")
	if !ownsCustomer(middleware.CurrentUser(c), id) {
		response.Forbidden(c, "acesso negado a outro cliente")
		return
	}
	cust, err := h.catalogService.Customer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cust)
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
