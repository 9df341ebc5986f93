package router

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/venda-certa/docs"
	"github.com/d60-Lab/venda-certa/internal/api/handler"
	"github.com/d60-Lab/venda-certa/internal/api/middleware"
	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/service"
)

// Options 路由依赖
type Options struct {
	ServiceName string
	Auth        service.AuthService
	RateLimiter *middleware.IPRateLimiter
	// Swagger 为 false 时不挂载 /swagger
	Swagger bool
}

// Setup 注册中间件与全部路由
func Setup(h *handler.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(middleware.RequestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware())
	}

	r.GET("/health", h.Health)
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api")
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(opts.Auth))
	{
		authed.GET("/auth/me", h.Me)

		admin := middleware.RequireRoles(model.RoleAdmin)

		pedidos := authed.Group("/pedidos")
		pedidos.POST("", h.CreateOrder)
		pedidos.GET("", admin, h.ListOrders)
		pedidos.GET("/stats", admin, h.OrderStats)
		pedidos.GET("/:id", h.GetOrder)
		pedidos.PUT("/:id", middleware.RequireRoles(model.RoleAdmin, model.RoleDelivery), h.UpdateOrder)
		pedidos.DELETE("/:id", admin, h.DeleteOrder)

		authed.GET("/produtos/:id", admin, h.GetProduct)
		authed.GET("/categorias", h.ListCategories)
		authed.GET("/clientes/:id", middleware.RequireRoles(model.RoleAdmin, model.RoleCustomer), h.GetCustomer)
	}
	return r
}
