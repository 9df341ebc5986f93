package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/pkg/response"
)

// Handler HTTP 处理器
type Handler struct {
	orderService   service.OrderService
	authService    service.AuthService
	catalogService service.CatalogService
}

func NewHandler(orders service.OrderService, auth service.AuthService, catalog service.CatalogService) *Handler {
	return &Handler{
		orderService:   orders,
		authService:    auth,
		catalogService: catalog,
	}
}

// RegisterValidators 注册自定义校验规则，字段名使用 json 标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
		return model.OrderStatus(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return model.PaymentMethod(fl.Field().String()).Valid()
	})
}

// bindError 校验错误逐字段返回，其它（JSON 格式错误等）返回 400
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.Error(c, err)
		return
	}
	response.BadRequest(c, "corpo da requisição inválido", err.Error())
}
