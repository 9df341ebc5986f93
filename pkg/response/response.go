package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/pkg/apperr"
	"github.com/d60-Lab/venda-certa/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Page 列表响应，空列表也返回 []
func Page(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: &p})
}

func BadRequest(c *gin.Context, message string, errs ...string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Success: false, Message: message, Errors: errs})
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Message: message})
}

func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{Success: false, Message: message})
}

func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Response{Success: false, Message: message})
}

func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Success: false, Message: "muitas requisições, tente novamente em instantes"})
}

// InternalError 记录日志并上报 sentry，release 模式下隐藏错误详情
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	msg := "erro interno do servidor"
	if gin.Mode() != gin.ReleaseMode {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Success: false, Message: msg})
}

// Error 按错误类别输出响应
func Error(c *gin.Context, err error) {
	err = Translate(err)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		InternalError(c, err)
		return
	}
	c.AbortWithStatusJSON(StatusOf(ae.Kind), Response{Success: false, Message: ae.Message, Errors: ae.Fields})
}

// StatusOf 错误类别对应的 HTTP 状态码
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidState, apperr.KindInsufficientStock:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Translate 将 gorm / validator 错误映射为业务错误
func Translate(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("registro não encontrado")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("registro duplicado: valor já cadastrado")
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation("dados inválidos", FieldErrors(verrs)...)
	}
	return err
}

// FieldErrors 生成字段级错误信息
func FieldErrors(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s é obrigatório", field))
		case "min", "gte", "gt":
			out = append(out, fmt.Sprintf("%s deve ser no mínimo %s", field, fe.Param()))
		case "max", "lte":
			out = append(out, fmt.Sprintf("%s deve ser no máximo %s", field, fe.Param()))
		case "oneof":
			out = append(out, fmt.Sprintf("%s deve ser um de: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "orderstatus":
			out = append(out, fmt.Sprintf("%s: status inválido", field))
		case "paymentmethod":
			out = append(out, fmt.Sprintf("%s: método de pagamento inválido", field))
		default:
			out = append(out, fmt.Sprintf("%s inválido (%s)", field, fe.Tag()))
		}
	}
	return out
}
