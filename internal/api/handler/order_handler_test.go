package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/api/handler"
	"github.com/d60-Lab/venda-certa/internal/api/router"
	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/internal/testutil"
)

type apiEnv struct {
	db       *gorm.DB
	engine   *gin.Engine
	customer *model.Customer
	product  *model.Product
	tokens   map[string]string
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
	Pagination *struct {
		CurrentPage  int   `json:"currentPage"`
		TotalPages   int   `json:"totalPages"`
		TotalItems   int64 `json:"totalItems"`
		ItemsPerPage int   `json:"itemsPerPage"`
		HasNextPage  bool  `json:"hasNextPage"`
		HasPrevPage  bool  `json:"hasPrevPage"`
	} `json:"pagination"`
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handler.RegisterValidators())

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	auth := service.NewAuthService(store.Users, "test-secret", "venda-certa", 1)
	h := handler.NewHandler(
		service.NewOrderService(store, service.OrderServiceOptions{DefaultPageSize: 10, MaxPageSize: 100}),
		auth,
		service.NewCatalogService(store),
	)

	env := &apiEnv{
		db:       db,
		engine:   router.Setup(h, router.Options{Auth: auth}),
		customer: testutil.Customer(t, db, "Maria"),
		product:  testutil.Product(t, db, "Café", "20.00", 10),
		tokens:   map[string]string{},
	}
	for _, role := range []string{model.RoleAdmin, model.RoleDelivery, model.RoleCustomer} {
		var cid *string
		if role == model.RoleCustomer {
			cid = &env.customer.ID
		}
		u := testutil.User(t, db, role, "unused", cid)
		token, _, err := auth.IssueToken(u)
		require.NoError(t, err)
		env.tokens[role] = token
	}
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[role])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (e *apiEnv) createBody(qty int) map[string]any {
	return map[string]any{
		"clienteId":       e.customer.ID,
		"metodoPagamento": "pix",
		"itens":           []map[string]any{{"produtoId": e.product.ID, "quantidade": qty}},
	}
}

func (e *apiEnv) createOrder(t *testing.T, qty int) string {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/pedidos", model.RoleAdmin, e.createBody(qty))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var o struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &o))
	return o.ID
}

func TestCreateOrder_AsCustomer(t *testing.T) {
	e := newAPI(t)

	w, env := e.do(t, http.MethodPost, "/api/pedidos", model.RoleCustomer, e.createBody(3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Message)

	var o model.Order
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, "60.00", o.Total.StringFixed(2))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Café", o.Items[0].ProductName)
	assert.Equal(t, 7, testutil.ReloadProduct(t, e.db, e.product.ID).Stock)
}

func TestCreateOrder_Rejections(t *testing.T) {
	e := newAPI(t)
	other := testutil.Customer(t, e.db, "João")

	w, _ := e.do(t, http.MethodPost, "/api/pedidos", "", e.createBody(1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := e.createBody(1)
	body["clienteId"] = other.ID
	w, _ = e.do(t, http.MethodPost, "/api/pedidos", model.RoleCustomer, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/pedidos", model.RoleAdmin, map[string]any{
		"clienteId":       e.customer.ID,
		"metodoPagamento": "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	joined := strings.Join(env.Errors, "|")
	assert.Contains(t, joined, "itens")
	assert.Contains(t, joined, "metodoPagamento")

	w, _ = e.do(t, http.MethodPost, "/api/pedidos", model.RoleAdmin, `{"clienteId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = e.do(t, http.MethodPost, "/api/pedidos", model.RoleAdmin, e.createBody(15))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "estoque insuficiente")
	assert.Equal(t, 10, testutil.ReloadProduct(t, e.db, e.product.ID).Stock)

	body = e.createBody(1)
	body["itens"] = []map[string]any{{"produtoId": "missing", "quantidade": 1}}
	w, _ = e.do(t, http.MethodPost, "/api/pedidos", model.RoleAdmin, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder(t *testing.T) {
	e := newAPI(t)
	id := e.createOrder(t, 1)

	w, env := e.do(t, http.MethodGet, "/api/pedidos/"+id, model.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	other := testutil.Customer(t, e.db, "João")
	e.customer = other
	foreign := e.createOrder(t, 1)
	w, _ = e.do(t, http.MethodGet, "/api/pedidos/"+foreign, model.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/pedidos/missing", model.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrders(t *testing.T) {
	e := newAPI(t)
	for i := 0; i < 3; i++ {
		e.createOrder(t, 1)
	}

	w, _ := e.do(t, http.MethodGet, "/api/pedidos", model.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := e.do(t, http.MethodGet, "/api/pedidos?page=1&limit=2&sortBy=total&sortOrder=ASC", model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var orders []model.Order
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	assert.Len(t, orders, 2)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(3), env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.True(t, env.Pagination.HasNextPage)

	w, env = e.do(t, http.MethodGet, "/api/pedidos?status=entregue", model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, int64(0), env.Pagination.TotalItems)

	w, env = e.do(t, http.MethodGet, "/api/pedidos?sortBy=senha", model.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, env.Errors)
}

func TestOrderStats(t *testing.T) {
	e := newAPI(t)
	e.createOrder(t, 1)
	e.createOrder(t, 2)

	w, env := e.do(t, http.MethodGet, "/api/pedidos/stats", model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st service.OrderStats
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, int64(2), st.TotalOrders)
	assert.Equal(t, "60.00", st.TotalRevenue.StringFixed(2))
	assert.Equal(t, "30.00", st.AverageOrderValue.StringFixed(2))

	w, _ = e.do(t, http.MethodGet, "/api/pedidos/stats", model.RoleDelivery, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateOrder(t *testing.T) {
	e := newAPI(t)
	id := e.createOrder(t, 2)

	w, _ := e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleCustomer, map[string]any{"observacoes": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleDelivery, map[string]any{"status": "cancelado", "motivoCancelamento": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleAdmin, map[string]any{"status": "pago"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, strings.Join(env.Errors, "|"), "status")

	w, _ = e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleAdmin, map[string]any{"status": "cancelado"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, st := range []string{"confirmado", "preparando"} {
		w, _ = e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleAdmin, map[string]any{"status": st})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w, env = e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleDelivery, map[string]any{"status": "enviado"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var o model.Order
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, model.OrderStatusShipped, o.Status)

	w, _ = e.do(t, http.MethodPut, "/api/pedidos/"+id, model.RoleAdmin, map[string]any{"metodoPagamento": "boleto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPut, "/api/pedidos/missing", model.RoleAdmin, map[string]any{"observacoes": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOrder(t *testing.T) {
	e := newAPI(t)
	pending := e.createOrder(t, 4)
	confirmed := e.createOrder(t, 1)
	w, _ := e.do(t, http.MethodPut, "/api/pedidos/"+confirmed, model.RoleAdmin, map[string]any{"status": "confirmado"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodDelete, "/api/pedidos/"+pending, model.RoleDelivery, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodDelete, "/api/pedidos/"+confirmed, model.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := e.do(t, http.MethodDelete, "/api/pedidos/"+pending, model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 9, testutil.ReloadProduct(t, e.db, e.product.ID).Stock)

	w, _ = e.do(t, http.MethodDelete, "/api/pedidos/"+pending, model.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginAndCatalog(t *testing.T) {
	e := newAPI(t)
	hash, err := service.HashPassword("segredo123")
	require.NoError(t, err)
	u := testutil.User(t, e.db, model.RoleAdmin, hash, nil)

	w, env := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": u.Email, "senha": "segredo123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	assert.NotContains(t, string(env.Data), hash)

	w, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": u.Email, "senha": "errada"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	e.tokens["fresh"] = res.Token
	w, _ = e.do(t, http.MethodGet, "/api/produtos/"+e.product.ID, "fresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/produtos/"+e.product.ID, model.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/clientes/"+e.customer.ID, model.RoleCustomer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/clientes/someone-else", model.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = e.do(t, http.MethodGet, "/api/categorias", model.RoleDelivery, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
