package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusPreparing OrderStatus = "preparando"
	OrderStatusShipped   OrderStatus = "enviado"
	OrderStatusDelivered OrderStatus = "entregue"
	OrderStatusCancelled OrderStatus = "cancelado"
)

// OrderStatuses 全部状态，按生命周期顺序
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal 终态不可再变更
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Address 收货地址快照
type Address struct {
	Street       string `json:"rua"`
	Number       string `json:"numero"`
	Complement   string `json:"complemento,omitempty"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
	State        string `json:"estado"`
	ZipCode      string `json:"cep"`
}

// Value 以 JSON 文本存储
func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("unsupported address column type")
	}
}

// Order 订单头
type Order struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID         string          `json:"clienteId" gorm:"type:varchar(36);index;not null"`
	OrderNumber        string          `json:"numeroPedido" gorm:"type:varchar(32);uniqueIndex;not null"`
	Status             OrderStatus     `json:"status" gorm:"type:varchar(16);index;not null"`
	PaymentMethod      PaymentMethod   `json:"metodoPagamento" gorm:"type:varchar(32);index;not null"`
	Subtotal           decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Discount           decimal.Decimal `json:"desconto" gorm:"type:decimal(12,2);not null"`
	DeliveryFee        decimal.Decimal `json:"taxaEntrega" gorm:"type:decimal(12,2);not null"`
	Total              decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Notes              string          `json:"observacoes,omitempty" gorm:"type:text"`
	DeliveryAddress    *Address        `json:"enderecoEntrega,omitempty" gorm:"type:text"`
	ConfirmationDate   *time.Time      `json:"dataConfirmacao,omitempty"`
	DeliveryDate       *time.Time      `json:"dataEntrega,omitempty"`
	CancellationDate   *time.Time      `json:"dataCancelamento,omitempty"`
	CancellationReason string          `json:"motivoCancelamento,omitempty" gorm:"type:text"`
	CreatedAt          time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	Customer *Customer   `json:"cliente,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	Items    []OrderItem `json:"itens,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细，名称与单价为下单时快照
type OrderItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string          `json:"pedidoId" gorm:"type:varchar(36);index;not null"`
	ProductID   string          `json:"produtoId" gorm:"type:varchar(36);index;not null"`
	ProductName string          `json:"nomeProduto" gorm:"type:varchar(200);not null"`
	UnitPrice   decimal.Decimal `json:"precoUnitario" gorm:"type:decimal(12,2);not null"`
	Quantity    int             `json:"quantidade" gorm:"not null;check:chk_order_items_quantity,quantity >= 1"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Notes       string          `json:"observacoes,omitempty" gorm:"type:text"`
	Position    int             `json:"posicao" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"createdAt"`

	Product *Product `json:"produto,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}

func (OrderItem) TableName() string { return "order_items" }

// Money 金额统一保留两位小数
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
