package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer 客户，统计字段随订单事务维护
type Customer struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string          `json:"nome" gorm:"type:varchar(150);not null"`
	Email         string          `json:"email" gorm:"type:varchar(150);uniqueIndex;not null"`
	Phone         string          `json:"telefone,omitempty" gorm:"type:varchar(32)"`
	Address       *Address        `json:"endereco,omitempty" gorm:"type:text"`
	TotalOrders   int             `json:"totalPedidos" gorm:"not null"`
	TotalSpent    decimal.Decimal `json:"totalGasto" gorm:"type:decimal(12,2);not null"`
	LastOrderDate *time.Time      `json:"ultimoPedido,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }
