package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品，库存由订单生命周期增减
type Product struct {
	ID               string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SKU              string           `json:"sku" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name             string           `json:"nome" gorm:"type:varchar(200);not null"`
	Description      string           `json:"descricao,omitempty" gorm:"type:text"`
	Price            decimal.Decimal  `json:"preco" gorm:"type:decimal(12,2);not null"`
	PromotionalPrice *decimal.Decimal `json:"precoPromocional,omitempty" gorm:"type:decimal(12,2)"`
	Stock            int              `json:"estoque" gorm:"not null;check:chk_products_stock,stock >= 0"`
	Active           bool             `json:"ativo" gorm:"not null"`
	SalesCount       int              `json:"vendas" gorm:"not null"`
	CategoryID       *string          `json:"categoriaId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`

	Category *Category `json:"categoria,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}

func (Product) TableName() string { return "products" }

// EffectivePrice 促销价优先
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.PromotionalPrice != nil {
		return *p.PromotionalPrice
	}
	return p.Price
}
