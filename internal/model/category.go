package model

import "time"

// Category 商品分类（自关联树）
type Category struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string     `json:"nome" gorm:"type:varchar(100);not null"`
	Slug      string     `json:"slug" gorm:"type:varchar(120);uniqueIndex;not null"`
	ParentID  *string    `json:"parentId,omitempty" gorm:"type:varchar(36);index"`
	Active    bool       `json:"ativo" gorm:"not null"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Children  []Category `json:"subcategorias,omitempty" gorm:"foreignKey:ParentID"`
}

func (Category) TableName() string { return "categories" }
