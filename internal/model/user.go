package model

import "time"

// 角色
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleDelivery = "delivery"
)

// User 登录账号；customer 角色通过 CustomerID 关联客户
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"nome" gorm:"type:varchar(150);not null"`
	Email        string    `json:"email" gorm:"type:varchar(150);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(100);not null"`
	Role         string    `json:"role" gorm:"type:varchar(16);index;not null"`
	CustomerID   *string   `json:"clienteId,omitempty" gorm:"type:varchar(36);index"`
	Active       bool      `json:"ativo" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
