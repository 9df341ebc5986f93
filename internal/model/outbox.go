package model

import "time"

// 事件外发状态
const (
	OutboxPending = "pending"
	OutboxDone    = "done"
)

// 订单事件类型
const (
	EventOrderCreated       = "pedido.criado"
	EventOrderStatusChanged = "pedido.status_alterado"
	EventOrderUpdated       = "pedido.atualizado"
	EventOrderCancelled     = "pedido.cancelado"
	EventOrderDeleted       = "pedido.removido"
)

// Outbox 事件外发盒，与订单写入同一事务
type Outbox struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	AggregateID string     `gorm:"type:varchar(36);index:idx_outbox_aggregate"`
	EventType   string     `gorm:"type:varchar(64);not null"`
	Payload     string     `gorm:"type:text"`
	Status      string     `gorm:"type:varchar(16);index:idx_outbox_status_created"`
	Attempts    int        `gorm:"not null"`
	LastError   string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"index:idx_outbox_status_created"`
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }
