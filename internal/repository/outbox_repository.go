package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/venda-certa/internal/model"
)

// OutboxRepository 事件外发盒
type OutboxRepository interface {
	Add(ctx context.Context, aggregateID, eventType, payload string) error
	// ClaimPending 锁定一批待发事件（SKIP LOCKED，需在事务内调用）
	ClaimPending(ctx context.Context, limit int) ([]*model.Outbox, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Add(ctx context.Context, aggregateID, eventType, payload string) error {
	ev := &model.Outbox{
		ID:          uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		Status:      model.OutboxPending,
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.Outbox, error) {
	var res []*model.Outbox
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", model.OutboxPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.OutboxDone,
			"processed_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", model.OutboxPending).Count(&cnt).Error
	return cnt, err
}
