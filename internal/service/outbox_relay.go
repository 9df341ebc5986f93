package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/pkg/logger"
)

// OrderEventsChannel 订单事件发布频道
const OrderEventsChannel = "venda-certa:pedidos:eventos"

// EventPublisher 事件发布
type EventPublisher interface {
	Publish(ctx context.Context, ev *model.Outbox) error
}

// RedisEventPublisher 通过 Redis PUBLISH 推送事件
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	if channel == "" {
		channel = OrderEventsChannel
	}
	return &RedisEventPublisher{client: client, channel: channel}
}

type publishedEvent struct {
	ID          string          `json:"id"`
	Type        string          `json:"tipo"`
	AggregateID string          `json:"pedidoId"`
	Payload     json.RawMessage `json:"dados"`
	CreatedAt   time.Time       `json:"criadoEm"`
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev *model.Outbox) error {
	msg, err := json.Marshal(publishedEvent{
		ID:          ev.ID,
		Type:        ev.EventType,
		AggregateID: ev.AggregateID,
		Payload:     json.RawMessage(ev.Payload),
		CreatedAt:   ev.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, msg).Err()
}

// LogEventPublisher Redis 未启用时仅记录日志
type LogEventPublisher struct{}

func (LogEventPublisher) Publish(_ context.Context, ev *model.Outbox) error {
	logger.Info("order event", zap.String("type", ev.EventType), zap.String("order_id", ev.AggregateID))
	return nil
}

// OutboxRelay 轮询 outbox，将待发事件交给 EventPublisher；发布失败的事件保留为 pending 等待下一轮
type OutboxRelay struct {
	store    *repository.Store
	pub      EventPublisher
	batch    int
	interval time.Duration
	wake     chan struct{}

	published atomic.Int64
	failed    atomic.Int64
}

func NewOutboxRelay(store *repository.Store, pub EventPublisher, batch int, interval time.Duration) *OutboxRelay {
	if batch <= 0 {
		batch = 50
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxRelay{store: store, pub: pub, batch: batch, interval: interval, wake: make(chan struct{}, 1)}
}

// RelayOnce 在一个事务内处理一批事件，返回成功发布的数量
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	sent := 0
	err := r.store.Transaction(ctx, func(tx *repository.Store) error {
		events, err := tx.Outbox.ClaimPending(ctx, r.batch)
		if err != nil {
			return err
		}
		for _, ev := range events {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			perr := r.pub.Publish(pctx, ev)
			cancel()
			if perr != nil {
				r.failed.Add(1)
				logger.Warn("publish order event failed", zap.String("event_id", ev.ID), zap.Error(perr))
				if err := tx.Outbox.MarkFailed(ctx, ev.ID, perr.Error()); err != nil {
					return err
				}
				continue
			}
			if err := tx.Outbox.MarkDone(ctx, ev.ID); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.published.Add(int64(sent))
	return sent, nil
}

// Notify 唤醒一个空闲 worker 立即处理
func (r *OutboxRelay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start 启动 workers 个轮询协程，返回停止函数（等待协程退出或 ctx 超时）
func (r *OutboxRelay) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 1
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
				case <-r.wake:
				case <-stopCh:
					return
				}
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := r.RelayOnce(ctx); err != nil {
					logger.Error("outbox relay failed", zap.Error(err))
				}
				cancel()
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Counters 累计发布成功与失败次数
func (r *OutboxRelay) Counters() (published, failed int64) {
	return r.published.Load(), r.failed.Load()
}
