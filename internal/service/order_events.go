package service

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
)

// OrderEvent 写入 outbox 的事件内容
type OrderEvent struct {
	OrderID     string              `json:"pedidoId"`
	OrderNumber string              `json:"numeroPedido"`
	CustomerID  string              `json:"clienteId"`
	Status      model.OrderStatus   `json:"status"`
	Payment     model.PaymentMethod `json:"metodoPagamento"`
	Total       string              `json:"total"`
	Reason      string              `json:"motivo,omitempty"`
	OccurredAt  time.Time           `json:"ocorridoEm"`
}

func recordEvent(ctx context.Context, tx *repository.Store, o *model.Order, eventType, reason string, at time.Time) error {
	payload, err := json.Marshal(OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		Payment:     o.PaymentMethod,
		Total:       o.Total.StringFixed(2),
		Reason:      reason,
		OccurredAt:  at,
	})
	if err != nil {
		return err
	}
	return tx.Outbox.Add(ctx, o.ID, eventType, string(payload))
}

func withOrderID(id string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("order.id", id))
}
