package service

import (
	"time"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/pkg/apperr"
)

// nextStatus 正向流转：每次只能前进一步
var nextStatus = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusPending:   model.OrderStatusConfirmed,
	model.OrderStatusConfirmed: model.OrderStatusPreparing,
	model.OrderStatusPreparing: model.OrderStatusShipped,
	model.OrderStatusShipped:   model.OrderStatusDelivered,
}

// CanTransition 校验状态流转：前进一步，或从任意非终态取消
func CanTransition(from, to model.OrderStatus) error {
	if !to.Valid() {
		return apperr.Validation("status inválido", "status: valor desconhecido "+string(to))
	}
	if from.Terminal() {
		return apperr.InvalidState("pedido %s não pode mais ter o status alterado", from)
	}
	if to == model.OrderStatusCancelled {
		return nil
	}
	if nextStatus[from] != to {
		return apperr.InvalidState("transição de status inválida: %s -> %s", from, to)
	}
	return nil
}

// transitionFields 进入目标状态时需要写入的字段
func transitionFields(to model.OrderStatus, reason string, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{"status": to}
	switch to {
	case model.OrderStatusConfirmed:
		fields["confirmation_date"] = now
	case model.OrderStatusDelivered:
		fields["delivery_date"] = now
	case model.OrderStatusCancelled:
		fields["cancellation_date"] = now
		fields["cancellation_reason"] = reason
	}
	return fields
}

// lockedAfterShipment 发货后付款方式与收货地址不可修改
func lockedAfterShipment(s model.OrderStatus) bool {
	return s == model.OrderStatusShipped || s.Terminal()
}
