package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/config"
	"github.com/supermilas/ordercore/internal/messaging"
	"github.com/supermilas/ordercore/internal/notify"
	ordersvc "github.com/supermilas/ordercore/internal/service/order"
	"github.com/supermilas/ordercore/internal/worker"
)

var workerTracer = otel.Tracer("github.com/supermilas/ordercore/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventsHandler consumes the order event stream: creations are audit
// logged, state changes trigger best-effort customer notices for guest
// orders. Notice failures are swallowed; the message still commits.
func NewOrderEventsHandler(logger *zap.Logger, cfg config.Config, sender notify.WhatsAppSender) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch event.Type {
		case ordersvc.EventOrderCreated:
			logger.Info("order created",
				zap.Int64("id", event.OrderID),
				zap.String("number", event.Number),
				zap.String("branch", event.BranchCode),
				zap.Float64("total", event.Total),
			)
		case ordersvc.EventOrderStateChanged:
			logger.Info("order state changed",
				zap.Int64("id", event.OrderID),
				zap.String("number", event.Number),
				zap.String("state", string(event.State)),
			)
			if event.CustomerPhone != "" {
				notice := notify.StatusNotice{
					OrderNumber:      event.Number,
					State:            event.State,
					EstimatedMinutes: event.EstimatedMinutes,
					Total:            event.Total,
					BranchCode:       event.BranchCode,
				}
				if err := sender.SendStatusNotice(ctx, event.CustomerPhone, notice); err != nil {
					logger.Warn("customer notice failed",
						zap.String("number", event.Number),
						zap.Error(err),
					)
				}
			}
		default:
			logger.Warn("unknown order event type", zap.String("type", event.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
