package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/entity"
)

// WhatsAppSender delivers customer-facing status notices. The current
// implementation is a placeholder for the WhatsApp Business API; it logs and
// reports success so callers exercise the real flow.
type WhatsAppSender interface {
	SendStatusNotice(ctx context.Context, phone string, notice StatusNotice) error
}

// StatusNotice is the template input for a customer status message.
type StatusNotice struct {
	OrderNumber      string
	State            entity.State
	EstimatedMinutes int
	Total            float64
	BranchCode       string
}

// Render produces the customer-facing message body.
func (n StatusNotice) Render() string {
	switch n.State {
	case entity.StateAccepted:
		return fmt.Sprintf("Your order %s was accepted. Estimated time: %d minutes.", n.OrderNumber, n.EstimatedMinutes)
	case entity.StateInPreparation:
		return fmt.Sprintf("Your order %s is being prepared.", n.OrderNumber)
	case entity.StateReady:
		return fmt.Sprintf("Your order %s is ready at branch %s.", n.OrderNumber, n.BranchCode)
	case entity.StateDelivered:
		return fmt.Sprintf("Your order %s was delivered. Thank you!", n.OrderNumber)
	case entity.StateRejected:
		return fmt.Sprintf("Sorry, your order %s could not be taken.", n.OrderNumber)
	default:
		return fmt.Sprintf("Your order %s is now %s.", n.OrderNumber, n.State)
	}
}

// NewWhatsAppSender builds the placeholder sender.
func NewWhatsAppSender(logger *zap.Logger) WhatsAppSender {
	return &loggedSender{logger: logger}
}

type loggedSender struct {
	logger *zap.Logger
}

func (s *loggedSender) SendStatusNotice(ctx context.Context, phone string, notice StatusNotice) error {
	if phone == "" {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("whatsapp notice (simulated)",
			zap.String("phone", phone),
			zap.String("order", notice.OrderNumber),
			zap.String("state", string(notice.State)),
			zap.String("body", notice.Render()),
		)
	}
	return nil
}
