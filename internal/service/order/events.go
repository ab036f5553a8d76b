package order

import (
	"time"

	"github.com/supermilas/ordercore/internal/dto"
	"github.com/supermilas/ordercore/internal/entity"
)

// Event types carried on the durable order event stream.
const (
	EventOrderCreated      = "order.created"
	EventOrderStateChanged = "order.state_changed"
)

// OrderEvent is the envelope published to the message bus for every
// lifecycle change. Workers use it for audit logging and customer notices.
type OrderEvent struct {
	Type             string             `json:"type"`
	OrderID          int64              `json:"order_id"`
	Number           string             `json:"number"`
	BranchCode       string             `json:"branch_code"`
	State            entity.State       `json:"state"`
	At               time.Time          `json:"at"`
	CustomerPhone    string             `json:"customer_phone,omitempty"`
	EstimatedMinutes int                `json:"estimated_minutes,omitempty"`
	Total            float64            `json:"total"`
	Ticket           *dto.TicketPayload `json:"ticket,omitempty"`
}

func newOrderEvent(eventType string, o *entity.Order, ticket *dto.TicketPayload) OrderEvent {
	return OrderEvent{
		Type:             eventType,
		OrderID:          o.ID,
		Number:           o.Number,
		BranchCode:       o.BranchCode,
		State:            o.State,
		At:               o.UpdatedAt,
		CustomerPhone:    o.CustomerPhone(),
		EstimatedMinutes: o.EstimatedMinutes,
		Total:            o.Total,
		Ticket:           ticket,
	}
}
