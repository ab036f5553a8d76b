package dto

import (
	"time"

	"github.com/supermilas/ordercore/internal/entity"
)

// CartLine is one raw cart entry as submitted by a client. Prices and titles
// are never trusted from the client; they are resolved from the catalog.
type CartLine struct {
	ProductID   int64  `json:"product_id"`
	VariantName string `json:"variant_name"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// ManualLine is one staff-entered line for in-store orders. These carry their
// own title and price because they may reference off-catalog items.
type ManualLine struct {
	ProductTitle string  `json:"product_title"`
	VariantName  string  `json:"variant_name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Notes        string  `json:"notes,omitempty"`
}

// CreateOrderInput is the request to place a web order (guest or registered).
type CreateOrderInput struct {
	BranchCode            string               `json:"branch_code"`
	UserID                *int64               `json:"user_id,omitempty"`
	Guest                 *entity.Guest        `json:"guest,omitempty"`
	Fulfillment           entity.Fulfillment   `json:"fulfillment"`
	PaymentMethod         entity.PaymentMethod `json:"payment_method"`
	Lines                 []CartLine           `json:"items"`
	Notes                 string               `json:"notes,omitempty"`
	AwaitPaymentConfirmed bool                 `json:"await_payment_confirmed,omitempty"`
	IdempotencyKey        string               `json:"-"`
}

// CreateManualOrderInput is the request for a staff-entered in-store order.
type CreateManualOrderInput struct {
	BranchCode    string               `json:"branch_code"`
	Fulfillment   entity.Fulfillment   `json:"fulfillment"`
	PaymentMethod entity.PaymentMethod `json:"payment_method"`
	Lines         []ManualLine         `json:"items"`
	Notes         string               `json:"notes,omitempty"`
}

// TransitionInput carries the optional fields of a lifecycle command.
type TransitionInput struct {
	Reason           string `json:"reason,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// ListFilter narrows an order listing. Staff callers are always scoped to
// their own branch regardless of the filter.
type ListFilter struct {
	BranchCode string
	State      entity.State
	From       *time.Time
	To         *time.Time
	Limit      int
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID               int64                `json:"id"`
	Number           string               `json:"number"`
	BranchCode       string               `json:"branch_code"`
	UserID           *int64               `json:"user_id,omitempty"`
	Guest            *entity.Guest        `json:"guest,omitempty"`
	Fulfillment      entity.Fulfillment   `json:"fulfillment"`
	PaymentMethod    entity.PaymentMethod `json:"payment_method"`
	Items            []entity.OrderItem   `json:"items"`
	Totals           entity.Totals        `json:"totals"`
	EstimatedMinutes int                  `json:"estimated_minutes"`
	State            entity.State         `json:"state"`
	StateHistory     []entity.StateChange `json:"state_history"`
	Notes            string               `json:"notes,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// FromOrder maps the aggregate onto its transport representation.
func FromOrder(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		Number:           o.Number,
		BranchCode:       o.BranchCode,
		UserID:           o.UserID,
		Guest:            o.Guest,
		Fulfillment:      o.Fulfillment,
		PaymentMethod:    o.PaymentMethod,
		Items:            o.Items,
		Totals:           o.TotalsSummary(),
		EstimatedMinutes: o.EstimatedMinutes,
		State:            o.State,
		StateHistory:     o.StateHistory,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// TicketPayload is the denormalized view published for kitchen and receipt
// printing clients listening on the branch print channel.
type TicketPayload struct {
	BranchCode  string               `json:"branch_code"`
	Number      string               `json:"number"`
	PrintedAt   time.Time            `json:"printed_at"`
	Customer    TicketCustomer       `json:"customer"`
	Payment     entity.PaymentMethod `json:"payment"`
	Fulfillment entity.Fulfillment   `json:"fulfillment"`
	Items       []entity.OrderItem   `json:"items"`
	Totals      entity.Totals        `json:"totals"`
	Notes       string               `json:"notes,omitempty"`
}

// TicketCustomer carries the customer contact printed on the ticket.
type TicketCustomer struct {
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// TicketFromOrder builds the print payload from an order.
func TicketFromOrder(o *entity.Order, at time.Time) TicketPayload {
	ticket := TicketPayload{
		BranchCode:  o.BranchCode,
		Number:      o.Number,
		PrintedAt:   at,
		Payment:     o.PaymentMethod,
		Fulfillment: o.Fulfillment,
		Items:       o.Items,
		Totals:      o.TotalsSummary(),
		Notes:       o.Notes,
	}
	if o.Guest != nil {
		ticket.Customer = TicketCustomer{FullName: o.Guest.FullName, Phone: o.Guest.Phone}
	}
	return ticket
}
