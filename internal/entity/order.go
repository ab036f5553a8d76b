package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// FulfillmentType enumerates how an order reaches the customer.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

// Address is a delivery destination. Required when fulfillment is delivery.
type Address struct {
	Street    string `json:"street"`
	Number    string `json:"number"`
	District  string `json:"district,omitempty"`
	Reference string `json:"reference,omitempty"`
	City      string `json:"city,omitempty"`
}

// Fulfillment couples the delivery type with its address, if any.
type Fulfillment struct {
	Type    FulfillmentType `json:"type"`
	Address *Address        `json:"address,omitempty"`
}

// Guest is an embedded customer record for orders placed without an account.
type Guest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// OrderItem is a frozen snapshot of one cart line. Catalog changes after
// placement never affect it.
type OrderItem struct {
	ProductID    int64   `json:"product_id,omitempty"`
	ProductTitle string  `json:"product_title"`
	VariantName  string  `json:"variant_name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Notes        string  `json:"notes,omitempty"`
}

// Totals carries the order money summary, computed once at creation.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	Discount     float64 `json:"discount"`
	DeliveryCost float64 `json:"delivery_cost"`
	Total        float64 `json:"total"`
}

// ComputeTotals derives totals from frozen line items.
// total = subtotal - discount + deliveryCost and is never negative.
func ComputeTotals(items []OrderItem, discount, deliveryCost float64) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	if discount < 0 {
		discount = 0
	}
	if deliveryCost < 0 {
		deliveryCost = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		DeliveryCost: deliveryCost,
		Total:        subtotal - discount + deliveryCost,
	}
}

// StateChange is one immutable history record. The history is append-only;
// entries are never mutated or reordered.
type StateChange struct {
	State   State     `json:"state"`
	At      time.Time `json:"at"`
	ActorID *int64    `json:"actor_id,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Order is the central aggregate: a uniquely numbered, branch-scoped order
// advancing through the lifecycle state machine.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID               int64         `bun:",pk,autoincrement" json:"id"`
	Number           string        `bun:"number" json:"number"`
	BranchCode       string        `bun:"branch_code" json:"branch_code"`
	UserID           *int64        `bun:"user_id" json:"user_id,omitempty"`
	Guest            *Guest        `bun:"guest,type:jsonb" json:"guest,omitempty"`
	Fulfillment      Fulfillment   `bun:"fulfillment,type:jsonb" json:"fulfillment"`
	PaymentMethod    PaymentMethod `bun:"payment_method" json:"payment_method"`
	Items            []OrderItem   `bun:"items,type:jsonb" json:"items"`
	Subtotal         float64       `bun:"subtotal" json:"subtotal"`
	Discount         float64       `bun:"discount" json:"discount"`
	DeliveryCost     float64       `bun:"delivery_cost" json:"delivery_cost"`
	Total            float64       `bun:"total" json:"total"`
	EstimatedMinutes int           `bun:"estimated_minutes" json:"estimated_minutes"`
	State            State         `bun:"state" json:"state"`
	StateHistory     []StateChange `bun:"state_history,type:jsonb" json:"state_history"`
	Notes            string        `bun:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time     `bun:"updated_at,nullzero" json:"updated_at"`
}

// TotalsSummary returns the money summary stored on the order.
func (o *Order) TotalsSummary() Totals {
	return Totals{
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		DeliveryCost: o.DeliveryCost,
		Total:        o.Total,
	}
}

// SetTotals copies a computed summary onto the order columns.
func (o *Order) SetTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.Discount = t.Discount
	o.DeliveryCost = t.DeliveryCost
	o.Total = t.Total
}

// CustomerPhone returns the guest phone when the order was placed by a guest.
func (o *Order) CustomerPhone() string {
	if o.Guest != nil {
		return o.Guest.Phone
	}
	return ""
}
