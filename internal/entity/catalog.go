package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Branch is a physical sale location identified by a fixed short code.
// The order core treats branches as read-only reference data.
type Branch struct {
	bun.BaseModel `bun:"table:branches"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	Code      string    `bun:"code" json:"code"`
	Slug      string    `bun:"slug" json:"slug"`
	Name      string    `bun:"name" json:"name"`
	City      string    `bun:"city" json:"city,omitempty"`
	Address   string    `bun:"address" json:"address,omitempty"`
	Active    bool      `bun:"active" json:"active"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// Variant is a purchasable option of a product with its own price.
type Variant struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// Product is a catalog entry owned by the back office; the order core only
// reads point-in-time snapshots of it.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	Title       string    `bun:"title" json:"title"`
	Description string    `bun:"description" json:"description,omitempty"`
	Variants    []Variant `bun:"variants,type:jsonb" json:"variants"`
	Branches    []string  `bun:"branches,type:jsonb" json:"branches"`
	Visible     bool      `bun:"visible" json:"visible"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// AvailableIn reports whether the product is offered at the branch.
func (p *Product) AvailableIn(branchCode string) bool {
	for _, code := range p.Branches {
		if code == branchCode {
			return true
		}
	}
	return false
}

// ActiveVariant finds an active variant by exact name.
func (p *Product) ActiveVariant(name string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Active && v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}
