// Package discount implements promotional pricing: automatic cart-level
// promotions, coupon code validation, and the monetary/unit effects each
// rule produces.
package discount

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates the supported promotion strategies.
type Type string

const (
	// TypePercentageOff applies a percentage to the whole cart, always.
	TypePercentageOff Type = "percentage_off"
	// TypeCartValueOff applies a percentage once the cart reaches a minimum value.
	TypeCartValueOff Type = "cart_value_off"
	// TypeBuyXGetY grants free units proportional to purchased quantity.
	TypeBuyXGetY Type = "buy_x_get_y"
	// TypeFreeProduct grants a free add-on product above a minimum cart value.
	TypeFreeProduct Type = "free_product"
	// TypeCouponCode is a code-gated percentage discount.
	TypeCouponCode Type = "coupon_code"
	// TypeFlatPriceOff is a code-gated fixed monetary discount.
	TypeFlatPriceOff Type = "flat_price_off"
)

// Status is the admin-controlled lifecycle state of a discount.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Discount is a promotional rule. Exactly one of the type-specific field
// groups is populated, consistent with Type.
type Discount struct {
	ID   int64
	Name string
	Type Type

	// Code gates TypeCouponCode and TypeFlatPriceOff. Unique when set.
	Code string

	// Percentage drives the percentage-based types.
	Percentage decimal.Decimal
	// FlatAmount drives TypeFlatPriceOff.
	FlatAmount decimal.Decimal
	// MinCartValue is the eligibility floor for value-conditional types.
	// Zero means no minimum.
	MinCartValue decimal.Decimal

	// BuyQuantity/GetQuantity drive TypeBuyXGetY.
	BuyQuantity int
	GetQuantity int

	// FreeProductID/FreeProductQuantity drive TypeFreeProduct.
	FreeProductID       int64
	FreeProductQuantity int

	// LinkedTeaIDs restricts the discount to carts containing at least one
	// of these teas. Empty means the discount applies to all teas.
	LinkedTeaIDs []int64

	StartDate time.Time
	EndDate   time.Time
	Status    Status
}

// ActiveAt reports whether the discount is admin-active and inside its date
// window at the given instant. The window is always checked here regardless
// of whether the background expiry job has flipped the status yet.
func (d *Discount) ActiveAt(now time.Time) bool {
	if d.Status != StatusActive {
		return false
	}
	if now.Before(d.StartDate) || now.After(d.EndDate) {
		return false
	}
	return true
}

// CouponGated reports whether the discount requires an explicit code.
func (d *Discount) CouponGated() bool {
	return d.Type == TypeCouponCode || d.Type == TypeFlatPriceOff
}

// AppliesToTeas reports whether a cart containing the given tea ids is
// eligible under the linked-tea restriction. Unrestricted discounts apply
// to every cart.
func (d *Discount) AppliesToTeas(teaIDs []int64) bool {
	if len(d.LinkedTeaIDs) == 0 {
		return true
	}
	linked := make(map[int64]struct{}, len(d.LinkedTeaIDs))
	for _, id := range d.LinkedTeaIDs {
		linked[id] = struct{}{}
	}
	for _, id := range teaIDs {
		if _, ok := linked[id]; ok {
			return true
		}
	}
	return false
}

// linkedTo reports whether a single tea is covered by the restriction.
func (d *Discount) linkedTo(teaID int64) bool {
	if len(d.LinkedTeaIDs) == 0 {
		return true
	}
	for _, id := range d.LinkedTeaIDs {
		if id == teaID {
			return true
		}
	}
	return false
}

// Repository provides discount lookups. Both methods return rows regardless
// of date window; the engine re-checks the window at evaluation time.
type Repository interface {
	// ListActive returns all discounts with status=active.
	ListActive(ctx context.Context) ([]Discount, error)
	// FindByCode returns the active discount with the given code,
	// case-insensitively, or nil when no such discount exists.
	FindByCode(ctx context.Context, code string) (*Discount, error)
	// ExpireEnded flips status to inactive for active discounts whose end
	// date has passed, returning the number of rows changed. Idempotent.
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}
