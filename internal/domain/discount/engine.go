package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CartLine is one priced cart line for evaluation purposes.
type CartLine struct {
	TeaID     int64
	PackageID int64
	UnitPrice decimal.Decimal
	Quantity  int
}

// FreeUnit is a synthetic zero-price line granted by a quantity promotion,
// keyed to the purchased line it derives from.
type FreeUnit struct {
	TeaID     int64
	PackageID int64
	Quantity  int
}

// FreeProductGrant marks a free add-on product earned by the cart.
type FreeProductGrant struct {
	TeaID    int64
	Quantity int
}

// Applied is the computed effect of one eligible discount on a cart.
// Monetary and unit-based effects are mutually exclusive per rule: quantity
// promotions always carry a zero Amount.
type Applied struct {
	Discount    Discount
	Amount      decimal.Decimal
	FreeUnits   []FreeUnit
	FreeProduct *FreeProductGrant
	Description string
}

// Engine evaluates which promotions apply to a cart and what they are worth.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Active returns every discount that is both marked active and inside its
// date window right now. The window check is defensive: the expiry job may
// not have run yet.
func (e *Engine) Active(ctx context.Context) ([]Discount, error) {
	discounts, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}

	now := e.now()
	out := discounts[:0]
	for _, d := range discounts {
		if d.ActiveAt(now) {
			out = append(out, d)
		}
	}
	return out, nil
}

// AutoApplicable returns the effects of every auto-applicable discount the
// cart is eligible for. Coupon-gated types are never considered. A discount
// restricted to a tea subset applies only when the cart contains at least
// one matching tea; eligibility is all-or-nothing per evaluation, except
// BuyXGetY which grants free units per matching line independently.
func (e *Engine) AutoApplicable(ctx context.Context, cartValue decimal.Decimal, teaIDs []int64, lines []CartLine) ([]Applied, error) {
	discounts, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}

	now := e.now()
	var applied []Applied
	for i := range discounts {
		d := discounts[i]
		if d.CouponGated() || !d.ActiveAt(now) || !d.AppliesToTeas(teaIDs) {
			continue
		}

		switch d.Type {
		case TypePercentageOff:
			amount := clampToCart(percentageOf(cartValue, d.Percentage), cartValue)
			applied = append(applied, Applied{
				Discount:    d,
				Amount:      amount,
				Description: fmt.Sprintf("%s%% off applied", d.Percentage),
			})

		case TypeCartValueOff:
			if !meetsMinimum(cartValue, d.MinCartValue) {
				continue
			}
			amount := clampToCart(percentageOf(cartValue, d.Percentage), cartValue)
			applied = append(applied, Applied{
				Discount:    d,
				Amount:      amount,
				Description: fmt.Sprintf("%s%% off on orders above %s", d.Percentage, d.MinCartValue),
			})

		case TypeBuyXGetY:
			units := freeUnitsFor(&d, lines)
			if len(units) == 0 {
				continue
			}
			applied = append(applied, Applied{
				Discount:    d,
				Amount:      decimal.Zero,
				FreeUnits:   units,
				Description: fmt.Sprintf("Buy %d get %d free", d.BuyQuantity, d.GetQuantity),
			})

		case TypeFreeProduct:
			if !meetsMinimum(cartValue, d.MinCartValue) {
				continue
			}
			qty := d.FreeProductQuantity
			if qty <= 0 {
				qty = 1
			}
			applied = append(applied, Applied{
				Discount:    d,
				Amount:      decimal.Zero,
				FreeProduct: &FreeProductGrant{TeaID: d.FreeProductID, Quantity: qty},
				Description: fmt.Sprintf("Free product on orders above %s", d.MinCartValue),
			})
		}
	}

	return applied, nil
}

// AmountFor computes the monetary value of a code-gated discount against a
// cart, clamped to the cart value.
func AmountFor(d *Discount, cartValue decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case TypeFlatPriceOff:
		return clampToCart(d.FlatAmount, cartValue)
	default:
		return clampToCart(percentageOf(cartValue, d.Percentage), cartValue)
	}
}

// freeUnitsFor computes free units per eligible line, independently. When
// the discount is tea-restricted, only matching lines earn free units.
func freeUnitsFor(d *Discount, lines []CartLine) []FreeUnit {
	if d.BuyQuantity <= 0 || d.GetQuantity <= 0 {
		return nil
	}
	var units []FreeUnit
	for _, l := range lines {
		if !d.linkedTo(l.TeaID) {
			continue
		}
		free := (l.Quantity / d.BuyQuantity) * d.GetQuantity
		if free <= 0 {
			continue
		}
		units = append(units, FreeUnit{
			TeaID:     l.TeaID,
			PackageID: l.PackageID,
			Quantity:  free,
		})
	}
	return units
}

func percentageOf(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(hundred).Round(2)
}

// clampToCart bounds a discount amount to [0, cartValue].
func clampToCart(amount, cartValue decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, cartValue)
}

func meetsMinimum(cartValue, minimum decimal.Decimal) bool {
	if minimum.IsZero() {
		return true
	}
	return cartValue.GreaterThanOrEqual(minimum)
}
