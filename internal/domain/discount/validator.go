package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validation reason strings returned to customers. Not-found and
// out-of-window share one message so the endpoint does not reveal whether a
// guessed code exists.
const (
	reasonInvalidOrExpired = "invalid or expired promo code"
	reasonNotApplicable    = "promo code not applicable to items in your cart"
)

// Validation is the outcome of validating a coupon code against a cart.
// Business-rule rejections populate Reason; they are not errors.
type Validation struct {
	Valid    bool
	Discount *Discount
	Amount   decimal.Decimal
	Reason   string
}

// Validator validates coupon codes against carts.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate checks a coupon code against the cart. Only coupon-gated types
// match; the code lookup is case-insensitive. Infrastructure failures are
// returned as errors; every business-rule rejection comes back as a
// Validation with Valid=false and a customer-facing Reason.
func (v *Validator) Validate(ctx context.Context, code string, cartValue decimal.Decimal, teaIDs []int64) (*Validation, error) {
	d, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "lookup discount code")
	}
	if d == nil || !d.CouponGated() || !d.ActiveAt(v.now()) {
		return &Validation{Valid: false, Reason: reasonInvalidOrExpired}, nil
	}

	if !meetsMinimum(cartValue, d.MinCartValue) {
		return &Validation{
			Valid:  false,
			Reason: fmt.Sprintf("minimum cart value of %s required", d.MinCartValue),
		}, nil
	}

	if !d.AppliesToTeas(teaIDs) {
		return &Validation{Valid: false, Reason: reasonNotApplicable}, nil
	}

	return &Validation{
		Valid:    true,
		Discount: d,
		Amount:   AmountFor(d, cartValue),
	}, nil
}
