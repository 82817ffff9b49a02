package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
)

// DefaultWeightGrams is the per-unit fallback when the catalog has no weight
// on record for a package.
const DefaultWeightGrams = 100

const maxTransitionAttempts = 3

// DiscountError is a business-rule rejection of a coupon at placement time.
type DiscountError struct {
	Reason string
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("discount rejected: %s", e.Reason)
}

// ShippingDetails is the placement input snapshotted onto the order.
type ShippingDetails struct {
	Name    string
	Phone   string
	Email   string
	Address string
	City    string
	State   string
	Pincode string
}

// PlacementResult is what the caller gets back from a successful placement.
// ShippingCharge is nil when the carrier estimate was unavailable.
type PlacementResult struct {
	OrderID        int64
	OrderNumber    string
	TotalAmount    decimal.Decimal
	ShippingCharge *decimal.Decimal
}

// CartSource converts a live cart into a priced snapshot.
type CartSource interface {
	Snapshot(ctx context.Context, customerID int64) (*cart.Snapshot, error)
}

// CouponValidator validates a coupon code against a cart.
type CouponValidator interface {
	Validate(ctx context.Context, code string, cartValue decimal.Decimal, teaIDs []int64) (*discount.Validation, error)
}

// AutoApplier evaluates auto-applicable promotions for a cart.
type AutoApplier interface {
	AutoApplicable(ctx context.Context, cartValue decimal.Decimal, teaIDs []int64, lines []discount.CartLine) ([]discount.Applied, error)
}

// ChargeRecorder requests a shipping-charge estimate from the carrier and
// persists it for the order. Any error means "no charge available".
type ChargeRecorder interface {
	PersistChargeForOrder(ctx context.Context, orderID int64, destinationPin string, weightGrams int) (decimal.Decimal, error)
}

// TransitRecorder requests an expected-delivery estimate and persists it.
type TransitRecorder interface {
	PersistTransitForOrder(ctx context.Context, orderID int64, destinationPin string) (int, error)
}

// ShipmentCanceller cancels the order's shipment with the carrier, if one
// exists. Implementations return nil when there is nothing to cancel.
type ShipmentCanceller interface {
	CancelForOrder(ctx context.Context, orderID int64) error
}

// Notifier delivers order lifecycle notifications. Every call is best-effort;
// the service logs and discards failures.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order, items []Item) error
	StatusChanged(ctx context.Context, o *Order) error
	PaymentReceived(ctx context.Context, o *Order) error
}

// ServiceDeps wires the placement orchestrator's collaborators. Charges,
// Transit, Shipments and Notifier are optional; a nil collaborator simply
// skips its side effect.
type ServiceDeps struct {
	Repo      Repository
	Carts     CartSource
	CartStore cart.Store
	Catalog   catalog.Reader
	Validator CouponValidator
	Engine    AutoApplier
	Charges   ChargeRecorder
	Transit   TransitRecorder
	Shipments ShipmentCanceller
	Notifier  Notifier
}

// Service orchestrates order placement and lifecycle transitions.
type Service struct {
	deps  ServiceDeps
	now   func() time.Time
	spawn func(func())
}

// NewService creates the order service.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		deps:  deps,
		now:   time.Now,
		spawn: func(fn func()) { go fn() },
	}
}

// PlaceOrder snapshots the customer's cart, applies discounts, persists the
// order atomically, then runs best-effort side effects. The order is the
// source of truth once persisted: cart-clear, estimates and notifications may
// all fail without affecting the returned result.
func (s *Service) PlaceOrder(ctx context.Context, customerID int64, details ShippingDetails, couponCode string) (*PlacementResult, error) {
	if err := validateShipping(details); err != nil {
		return nil, err
	}

	snap, err := s.deps.Carts.Snapshot(ctx, customerID)
	if err != nil {
		return nil, err
	}

	subtotal := snap.Subtotal()
	teaIDs := snap.TeaIDs()

	discountAmount := decimal.Zero
	var discountID *int64
	var freeItems []Item

	if couponCode != "" {
		v, err := s.deps.Validator.Validate(ctx, couponCode, subtotal, teaIDs)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if !v.Valid {
			return nil, &DiscountError{Reason: v.Reason}
		}
		discountAmount = v.Amount
		id := v.Discount.ID
		discountID = &id
	} else {
		applied, err := s.deps.Engine.AutoApplicable(ctx, subtotal, teaIDs, engineLines(snap))
		if err != nil {
			return nil, errors.Wrap(err, "evaluate promotions")
		}
		discountAmount, discountID, freeItems = s.materialize(ctx, snap, applied)
	}

	// Clamp so the total can never go negative, whatever the rule said.
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}
	discountAmount = decimal.Min(discountAmount, subtotal)

	now := s.now()
	o := &Order{
		Number:          NewNumber(now),
		CustomerID:      customerID,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		Total:           subtotal.Sub(discountAmount),
		DiscountID:      discountID,
		ShippingName:    details.Name,
		ShippingPhone:   details.Phone,
		ShippingEmail:   details.Email,
		ShippingAddress: details.Address,
		ShippingCity:    details.City,
		ShippingState:   details.State,
		ShippingPincode: details.Pincode,
		OrderDate:       now,
	}

	items := make([]Item, 0, len(snap.Lines)+len(freeItems))
	for _, l := range snap.Lines {
		items = append(items, Item{
			TeaID:        l.TeaID,
			PackageID:    l.PackageID,
			TeaName:      l.TeaName,
			PackageName:  l.PackageName,
			Quantity:     l.Quantity,
			PricePerUnit: l.UnitPrice,
			Subtotal:     l.Subtotal(),
		})
	}
	items = append(items, freeItems...)

	if err := s.deps.Repo.CreateWithItems(ctx, o, items); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	lg := zctx.From(ctx).With(zap.Int64("order_id", o.ID), zap.String("order_number", o.Number))

	if err := s.deps.CartStore.Clear(ctx, customerID); err != nil {
		lg.Warn("clear cart after placement", zap.Error(err))
	}

	weight := snap.TotalWeightGrams(DefaultWeightGrams)

	// The shipping estimate is awaited because the response carries it;
	// failure just leaves the field absent.
	var shippingCharge *decimal.Decimal
	if s.deps.Charges != nil {
		if amt, err := s.deps.Charges.PersistChargeForOrder(ctx, o.ID, details.Pincode, weight); err != nil {
			lg.Warn("shipping charge estimate unavailable", zap.Error(err))
		} else {
			shippingCharge = &amt
		}
	}

	bg := context.WithoutCancel(ctx)
	if s.deps.Transit != nil {
		s.background(bg, lg, "transit estimate", func(ctx context.Context) error {
			_, err := s.deps.Transit.PersistTransitForOrder(ctx, o.ID, details.Pincode)
			return err
		})
	}
	if s.deps.Notifier != nil {
		s.background(bg, lg, "placement notifications", func(ctx context.Context) error {
			return s.deps.Notifier.OrderPlaced(ctx, o, items)
		})
	}

	return &PlacementResult{
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		TotalAmount:    o.Total,
		ShippingCharge: shippingCharge,
	}, nil
}

// materialize converts auto-applied promotion effects into a single monetary
// discount plus synthetic free order items. When several monetary promotions
// match, the largest one wins; quantity promotions stack alongside it.
func (s *Service) materialize(ctx context.Context, snap *cart.Snapshot, applied []discount.Applied) (decimal.Decimal, *int64, []Item) {
	best := decimal.Zero
	var bestID *int64
	var freeItems []Item

	for i := range applied {
		a := applied[i]
		if a.Amount.GreaterThan(best) {
			best = a.Amount
			id := a.Discount.ID
			bestID = &id
		}

		for _, fu := range a.FreeUnits {
			line := findLine(snap, fu.TeaID, fu.PackageID)
			if line == nil {
				continue
			}
			freeItems = append(freeItems, Item{
				TeaID:        fu.TeaID,
				PackageID:    fu.PackageID,
				TeaName:      line.TeaName,
				PackageName:  line.PackageName,
				Quantity:     fu.Quantity,
				PricePerUnit: decimal.Zero,
				Subtotal:     decimal.Zero,
				IsFree:       true,
			})
		}

		if fp := a.FreeProduct; fp != nil {
			name, err := s.deps.Catalog.GetTeaName(ctx, fp.TeaID)
			if err != nil {
				// A promo lookup failure never blocks placement.
				zctx.From(ctx).Warn("resolve free product",
					zap.Int64("tea_id", fp.TeaID), zap.Error(err))
				continue
			}
			freeItems = append(freeItems, Item{
				TeaID:        fp.TeaID,
				TeaName:      name,
				PackageName:  "Complimentary",
				Quantity:     fp.Quantity,
				PricePerUnit: decimal.Zero,
				Subtotal:     decimal.Zero,
				IsFree:       true,
			})
		}
	}

	return best, bestID, freeItems
}

// Get returns an order with its items, scoped to the owning customer.
func (s *Service) Get(ctx context.Context, orderID, customerID int64) (*Order, []Item, error) {
	o, err := s.deps.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.CustomerID != customerID {
		return nil, nil, ErrNotFound
	}
	items, err := s.deps.Repo.GetItems(ctx, o.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load order items")
	}
	return o, items, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	return s.deps.Repo.ListByCustomer(ctx, customerID)
}

// ListAll returns every order. Admin use only.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.deps.Repo.ListAll(ctx)
}

// CancelByCustomer cancels the customer's own order through the state
// machine.
func (s *Service) CancelByCustomer(ctx context.Context, orderID, customerID int64) (*Order, error) {
	o, err := s.deps.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotFound
	}
	if err := s.transition(ctx, o, StatusCancelled); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus applies an admin-requested status change through the state
// machine.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next Status) (*Order, error) {
	if !ValidStatus(next) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next)}
	}
	o, err := s.deps.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, next); err != nil {
		return nil, err
	}
	return o, nil
}

// transition validates and applies one state-machine step against the
// authoritative stored status. The guarded write re-reads and retries when
// another request moved the order concurrently, so a stale caller view can
// never overwrite a newer state.
func (s *Service) transition(ctx context.Context, o *Order, next Status) error {
	lg := zctx.From(ctx).With(zap.Int64("order_id", o.ID))

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		if !CanTransition(o.Status, next) {
			return &InvalidTransitionError{Current: o.Status, Requested: next}
		}

		if next == StatusCancelled && s.deps.Shipments != nil {
			// Carrier cancel runs first but its failure never blocks the
			// local state change.
			if err := s.deps.Shipments.CancelForOrder(ctx, o.ID); err != nil {
				lg.Warn("carrier shipment cancel", zap.Error(err))
			}
		}

		var deliveredAt *time.Time
		if next == StatusDelivered && o.DeliveredAt == nil {
			t := s.now()
			deliveredAt = &t
		}

		err := s.deps.Repo.UpdateStatus(ctx, o.ID, o.Status, next, deliveredAt)
		if errors.Is(err, ErrStaleStatus) {
			fresh, rerr := s.deps.Repo.GetByID(ctx, o.ID)
			if rerr != nil {
				return rerr
			}
			*o = *fresh
			continue
		}
		if err != nil {
			return errors.Wrap(err, "update order status")
		}

		o.Status = next
		if deliveredAt != nil {
			o.DeliveredAt = deliveredAt
		}

		if s.deps.Notifier != nil {
			snapshot := *o
			s.background(context.WithoutCancel(ctx), lg, "status notification", func(ctx context.Context) error {
				return s.deps.Notifier.StatusChanged(ctx, &snapshot)
			})
		}
		return nil
	}

	return errors.Wrap(ErrStaleStatus, "update order status")
}

// UpdatePaymentStatus sets the payment flag. It is orthogonal to the order
// status; a move to paid triggers its own notification.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID int64, ps PaymentStatus) (*Order, error) {
	if ps != PaymentUnpaid && ps != PaymentPaid {
		return nil, &ValidationError{Field: "paymentStatus", Reason: fmt.Sprintf("unknown payment status %q", ps)}
	}

	o, err := s.deps.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Repo.UpdatePaymentStatus(ctx, o.ID, ps); err != nil {
		return nil, errors.Wrap(err, "update payment status")
	}
	o.PaymentStatus = ps

	if ps == PaymentPaid && s.deps.Notifier != nil {
		lg := zctx.From(ctx).With(zap.Int64("order_id", o.ID))
		snapshot := *o
		s.background(context.WithoutCancel(ctx), lg, "payment notification", func(ctx context.Context) error {
			return s.deps.Notifier.PaymentReceived(ctx, &snapshot)
		})
	}
	return o, nil
}

// background runs a best-effort side effect with its own error boundary.
func (s *Service) background(ctx context.Context, lg *zap.Logger, op string, fn func(context.Context) error) {
	s.spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				lg.Error("background task panic", zap.String("op", op), zap.Any("panic", r))
			}
		}()
		if err := fn(ctx); err != nil {
			lg.Warn("background task failed", zap.String("op", op), zap.Error(err))
		}
	})
}

func validateShipping(d ShippingDetails) error {
	required := []struct {
		field, value string
	}{
		{"name", d.Name},
		{"phone", d.Phone},
		{"address", d.Address},
		{"city", d.City},
		{"state", d.State},
		{"pincode", d.Pincode},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}
	return nil
}

func engineLines(snap *cart.Snapshot) []discount.CartLine {
	lines := make([]discount.CartLine, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, discount.CartLine{
			TeaID:     l.TeaID,
			PackageID: l.PackageID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return lines
}

func findLine(snap *cart.Snapshot, teaID, packageID int64) *cart.Line {
	for i := range snap.Lines {
		if snap.Lines[i].TeaID == teaID && snap.Lines[i].PackageID == packageID {
			return &snap.Lines[i]
		}
	}
	return nil
}
