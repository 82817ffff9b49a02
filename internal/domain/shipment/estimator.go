package shipment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
)

// DefaultPreviewWeightGrams is used by pre-checkout previews when the caller
// supplies no weight.
const DefaultPreviewWeightGrams = 500

// ChargeRecord is one persisted shipping-charge estimate for an order.
// Append-only; re-estimates create new rows.
type ChargeRecord struct {
	ID            int64
	OrderID       int64
	Zone          string
	ChargedWeight float64
	GrossAmount   decimal.Decimal
	TotalAmount   decimal.Decimal
	Raw           []byte
	CreatedAt     time.Time
}

// TransitRecord is one persisted expected-delivery estimate for an order.
type TransitRecord struct {
	ID             int64
	OrderID        int64
	DestinationPin string
	Days           int
	Raw            []byte
	CreatedAt      time.Time
}

// EstimateRepository persists carrier estimates.
type EstimateRepository interface {
	CreateCharge(ctx context.Context, rec *ChargeRecord) error
	CreateTransit(ctx context.Context, rec *TransitRecord) error
}

// Estimator prices shipments via the carrier and records the results.
type Estimator struct {
	client    carrier.Client
	repo      EstimateRepository
	originPin string
	now       func() time.Time
}

// NewEstimator creates an Estimator shipping from the given origin pincode.
func NewEstimator(client carrier.Client, repo EstimateRepository, originPin string) *Estimator {
	return &Estimator{client: client, repo: repo, originPin: originPin, now: time.Now}
}

// PreviewCharge prices a hypothetical shipment for pre-checkout display.
// Pure read; nothing is persisted.
func (e *Estimator) PreviewCharge(ctx context.Context, destinationPin string, weightGrams int) (*carrier.ChargeBreakdown, error) {
	if weightGrams <= 0 {
		weightGrams = DefaultPreviewWeightGrams
	}
	return e.client.EstimateCharge(ctx, carrier.ChargeRequest{
		Mode:           "S",
		OriginPin:      e.originPin,
		DestinationPin: destinationPin,
		WeightGrams:    weightGrams,
		PaymentType:    "Pre-paid",
	})
}

// PersistChargeForOrder estimates the shipping charge for a placed order and
// records it. Any carrier failure surfaces as an error the orchestrator
// treats as "no charge available", never as fatal.
func (e *Estimator) PersistChargeForOrder(ctx context.Context, orderID int64, destinationPin string, weightGrams int) (decimal.Decimal, error) {
	breakdown, err := e.PreviewCharge(ctx, destinationPin, weightGrams)
	if err != nil {
		return decimal.Zero, err
	}

	rec := &ChargeRecord{
		OrderID:       orderID,
		Zone:          breakdown.Zone,
		ChargedWeight: breakdown.ChargedWeight,
		GrossAmount:   breakdown.GrossAmount,
		TotalAmount:   breakdown.TotalAmount,
		Raw:           breakdown.Raw,
	}
	if err := e.repo.CreateCharge(ctx, rec); err != nil {
		return decimal.Zero, errors.Wrap(err, "persist shipping charge")
	}
	return breakdown.TotalAmount, nil
}

// PersistTransitForOrder estimates expected delivery time for a placed order
// and records it.
func (e *Estimator) PersistTransitForOrder(ctx context.Context, orderID int64, destinationPin string) (int, error) {
	est, err := e.client.EstimateTransitDays(ctx, carrier.TransitRequest{
		OriginPin:      e.originPin,
		DestinationPin: destinationPin,
		PickupDate:     e.now(),
	})
	if err != nil {
		return 0, err
	}

	rec := &TransitRecord{
		OrderID:        orderID,
		DestinationPin: destinationPin,
		Days:           est.Days,
		Raw:            est.Raw,
	}
	if err := e.repo.CreateTransit(ctx, rec); err != nil {
		return 0, errors.Wrap(err, "persist transit estimate")
	}
	return est.Days, nil
}
