package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
)

const (
	insertShippingChargeSQL = `INSERT INTO shipping_charges (order_id, zone, charged_weight, gross_amount, total_amount, raw)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	insertTransitEstimateSQL = `INSERT INTO transit_estimates (order_id, destination_pin, days, raw)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
)

var _ shipment.EstimateRepository = (*EstimateRepository)(nil)

// EstimateRepository persists carrier estimates. Both tables are
// append-only; re-estimates add rows.
type EstimateRepository struct {
	pool *pgxpool.Pool
}

// NewEstimateRepository returns an EstimateRepository that uses the given
// pool.
func NewEstimateRepository(pool *pgxpool.Pool) *EstimateRepository {
	return &EstimateRepository{pool: pool}
}

// CreateCharge records one shipping-charge estimate.
func (r *EstimateRepository) CreateCharge(ctx context.Context, rec *shipment.ChargeRecord) error {
	err := r.pool.QueryRow(ctx, insertShippingChargeSQL,
		rec.OrderID, rec.Zone, rec.ChargedWeight, rec.GrossAmount, rec.TotalAmount, rec.Raw,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating shipping charge for order %d: %w", rec.OrderID, err)
	}
	return nil
}

// CreateTransit records one expected-delivery estimate.
func (r *EstimateRepository) CreateTransit(ctx context.Context, rec *shipment.TransitRecord) error {
	err := r.pool.QueryRow(ctx, insertTransitEstimateSQL,
		rec.OrderID, rec.DestinationPin, rec.Days, rec.Raw,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transit estimate for order %d: %w", rec.OrderID, err)
	}
	return nil
}
