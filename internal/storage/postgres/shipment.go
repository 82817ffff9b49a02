package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
)

const (
	insertShipmentSQL = `INSERT INTO shipments (order_id, waybill, tracking_url, status, request, response, is_success)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	getShipmentByOrderSQL = `SELECT id, order_id, waybill, tracking_url, status, request, response, is_success, created_at, updated_at
		FROM shipments WHERE order_id = $1`

	updateShipmentOutcomeSQL = `UPDATE shipments
		SET status = $2, response = $3, is_success = $4, updated_at = now()
		WHERE id = $1`

	uniqueViolationCode = "23505"
)

var _ shipment.Repository = (*ShipmentRepository)(nil)

// ShipmentRepository implements shipment.Repository backed by PostgreSQL.
// The shipments.order_id unique index is what enforces the at-most-one
// invariant under concurrency.
type ShipmentRepository struct {
	pool *pgxpool.Pool
}

// NewShipmentRepository returns a ShipmentRepository that uses the given
// pool.
func NewShipmentRepository(pool *pgxpool.Pool) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

// Create persists a new shipment. A unique violation on order_id is mapped
// to *shipment.AlreadyExistsError so racing creators get a clean rejection.
func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	err := r.pool.QueryRow(ctx, insertShipmentSQL,
		s.OrderID, s.Waybill, s.TrackingURL, s.Status, s.Request, s.Response, s.IsSuccess,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &shipment.AlreadyExistsError{OrderID: s.OrderID}
		}
		return fmt.Errorf("creating shipment for order %d: %w", s.OrderID, err)
	}
	return nil
}

// GetByOrderID returns the order's shipment, or shipment.ErrNoShipment.
func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID int64) (*shipment.Shipment, error) {
	rows, err := r.pool.Query(ctx, getShipmentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting shipment for order %d: %w", orderID, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanShipment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipment.ErrNoShipment
		}
		return nil, fmt.Errorf("getting shipment for order %d: %w", orderID, err)
	}
	return &s, nil
}

// UpdateOutcome records a later carrier interaction on the shipment row.
func (r *ShipmentRepository) UpdateOutcome(ctx context.Context, shipmentID int64, status string, response json.RawMessage, isSuccess bool) error {
	tag, err := r.pool.Exec(ctx, updateShipmentOutcomeSQL, shipmentID, status, response, isSuccess)
	if err != nil {
		return fmt.Errorf("updating shipment %d: %w", shipmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return shipment.ErrNoShipment
	}
	return nil
}

func scanShipment(row pgx.CollectableRow) (shipment.Shipment, error) {
	var s shipment.Shipment
	err := row.Scan(
		&s.ID, &s.OrderID, &s.Waybill, &s.TrackingURL, &s.Status,
		&s.Request, &s.Response, &s.IsSuccess, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
