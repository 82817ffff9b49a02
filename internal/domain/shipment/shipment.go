// Package shipment coordinates physical shipments with the external carrier.
// Local bookkeeping is deliberately decoupled from carrier success: a
// shipment row exists for audit and retry even when the carrier leg failed.
package shipment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
)

// ErrNoShipment is returned when an order has no shipment on record.
var ErrNoShipment = errors.New("no shipment for order")

// AlreadyExistsError enforces the at-most-one-shipment-per-order invariant.
type AlreadyExistsError struct {
	OrderID int64
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("shipment already exists for order %d", e.OrderID)
}

// Shipment statuses owned locally. Carrier-defined statuses appear verbatim
// in tracking responses but are never written to this column.
const (
	StatusCreated   = "Created"
	StatusCancelled = "Cancelled"
)

// Shipment is the local record of one carrier shipment, 1:1 with an order.
// Request and response payloads are stored raw for audit.
type Shipment struct {
	ID          int64
	OrderID     int64
	Waybill     carrier.Waybill
	TrackingURL string
	Status      string
	Request     json.RawMessage
	Response    json.RawMessage
	IsSuccess   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository persists shipments. Create must reject a second shipment for
// the same order with *AlreadyExistsError, enforced by the storage layer so
// concurrent creators cannot both win.
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	GetByOrderID(ctx context.Context, orderID int64) (*Shipment, error)
	// UpdateOutcome records a later carrier interaction on the shipment.
	UpdateOutcome(ctx context.Context, shipmentID int64, status string, response json.RawMessage, isSuccess bool) error
}
