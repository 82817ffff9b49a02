// Package carrier defines the contract the order engine expects from the
// third-party logistics provider. Response-shape quirks of the real carrier
// API are normalized behind this boundary; coordinator code only ever sees
// the typed forms below.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Waybill is the carrier-issued shipment tracking identifier (AWB).
type Waybill string

// Error wraps any failure talking to the carrier. Carrier failures are never
// fatal to local state; callers record them and proceed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("carrier %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ShipmentRequest is the order snapshot handed to the carrier when creating
// a physical shipment. All fields come from the order's snapshotted
// shipping/contact columns, never from live customer records.
type ShipmentRequest struct {
	OrderNumber string
	Waybill     Waybill
	Name        string
	Address     string
	City        string
	State       string
	Country     string
	Pincode     string
	Phone       string
	WeightGrams int
	// PaymentMode is "Prepaid" or "COD".
	PaymentMode string
	// CODAmount is collected on delivery; zero for prepaid shipments.
	CODAmount decimal.Decimal
}

// ChargeRequest asks the carrier to price a hypothetical shipment.
type ChargeRequest struct {
	Mode           string // "E" express, "S" surface
	OriginPin      string
	DestinationPin string
	WeightGrams    int
	PaymentType    string // "Pre-paid" or "COD"
}

// ChargeBreakdown is the carrier's pricing answer.
type ChargeBreakdown struct {
	Zone          string
	ChargedWeight float64
	GrossAmount   decimal.Decimal
	TotalAmount   decimal.Decimal
	Taxes         map[string]decimal.Decimal
	Raw           json.RawMessage
}

// TransitRequest asks the carrier for an expected transit time.
type TransitRequest struct {
	OriginPin      string
	DestinationPin string
	Mode           string // mode of transport, "S" by default
	ProductType    string // "B2C" by default
	PickupDate     time.Time
}

// TransitEstimate is the carrier's expected turn-around time.
type TransitEstimate struct {
	Days int
	Raw  json.RawMessage
}

// TrackingScan is one event in a shipment's movement history.
type TrackingScan struct {
	Status     string
	Location   string
	Remarks    string
	RecordedAt time.Time
}

// TrackingInfo is the current status and scan history for a waybill.
type TrackingInfo struct {
	Status string
	Scans  []TrackingScan
}

// Client is the abstracted carrier collaborator. Every call is network I/O
// with a bounded timeout; implementations return *Error for carrier-side
// failures.
type Client interface {
	// AllocateWaybill reserves a fresh tracking number.
	AllocateWaybill(ctx context.Context) (Waybill, error)
	// CreateShipment registers a physical shipment and returns the raw
	// carrier response for audit storage.
	CreateShipment(ctx context.Context, req ShipmentRequest) (json.RawMessage, error)
	// CancelShipment cancels an existing shipment by waybill.
	CancelShipment(ctx context.Context, wb Waybill) (json.RawMessage, error)
	// TrackShipment returns current status and scan history.
	TrackShipment(ctx context.Context, wb Waybill, orderRef string) (*TrackingInfo, error)
	// EstimateCharge prices a shipment.
	EstimateCharge(ctx context.Context, req ChargeRequest) (*ChargeBreakdown, error)
	// EstimateTransitDays returns the expected transit time in days.
	EstimateTransitDays(ctx context.Context, req TransitRequest) (*TransitEstimate, error)
	// PackingSlip fetches the printable label payload for a waybill.
	PackingSlip(ctx context.Context, wb Waybill) (json.RawMessage, error)
}
