package shipment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

// DefaultWeightGrams is the per-unit fallback when the catalog has no weight
// for a package.
const DefaultWeightGrams = 100

const trackingURLBase = "https://www.delhivery.com/track/package/"

// Result pairs the locally persisted shipment with the carrier-side outcome
// so callers can inspect both independently. CarrierErr is set when the
// carrier leg failed; Local is always populated.
type Result struct {
	Local      *Shipment
	CarrierErr error
}

// Coordinator drives the shipment lifecycle against the carrier while
// keeping local records authoritative.
type Coordinator struct {
	repo    Repository
	orders  order.Repository
	catalog catalog.Reader
	client  carrier.Client
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(repo Repository, orders order.Repository, cat catalog.Reader, client carrier.Client) *Coordinator {
	return &Coordinator{repo: repo, orders: orders, catalog: cat, client: client}
}

// CreateForOrder registers a shipment with the carrier for an order. A
// carrier failure at any step does not abort: the shipment row is persisted
// with IsSuccess=false and the raw error recorded, giving the admin a retry
// and audit trail. Only a missing order or an existing shipment rejects the
// operation outright.
func (c *Coordinator) CreateForOrder(ctx context.Context, orderID int64) (*Result, error) {
	o, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.GetByOrderID(ctx, orderID); err == nil {
		return nil, &AlreadyExistsError{OrderID: orderID}
	} else if !errors.Is(err, ErrNoShipment) {
		return nil, errors.Wrap(err, "check existing shipment")
	}

	items, err := c.orders.GetItems(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	weight := c.packageWeightGrams(ctx, items)

	var carrierErr error
	wb, err := c.client.AllocateWaybill(ctx)
	if err != nil {
		carrierErr = err
	}

	req := carrier.ShipmentRequest{
		OrderNumber: o.Number,
		Waybill:     wb,
		Name:        o.ShippingName,
		Address:     o.ShippingAddress,
		City:        o.ShippingCity,
		State:       o.ShippingState,
		Country:     "India",
		Pincode:     o.ShippingPincode,
		Phone:       o.ShippingPhone,
		WeightGrams: weight,
		PaymentMode: "Prepaid",
	}
	reqPayload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode shipment request")
	}

	var response json.RawMessage
	if carrierErr == nil {
		response, carrierErr = c.client.CreateShipment(ctx, req)
	}
	if carrierErr != nil {
		response = errorPayload(carrierErr)
		zctx.From(ctx).Warn("carrier shipment create failed",
			zap.Int64("order_id", orderID), zap.Error(carrierErr))
	}

	sh := &Shipment{
		OrderID:   orderID,
		Waybill:   wb,
		Status:    StatusCreated,
		Request:   reqPayload,
		Response:  response,
		IsSuccess: carrierErr == nil,
	}
	if wb != "" {
		sh.TrackingURL = trackingURLBase + string(wb)
	}

	if err := c.repo.Create(ctx, sh); err != nil {
		return nil, err
	}

	return &Result{Local: sh, CarrierErr: carrierErr}, nil
}

// Cancel cancels the order's shipment. The carrier call runs first, but the
// local status moves to Cancelled regardless of its outcome; the carrier
// response or error is recorded on the row either way.
func (c *Coordinator) Cancel(ctx context.Context, orderID int64) (*Result, error) {
	sh, err := c.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if sh.Status == StatusCancelled {
		return &Result{Local: sh}, nil
	}

	response, carrierErr := c.client.CancelShipment(ctx, sh.Waybill)
	if carrierErr != nil {
		response = errorPayload(carrierErr)
		zctx.From(ctx).Warn("carrier shipment cancel failed",
			zap.Int64("order_id", orderID), zap.String("waybill", string(sh.Waybill)), zap.Error(carrierErr))
	}

	if err := c.repo.UpdateOutcome(ctx, sh.ID, StatusCancelled, response, carrierErr == nil); err != nil {
		return nil, errors.Wrap(err, "record cancellation")
	}
	sh.Status = StatusCancelled
	sh.Response = response
	sh.IsSuccess = carrierErr == nil

	return &Result{Local: sh, CarrierErr: carrierErr}, nil
}

// CancelForOrder is the order state machine's hook: cancel the shipment if
// one exists, quietly succeed if none does.
func (c *Coordinator) CancelForOrder(ctx context.Context, orderID int64) error {
	res, err := c.Cancel(ctx, orderID)
	if errors.Is(err, ErrNoShipment) {
		return nil
	}
	if err != nil {
		return err
	}
	return res.CarrierErr
}

// Track returns the carrier's current view of the order's shipment.
func (c *Coordinator) Track(ctx context.Context, orderID int64) (*carrier.TrackingInfo, *Shipment, error) {
	sh, err := c.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	o, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	info, err := c.client.TrackShipment(ctx, sh.Waybill, o.Number)
	if err != nil {
		return nil, sh, err
	}
	return info, sh, nil
}

// PackingSlip fetches the printable label for the order's shipment.
func (c *Coordinator) PackingSlip(ctx context.Context, orderID int64) (json.RawMessage, error) {
	sh, err := c.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return c.client.PackingSlip(ctx, sh.Waybill)
}

// packageWeightGrams sums catalog weight times quantity over non-free items,
// falling back to DefaultWeightGrams per unit when the catalog is silent.
func (c *Coordinator) packageWeightGrams(ctx context.Context, items []order.Item) int {
	total := 0
	for _, it := range items {
		if it.IsFree {
			continue
		}
		grams := DefaultWeightGrams
		if entry, err := c.catalog.GetEntry(ctx, it.TeaID, it.PackageID); err == nil && entry.WeightGrams > 0 {
			grams = entry.WeightGrams
		}
		total += grams * it.Quantity
	}
	return total
}

func errorPayload(err error) json.RawMessage {
	b, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return json.RawMessage(fmt.Sprintf(`{"error":%q}`, "carrier call failed"))
	}
	return b
}
