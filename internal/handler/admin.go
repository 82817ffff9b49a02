package handler

import (
	"net/http"
	"time"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
)

// AdminListOrders handles GET /api/admin/orders.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i], nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateStatus handles PATCH /api/admin/orders/{orderID}/status.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, order.Status(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

// AdminUpdatePaymentStatus handles PATCH /api/admin/orders/{orderID}/payment-status.
func (h *Handler) AdminUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updatePaymentStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdatePaymentStatus(r.Context(), orderID, order.PaymentStatus(req.PaymentStatus))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

type shipmentResponse struct {
	ShipmentID     int64     `json:"shipmentId"`
	OrderID        int64     `json:"orderId"`
	Waybill        string    `json:"waybill,omitempty"`
	TrackingURL    string    `json:"trackingUrl,omitempty"`
	Status         string    `json:"status"`
	CarrierSuccess bool      `json:"carrierSuccess"`
	CarrierError   string    `json:"carrierError,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toShipmentResponse(res *shipment.Result) shipmentResponse {
	sh := res.Local
	out := shipmentResponse{
		ShipmentID:     sh.ID,
		OrderID:        sh.OrderID,
		Waybill:        string(sh.Waybill),
		TrackingURL:    sh.TrackingURL,
		Status:         string(sh.Status),
		CarrierSuccess: res.CarrierErr == nil,
		CreatedAt:      sh.CreatedAt,
	}
	if res.CarrierErr != nil {
		out.CarrierError = res.CarrierErr.Error()
	}
	return out
}

// AdminCreateShipment handles POST /api/admin/orders/{orderID}/shipment. The
// local record is created even when the carrier leg fails; the response tells
// the admin which case happened.
func (h *Handler) AdminCreateShipment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.coordinator.CreateForOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentResponse(res))
}

// AdminCancelShipment handles POST /api/admin/orders/{orderID}/shipment/cancel.
func (h *Handler) AdminCancelShipment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.coordinator.Cancel(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(res))
}

// AdminTrackShipment handles GET /api/admin/orders/{orderID}/shipment/track.
// Same payload as the customer tracking route, without the ownership scope.
func (h *Handler) AdminTrackShipment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info, sh, err := h.coordinator.Track(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := trackingResponse{
		Waybill:     string(sh.Waybill),
		TrackingURL: sh.TrackingURL,
		Status:      info.Status,
	}
	for _, s := range info.Scans {
		resp.Scans = append(resp.Scans, trackingScan{
			Status:     s.Status,
			Location:   s.Location,
			Remarks:    s.Remarks,
			RecordedAt: s.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AdminPackingLabel handles GET /api/admin/orders/{orderID}/shipment/label.
// The carrier payload is passed through untouched.
func (h *Handler) AdminPackingLabel(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payload, err := h.coordinator.PackingSlip(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
