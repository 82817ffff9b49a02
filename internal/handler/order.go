package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

type placeOrderRequest struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	Pincode    string `json:"pincode" validate:"required,len=6,numeric"`
	CouponCode string `json:"couponCode"`
}

type placeOrderResponse struct {
	OrderID        int64            `json:"orderId"`
	OrderNumber    string           `json:"orderNumber"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	ShippingCharge *decimal.Decimal `json:"shippingCharge,omitempty"`
}

type orderItemResponse struct {
	TeaID        int64           `json:"teaId"`
	PackageID    int64           `json:"packageId,omitempty"`
	TeaName      string          `json:"teaName"`
	PackageName  string          `json:"packageName"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	IsFree       bool            `json:"isFree"`
}

type orderResponse struct {
	OrderID        int64               `json:"orderId"`
	OrderNumber    string              `json:"orderNumber"`
	Status         order.Status        `json:"status"`
	PaymentStatus  order.PaymentStatus `json:"paymentStatus"`
	Subtotal       decimal.Decimal     `json:"subtotalAmount"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	OrderDate      time.Time           `json:"orderDate"`
	DeliveredAt    *time.Time          `json:"deliveredAt,omitempty"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o *order.Order, items []order.Item) orderResponse {
	resp := orderResponse{
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		Subtotal:       o.Subtotal.Round(2),
		DiscountAmount: o.DiscountAmount.Round(2),
		TotalAmount:    o.Total.Round(2),
		OrderDate:      o.OrderDate,
		DeliveredAt:    o.DeliveredAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			TeaID:        it.TeaID,
			PackageID:    it.PackageID,
			TeaName:      it.TeaName,
			PackageName:  it.PackageName,
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit.Round(2),
			Subtotal:     it.Subtotal.Round(2),
			IsFree:       it.IsFree,
		})
	}
	return resp
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req placeOrderRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), cid, order.ShippingDetails{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
	}, req.CouponCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID:        res.OrderID,
		OrderNumber:    res.OrderNumber,
		TotalAmount:    res.TotalAmount.Round(2),
		ShippingCharge: res.ShippingCharge,
	})
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.orders.ListForCustomer(r.Context(), cid)
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

// GetOrder handles GET /api/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, items, err := h.orders.Get(r.Context(), orderID, cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, items))
}

// CancelOrder handles POST /api/orders/{orderID}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.CancelByCustomer(r.Context(), orderID, cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

type trackingResponse struct {
	Waybill     string         `json:"waybill"`
	TrackingURL string         `json:"trackingUrl,omitempty"`
	Status      string         `json:"status"`
	Scans       []trackingScan `json:"scans,omitempty"`
}

type trackingScan struct {
	Status     string    `json:"status"`
	Location   string    `json:"location,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	RecordedAt time.Time `json:"recordedAt,omitempty"`
}

// TrackOrder handles GET /api/orders/{orderID}/tracking.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Ownership check before any carrier call.
	if _, _, err := h.orders.Get(r.Context(), orderID, cid); err != nil {
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
