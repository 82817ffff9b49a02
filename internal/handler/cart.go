package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

type cartLineResponse struct {
	TeaID       int64           `json:"teaId"`
	PackageID   int64           `json:"packageId"`
	TeaName     string          `json:"teaName"`
	PackageName string          `json:"packageName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items    []cartLineResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

// GetCart handles GET /api/cart. An empty cart is a normal view state, not
// an error.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := cartResponse{Items: []cartLineResponse{}, Subtotal: decimal.Zero}

	snap, err := h.carts.Snapshot(r.Context(), cid)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		h.writeError(w, r, err)
		return
	}

	for _, l := range snap.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			TeaID:       l.TeaID,
			PackageID:   l.PackageID,
			TeaName:     l.TeaName,
			PackageName: l.PackageName,
			UnitPrice:   l.UnitPrice.Round(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().Round(2),
		})
	}
	resp.Subtotal = snap.Subtotal().Round(2)
	writeJSON(w, http.StatusOK, resp)
}

type setCartItemRequest struct {
	TeaID     int64 `json:"teaId" validate:"required,gt=0"`
	PackageID int64 `json:"packageId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

// SetCartItem handles PUT /api/cart/items. Quantity zero removes the line;
// positive quantities must name a sellable catalog entry.
func (h *Handler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req setCartItemRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Quantity > 0 {
		if _, err := h.catalog.GetEntry(r.Context(), req.TeaID, req.PackageID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				h.writeError(w, r, &order.ValidationError{Field: "packageId", Reason: "no such tea package"})
				return
			}
			h.writeError(w, r, err)
			return
		}
	}

	if err := h.cartStore.SetItem(r.Context(), cid, cart.Item{
		TeaID:     req.TeaID,
		PackageID: req.PackageID,
		Quantity:  req.Quantity,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cid, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.cartStore.Clear(r.Context(), cid); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
