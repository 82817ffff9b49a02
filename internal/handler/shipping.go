package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

type chargePreviewResponse struct {
	Zone          string          `json:"zone,omitempty"`
	ChargedWeight float64         `json:"chargedWeight"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// PreviewCharge handles GET /api/shipping/charges/{pincode}. Weight defaults
// when the query parameter is absent; nothing is persisted.
func (h *Handler) PreviewCharge(w http.ResponseWriter, r *http.Request) {
	pincode := mux.Vars(r)["pincode"]
	if len(pincode) != 6 {
		h.writeError(w, r, &order.ValidationError{Field: "pincode", Reason: "must be 6 digits"})
		return
	}

	weight := 0
	if raw := r.URL.Query().Get("weight"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, r, &order.ValidationError{Field: "weight", Reason: "must be a positive integer of grams"})
			return
		}
		weight = parsed
	}

	breakdown, err := h.estimator.PreviewCharge(r.Context(), pincode, weight)
	if err != nil {
		// Carrier unavailability is not the customer's fault.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "shipping estimate unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, chargePreviewResponse{
		Zone:          breakdown.Zone,
		ChargedWeight: breakdown.ChargedWeight,
		GrossAmount:   breakdown.GrossAmount,
		TotalAmount:   breakdown.TotalAmount,
	})
}
