package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
)

type discountResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Type         discount.Type   `json:"type"`
	Code         string          `json:"code,omitempty"`
	Percentage   decimal.Decimal `json:"percentage"`
	FlatAmount   decimal.Decimal `json:"flatAmount"`
	MinCartValue decimal.Decimal `json:"minCartValue"`
	EndDate      time.Time       `json:"endDate"`
}

func toDiscountResponse(d *discount.Discount) discountResponse {
	return discountResponse{
		ID:           d.ID,
		Name:         d.Name,
		Type:         d.Type,
		Code:         d.Code,
		Percentage:   d.Percentage,
		FlatAmount:   d.FlatAmount,
		MinCartValue: d.MinCartValue,
		EndDate:      d.EndDate,
	}
}

// ListActiveDiscounts handles GET /api/discounts/active.
func (h *Handler) ListActiveDiscounts(w http.ResponseWriter, r *http.Request) {
	active, err := h.discounts.Active(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]discountResponse, 0, len(active))
	for i := range active {
		resp = append(resp, toDiscountResponse(&active[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type cartLineRequest struct {
	TeaID     int64           `json:"teaId" validate:"required,gt=0"`
	PackageID int64           `json:"packageId" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
}

type autoApplyRequest struct {
	CartValue decimal.Decimal   `json:"cartValue" validate:"required"`
	TeaIDs    []int64           `json:"teaIds"`
	Lines     []cartLineRequest `json:"lines" validate:"dive"`
}

type appliedDiscountResponse struct {
	Discount    discountResponse `json:"discount"`
	Amount      decimal.Decimal  `json:"amount"`
	FreeUnits   []freeUnit       `json:"freeUnits,omitempty"`
	FreeProduct *freeProduct     `json:"freeProduct,omitempty"`
	Description string           `json:"description"`
}

type freeUnit struct {
	TeaID     int64 `json:"teaId"`
	PackageID int64 `json:"packageId"`
	Quantity  int   `json:"quantity"`
}

type freeProduct struct {
	TeaID    int64 `json:"teaId"`
	Quantity int   `json:"quantity"`
}

// AutoApplyDiscounts handles POST /api/discounts/auto-apply.
func (h *Handler) AutoApplyDiscounts(w http.ResponseWriter, r *http.Request) {
	var req autoApplyRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	lines := make([]discount.CartLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, discount.CartLine{
			TeaID:     l.TeaID,
			PackageID: l.PackageID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}

	applied, err := h.discounts.AutoApplicable(r.Context(), req.CartValue, req.TeaIDs, lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]appliedDiscountResponse, 0, len(applied))
	for i := range applied {
		a := applied[i]
		item := appliedDiscountResponse{
			Discount:    toDiscountResponse(&a.Discount),
			Amount:      a.Amount,
			Description: a.Description,
		}
		for _, fu := range a.FreeUnits {
			item.FreeUnits = append(item.FreeUnits, freeUnit{TeaID: fu.TeaID, PackageID: fu.PackageID, Quantity: fu.Quantity})
		}
		if a.FreeProduct != nil {
			item.FreeProduct = &freeProduct{TeaID: a.FreeProduct.TeaID, Quantity: a.FreeProduct.Quantity}
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

type validateCouponRequest struct {
	Code      string          `json:"code" validate:"required"`
	CartValue decimal.Decimal `json:"cartValue" validate:"required"`
	TeaIDs    []int64         `json:"teaIds"`
}

type validateCouponResponse struct {
	Valid    bool              `json:"valid"`
	Discount *discountResponse `json:"discount,omitempty"`
	Amount   decimal.Decimal   `json:"amount"`
	Reason   string            `json:"reason,omitempty"`
}

// ValidateCoupon handles POST /api/discounts/validate. Business-rule
// rejections come back as 200 with valid=false; only malformed input or
// infrastructure failures produce error statuses.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.coupons.Validate(r.Context(), req.Code, req.CartValue, req.TeaIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := validateCouponResponse{Valid: v.Valid, Amount: v.Amount, Reason: v.Reason}
	if v.Discount != nil {
		d := toDiscountResponse(v.Discount)
		resp.Discount = &d
	}
	writeJSON(w, http.StatusOK, resp)
}
