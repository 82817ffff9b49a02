// Package handler exposes the order engine over HTTP. Customer routes trust
// an upstream gateway for identity (X-Customer-ID); admin routes are API-key
// gated.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/auth"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
)

// customerIDHeader carries the authenticated customer id set by the upstream
// gateway. Session handling lives outside this service.
const customerIDHeader = "X-Customer-ID"

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	orders      *order.Service
	discounts   *discount.Engine
	coupons     *discount.Validator
	carts       *cart.SnapshotReader
	cartStore   cart.Store
	catalog     catalog.Reader
	estimator   *shipment.Estimator
	coordinator *shipment.Coordinator
	verifier    *auth.Verifier
	validate    *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	discounts *discount.Engine,
	coupons *discount.Validator,
	carts *cart.SnapshotReader,
	cartStore cart.Store,
	cat catalog.Reader,
	estimator *shipment.Estimator,
	coordinator *shipment.Coordinator,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		orders:      orders,
		discounts:   discounts,
		coupons:     coupons,
		carts:       carts,
		cartStore:   cartStore,
		catalog:     cat,
		estimator:   estimator,
		coordinator: coordinator,
		verifier:    verifier,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register attaches all routes to the router.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.SetCartItem).Methods(http.MethodPut)

	api.HandleFunc("/orders", h.PlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderID}", h.GetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderID}/cancel", h.CancelOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderID}/tracking", h.TrackOrder).Methods(http.MethodGet)

	api.HandleFunc("/shipping/charges/{pincode}", h.PreviewCharge).Methods(http.MethodGet)

	api.HandleFunc("/discounts/active", h.ListActiveDiscounts).Methods(http.MethodGet)
	api.HandleFunc("/discounts/auto-apply", h.AutoApplyDiscounts).Methods(http.MethodPost)
	api.HandleFunc("/discounts/validate", h.ValidateCoupon).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAPIKey)
	admin.HandleFunc("/orders", h.AdminListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderID}/status", h.AdminUpdateStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/orders/{orderID}/payment-status", h.AdminUpdatePaymentStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/orders/{orderID}/shipment", h.AdminCreateShipment).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{orderID}/shipment/cancel", h.AdminCancelShipment).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{orderID}/shipment/track", h.AdminTrackShipment).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderID}/shipment/label", h.AdminPackingLabel).Methods(http.MethodGet)
}

// customerID extracts the gateway-authenticated customer id.
func customerID(r *http.Request) (int64, error) {
	raw := r.Header.Get(customerIDHeader)
	if raw == "" {
		return 0, auth.ErrUnauthorized
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, auth.ErrUnauthorized
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &order.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &order.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &order.ValidationError{Field: verrs[0].Field(), Reason: "failed " + verrs[0].Tag() + " validation"}
		}
		return &order.ValidationError{Field: "body", Reason: "invalid"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses. Business-rule
// rejections keep their message; unexpected failures are logged and hidden
// behind a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		discountErr   *order.DiscountError
		transitionErr *order.InvalidTransitionError
		existsErr     *shipment.AlreadyExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.Is(err, cart.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cart is empty"})
	case errors.As(err, &discountErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: discountErr.Reason})
	case errors.Is(err, auth.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, order.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
	case errors.Is(err, shipment.ErrNoShipment):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no shipment for order"})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: transitionErr.Error()})
	case errors.As(err, &existsErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: existsErr.Error()})
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
