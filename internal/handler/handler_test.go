package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/auth"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
)

// --- Mock implementations ---

type mockCatalog struct {
	entries map[[2]int64]*catalog.Entry
}

func (m *mockCatalog) GetEntry(_ context.Context, teaID, packageID int64) (*catalog.Entry, error) {
	e, ok := m.entries[[2]int64{teaID, packageID}]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return e, nil
}

func (m *mockCatalog) GetTeaName(_ context.Context, teaID int64) (string, error) {
	for _, e := range m.entries {
		if e.TeaID == teaID {
			return e.TeaName, nil
		}
	}
	return "", catalog.ErrNotFound
}

type mockCartStore struct {
	items map[int64][]cart.Item
}

func (m *mockCartStore) Items(_ context.Context, customerID int64) ([]cart.Item, error) {
	return m.items[customerID], nil
}

func (m *mockCartStore) SetItem(_ context.Context, customerID int64, item cart.Item) error {
	items := m.items[customerID]
	for i := range items {
		if items[i].TeaID == item.TeaID && items[i].PackageID == item.PackageID {
			if item.Quantity <= 0 {
				m.items[customerID] = append(items[:i], items[i+1:]...)
			} else {
				items[i].Quantity = item.Quantity
			}
			return nil
		}
	}
	if item.Quantity > 0 {
		m.items[customerID] = append(items, item)
	}
	return nil
}

func (m *mockCartStore) Clear(_ context.Context, customerID int64) error {
	delete(m.items, customerID)
	return nil
}

type mockDiscountRepo struct {
	active []discount.Discount
	byCode map[string]*discount.Discount
}

func (m *mockDiscountRepo) ListActive(_ context.Context) ([]discount.Discount, error) {
	return m.active, nil
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, code string) (*discount.Discount, error) {
	return m.byCode[code], nil
}

func (m *mockDiscountRepo) ExpireEnded(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockOrderRepo struct {
	nextID int64
	orders map[int64]*order.Order
	items  map[int64][]order.Item
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		nextID: 1,
		orders: make(map[int64]*order.Order),
		items:  make(map[int64][]order.Item),
	}
}

func (m *mockOrderRepo) CreateWithItems(_ context.Context, o *order.Order, items []order.Item) error {
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.orders[o.ID] = &cp
	m.items[o.ID] = items
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, orderID int64) (*order.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetItems(_ context.Context, orderID int64) ([]order.Item, error) {
	return m.items[orderID], nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID int64) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, orderID int64, expected, next order.Status, deliveredAt *time.Time) error {
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != expected {
		return order.ErrStaleStatus
	}
	o.Status = next
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, orderID int64, ps order.PaymentStatus) error {
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentStatus = ps
	return nil
}

type mockShipmentRepo struct {
	nextID  int64
	byOrder map[int64]*shipment.Shipment
}

func newMockShipmentRepo() *mockShipmentRepo {
	return &mockShipmentRepo{nextID: 1, byOrder: make(map[int64]*shipment.Shipment)}
}

func (m *mockShipmentRepo) Create(_ context.Context, s *shipment.Shipment) error {
	if _, ok := m.byOrder[s.OrderID]; ok {
		return &shipment.AlreadyExistsError{OrderID: s.OrderID}
	}
	s.ID = m.nextID
	m.nextID++
	m.byOrder[s.OrderID] = s
	return nil
}

func (m *mockShipmentRepo) GetByOrderID(_ context.Context, orderID int64) (*shipment.Shipment, error) {
	s, ok := m.byOrder[orderID]
	if !ok {
		return nil, shipment.ErrNoShipment
	}
	return s, nil
}

func (m *mockShipmentRepo) UpdateOutcome(_ context.Context, shipmentID int64, status string, response json.RawMessage, isSuccess bool) error {
	for _, s := range m.byOrder {
		if s.ID == shipmentID {
			s.Status = status
			s.Response = response
			s.IsSuccess = isSuccess
			return nil
		}
	}
	return shipment.ErrNoShipment
}

type mockEstimateRepo struct {
	charges  []shipment.ChargeRecord
	transits []shipment.TransitRecord
}

func (m *mockEstimateRepo) CreateCharge(_ context.Context, rec *shipment.ChargeRecord) error {
	m.charges = append(m.charges, *rec)
	return nil
}

func (m *mockEstimateRepo) CreateTransit(_ context.Context, rec *shipment.TransitRecord) error {
	m.transits = append(m.transits, *rec)
	return nil
}

type mockCarrier struct {
	chargeErr error
	trackErr  error
}

func (m *mockCarrier) AllocateWaybill(_ context.Context) (carrier.Waybill, error) {
	return "WB123", nil
}

func (m *mockCarrier) CreateShipment(_ context.Context, _ carrier.ShipmentRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"packages":[{"status":"Success"}]}`), nil
}

func (m *mockCarrier) CancelShipment(_ context.Context, _ carrier.Waybill) (json.RawMessage, error) {
	return json.RawMessage(`{"status":true}`), nil
}

func (m *mockCarrier) TrackShipment(_ context.Context, _ carrier.Waybill, _ string) (*carrier.TrackingInfo, error) {
	if m.trackErr != nil {
		return nil, m.trackErr
	}
	return &carrier.TrackingInfo{
		Status: "In Transit",
		Scans: []carrier.TrackingScan{
			{Status: "Picked Up", Location: "Gurgaon_Hub"},
		},
	}, nil
}

func (m *mockCarrier) EstimateCharge(_ context.Context, _ carrier.ChargeRequest) (*carrier.ChargeBreakdown, error) {
	if m.chargeErr != nil {
		return nil, m.chargeErr
	}
	return &carrier.ChargeBreakdown{
		Zone:          "D",
		ChargedWeight: 500,
		GrossAmount:   decimal.NewFromFloat(72.50),
		TotalAmount:   decimal.NewFromFloat(85.55),
	}, nil
}

func (m *mockCarrier) EstimateTransitDays(_ context.Context, _ carrier.TransitRequest) (*carrier.TransitEstimate, error) {
	return &carrier.TransitEstimate{Days: 3}, nil
}

func (m *mockCarrier) PackingSlip(_ context.Context, _ carrier.Waybill) (json.RawMessage, error) {
	return json.RawMessage(`{"packages":[{"wbn":"WB123"}]}`), nil
}

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, errors.New("no rows")
	}
	return info, nil
}

// --- Fixture ---

const (
	testAPIKey = "zv_test_admin_key"
	testPepper = "pepper"
)

type fixture struct {
	router    *mux.Router
	orders    *mockOrderRepo
	shipments *mockShipmentRepo
	carts     *mockCartStore
	discounts *mockDiscountRepo
	carrier   *mockCarrier
}

func newFixture() *fixture {
	cat := &mockCatalog{entries: map[[2]int64]*catalog.Entry{
		{1, 10}: {TeaID: 1, PackageID: 10, TeaName: "Assam Gold", PackageName: "250g Pouch", SellingPrice: decimal.NewFromFloat(450), WeightGrams: 250},
		{2, 20}: {TeaID: 2, PackageID: 20, TeaName: "Darjeeling First Flush", PackageName: "100g Tin", SellingPrice: decimal.NewFromFloat(299.50), WeightGrams: 100},
	}}
	carts := &mockCartStore{items: map[int64][]cart.Item{
		7: {
			{TeaID: 1, PackageID: 10, Quantity: 2},
			{TeaID: 2, PackageID: 20, Quantity: 1},
		},
	}}
	discounts := &mockDiscountRepo{byCode: map[string]*discount.Discount{}}
	orderRepo := newMockOrderRepo()
	shipRepo := newMockShipmentRepo()
	carrierClient := &mockCarrier{}

	engine := discount.NewEngine(discounts)
	validator := discount.NewValidator(discounts)
	reader := cart.NewSnapshotReader(carts, cat)
	estimator := shipment.NewEstimator(carrierClient, &mockEstimateRepo{}, "122004")
	coordinator := shipment.NewCoordinator(shipRepo, orderRepo, cat, carrierClient)

	svc := order.NewService(order.ServiceDeps{
		Repo:      orderRepo,
		Carts:     reader,
		CartStore: carts,
		Catalog:   cat,
		Validator: validator,
		Engine:    engine,
		Charges:   estimator,
	})

	keyRepo := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{}}
	hash := auth.HashKey(testAPIKey, []byte(testPepper))
	keyRepo.byHash[hash] = &auth.APIKeyInfo{ID: "k1", KeyHash: hash, Name: "test"}
	verifier := auth.NewVerifier(keyRepo, []byte(testPepper))

	h := NewHandler(svc, engine, validator, reader, carts, cat, estimator, coordinator, verifier)
	router := mux.NewRouter()
	h.Register(router)

	return &fixture{
		router:    router,
		orders:    orderRepo,
		shipments: shipRepo,
		carts:     carts,
		discounts: discounts,
		carrier:   carrierClient,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asCustomer(id string) map[string]string {
	return map[string]string{customerIDHeader: id}
}

func asAdmin() map[string]string {
	return map[string]string{apiKeyHeader: testAPIKey}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// seedOrder inserts an order directly, bypassing placement.
func (f *fixture) seedOrder(t *testing.T, customerID int64, status order.Status) int64 {
	t.Helper()
	o := &order.Order{
		Number:          order.NewNumber(time.Now()),
		CustomerID:      customerID,
		Status:          status,
		PaymentStatus:   order.PaymentUnpaid,
		Subtotal:        decimal.NewFromFloat(1199.50),
		Total:           decimal.NewFromFloat(1199.50),
		ShippingName:    "Asha Rao",
		ShippingPhone:   "9876543210",
		ShippingAddress: "12 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
		OrderDate:       time.Now(),
	}
	require.NoError(t, f.orders.CreateWithItems(context.Background(), o, nil))
	return o.ID
}

var validShipping = map[string]any{
	"name":    "Asha Rao",
	"phone":   "9876543210",
	"email":   "asha@example.com",
	"address": "12 MG Road",
	"city":    "Bengaluru",
	"state":   "Karnataka",
	"pincode": "560001",
}

// --- Tests ---

func TestGetCart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/cart", nil, asCustomer("7"))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[cartResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "1199.5", resp.Subtotal.String())
}

func TestGetCart_Empty(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/cart", nil, asCustomer("99"))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[cartResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Subtotal.IsZero())
}

func TestSetCartItem(t *testing.T) {
	f := newFixture()

	body := map[string]any{"teaId": 1, "packageId": 10, "quantity": 5}
	rec := f.do(t, http.MethodPut, "/api/cart/items", body, asCustomer("7"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	items, err := f.carts.Items(context.Background(), 7)
	require.NoError(t, err)
	for _, it := range items {
		if it.TeaID == 1 && it.PackageID == 10 {
			assert.Equal(t, 5, it.Quantity)
		}
	}
}

func TestSetCartItem_UnknownPackage(t *testing.T) {
	f := newFixture()

	body := map[string]any{"teaId": 1, "packageId": 999, "quantity": 1}
	rec := f.do(t, http.MethodPut, "/api/cart/items", body, asCustomer("7"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetCartItem_ZeroRemoves(t *testing.T) {
	f := newFixture()

	body := map[string]any{"teaId": 2, "packageId": 20, "quantity": 0}
	rec := f.do(t, http.MethodPut, "/api/cart/items", body, asCustomer("7"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	items, err := f.carts.Items(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].TeaID)
}

func TestClearCart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodDelete, "/api/cart", nil, asCustomer("7"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	items, err := f.carts.Items(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/orders", validShipping, asCustomer("7"))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[placeOrderResponse](t, rec)
	assert.NotZero(t, resp.OrderID)
	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{5}$`, resp.OrderNumber)
	assert.Equal(t, "1199.5", resp.TotalAmount.String())
	require.NotNil(t, resp.ShippingCharge)
	assert.Equal(t, "85.55", resp.ShippingCharge.String())

	// The cart is consumed by placement.
	assert.Empty(t, f.carts.items[7])
}

func TestPlaceOrder_NoCustomerHeader(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/orders", validShipping, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_MissingPincode(t *testing.T) {
	f := newFixture()

	body := map[string]any{}
	for k, v := range validShipping {
		body[k] = v
	}
	delete(body, "pincode")

	rec := f.do(t, http.MethodPost, "/api/orders", body, asCustomer("7"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "incode")
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/orders", validShipping, asCustomer("99"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	f := newFixture()

	body := map[string]any{"couponCode": "NOPE"}
	for k, v := range validShipping {
		body[k] = v
	}

	rec := f.do(t, http.MethodPost, "/api/orders", body, asCustomer("7"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired promo code")
	assert.Empty(t, f.orders.orders)
}

func TestPlaceOrder_ChargeEstimateUnavailable(t *testing.T) {
	f := newFixture()
	f.carrier.chargeErr = errors.New("carrier down")

	rec := f.do(t, http.MethodPost, "/api/orders", validShipping, asCustomer("7"))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[placeOrderResponse](t, rec)
	assert.Nil(t, resp.ShippingCharge)
}

func TestGetOrder_OwnershipScoped(t *testing.T) {
	f := newFixture()
	id := f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodGet, "/api/orders/1", nil, asCustomer("7"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, id, resp.OrderID)

	// Another customer sees 404, not 403.
	rec = f.do(t, http.MethodGet, "/api/orders/1", nil, asCustomer("8"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPost, "/api/orders/1/cancel", nil, asCustomer("7"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, order.StatusCancelled, resp.Status)
}

func TestCancelOrder_Terminal(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusDelivered)

	rec := f.do(t, http.MethodPost, "/api/orders/1/cancel", nil, asCustomer("7"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewCharge(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/shipping/charges/560001", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[chargePreviewResponse](t, rec)
	assert.Equal(t, "D", resp.Zone)
	assert.Equal(t, "85.55", resp.TotalAmount.String())
}

func TestPreviewCharge_BadWeight(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/shipping/charges/560001?weight=-5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewCharge_CarrierDown(t *testing.T) {
	f := newFixture()
	f.carrier.chargeErr = errors.New("timeout")

	rec := f.do(t, http.MethodGet, "/api/shipping/charges/560001", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValidateCoupon_BusinessRejectionIs200(t *testing.T) {
	f := newFixture()

	body := map[string]any{"code": "GONE", "cartValue": "500"}
	rec := f.do(t, http.MethodPost, "/api/discounts/validate", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[validateCouponResponse](t, rec)
	assert.False(t, resp.Valid)
	assert.Equal(t, "invalid or expired promo code", resp.Reason)
}

func TestValidateCoupon_Valid(t *testing.T) {
	f := newFixture()
	f.discounts.byCode["TEA10"] = &discount.Discount{
		ID:         3,
		Name:       "10% off",
		Type:       discount.TypeCouponCode,
		Code:       "TEA10",
		Percentage: decimal.NewFromInt(10),
		StartDate:  time.Now().Add(-time.Hour),
		EndDate:    time.Now().Add(time.Hour),
		Status:     discount.StatusActive,
	}

	body := map[string]any{"code": "TEA10", "cartValue": "500"}
	rec := f.do(t, http.MethodPost, "/api/discounts/validate", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[validateCouponResponse](t, rec)
	assert.True(t, resp.Valid)
	assert.Equal(t, "50", resp.Amount.String())
	require.NotNil(t, resp.Discount)
	assert.Equal(t, int64(3), resp.Discount.ID)
}

func TestAdminRoutes_RequireAPIKey(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/admin/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/orders", nil, map[string]string{apiKeyHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/orders", nil, asAdmin())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders/1/status", map[string]any{"status": "Shipped"}, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, order.StatusShipped, resp.Status)
}

func TestAdminUpdateStatus_IllegalTransition(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusDelivered)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders/1/status", map[string]any{"status": "Shipped"}, asAdmin())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders/1/status", map[string]any{"status": "Teleported"}, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdatePaymentStatus(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders/1/payment-status", map[string]any{"paymentStatus": "paid"}, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, order.PaymentPaid, resp.PaymentStatus)
}

func TestAdminCreateShipment(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[shipmentResponse](t, rec)
	assert.Equal(t, "WB123", resp.Waybill)
	assert.True(t, resp.CarrierSuccess)
	assert.Contains(t, resp.TrackingURL, "WB123")
}

func TestAdminCreateShipment_Duplicate(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminCreateShipment_OrderMissing(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/admin/orders/42/shipment", nil, asAdmin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminTrackShipment(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusShipped)
	f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())

	rec := f.do(t, http.MethodGet, "/api/admin/orders/1/shipment/track", nil, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[trackingResponse](t, rec)
	assert.Equal(t, "In Transit", resp.Status)
	require.Len(t, resp.Scans, 1)
	assert.Equal(t, "Picked Up", resp.Scans[0].Status)
}

func TestAdminTrackShipment_NoShipment(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusPending)

	rec := f.do(t, http.MethodGet, "/api/admin/orders/1/shipment/track", nil, asAdmin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackOrder_OwnershipBeforeCarrier(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusShipped)
	f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())

	rec := f.do(t, http.MethodGet, "/api/orders/1/tracking", nil, asCustomer("8"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/1/tracking", nil, asCustomer("7"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[trackingResponse](t, rec)
	assert.Equal(t, "WB123", resp.Waybill)
}

func TestAdminPackingLabel(t *testing.T) {
	f := newFixture()
	f.seedOrder(t, 7, order.StatusShipped)
	f.do(t, http.MethodPost, "/api/admin/orders/1/shipment", nil, asAdmin())

	rec := f.do(t, http.MethodGet, "/api/admin/orders/1/shipment/label", nil, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WB123")
}

func TestListActiveDiscounts_FiltersWindow(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.discounts.active = []discount.Discount{
		{ID: 1, Name: "Live", Type: discount.TypePercentageOff, Percentage: decimal.NewFromInt(5),
			StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Status: discount.StatusActive},
		{ID: 2, Name: "Lapsed", Type: discount.TypePercentageOff, Percentage: decimal.NewFromInt(5),
			StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour), Status: discount.StatusActive},
	}

	rec := f.do(t, http.MethodGet, "/api/discounts/active", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]discountResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, int64(1), resp[0].ID)
}

func TestAutoApplyDiscounts(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.discounts.active = []discount.Discount{
		{ID: 1, Name: "Festive 10", Type: discount.TypePercentageOff, Percentage: decimal.NewFromInt(10),
			StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Status: discount.StatusActive},
	}

	body := map[string]any{"cartValue": "1000"}
	rec := f.do(t, http.MethodPost, "/api/discounts/auto-apply", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]appliedDiscountResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "100", resp[0].Amount.String())
}
