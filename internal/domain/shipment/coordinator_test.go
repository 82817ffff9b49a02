package shipment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

type mockShipmentRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Shipment
	// byOrder enforces the one-shipment-per-order constraint like the
	// database unique index does.
	byOrder map[int64]int64
}

func newMockShipmentRepo() *mockShipmentRepo {
	return &mockShipmentRepo{byID: map[int64]*Shipment{}, byOrder: map[int64]int64{}}
}

func (m *mockShipmentRepo) Create(_ context.Context, s *Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byOrder[s.OrderID]; exists {
		return &AlreadyExistsError{OrderID: s.OrderID}
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.byID[s.ID] = &cp
	m.byOrder[s.OrderID] = s.ID
	return nil
}

func (m *mockShipmentRepo) GetByOrderID(_ context.Context, orderID int64) (*Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil, ErrNoShipment
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *mockShipmentRepo) UpdateOutcome(_ context.Context, id int64, status string, response json.RawMessage, isSuccess bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNoShipment
	}
	s.Status = status
	s.Response = response
	s.IsSuccess = isSuccess
	return nil
}

type mockOrderRepo struct {
	orders map[int64]*order.Order
	items  map[int64][]order.Item
}

func (m *mockOrderRepo) CreateWithItems(_ context.Context, _ *order.Order, _ []order.Item) error {
	panic("not used")
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetItems(_ context.Context, id int64) ([]order.Item, error) {
	return m.items[id], nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, _ int64) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]order.Order, error) { return nil, nil }

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ int64, _, _ order.Status, _ *time.Time) error {
	return nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, _ int64, _ order.PaymentStatus) error {
	return nil
}

type mockCatalog struct {
	weights map[int64]int // keyed by package id
}

func (m *mockCatalog) GetEntry(_ context.Context, teaID, packageID int64) (*catalog.Entry, error) {
	w, ok := m.weights[packageID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Entry{TeaID: teaID, PackageID: packageID, WeightGrams: w}, nil
}

func (m *mockCatalog) GetTeaName(_ context.Context, _ int64) (string, error) {
	return "", catalog.ErrNotFound
}

type mockCarrier struct {
	waybill     carrier.Waybill
	allocateErr error
	createErr   error
	cancelErr   error

	createdReqs []carrier.ShipmentRequest
	cancelled   []carrier.Waybill

	tracking *carrier.TrackingInfo
	trackErr error

	charge    *carrier.ChargeBreakdown
	chargeErr error

	transit    *carrier.TransitEstimate
	transitErr error
}

func (m *mockCarrier) AllocateWaybill(_ context.Context) (carrier.Waybill, error) {
	return m.waybill, m.allocateErr
}

func (m *mockCarrier) CreateShipment(_ context.Context, req carrier.ShipmentRequest) (json.RawMessage, error) {
	m.createdReqs = append(m.createdReqs, req)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return json.RawMessage(`{"success":true}`), nil
}

func (m *mockCarrier) CancelShipment(_ context.Context, wb carrier.Waybill) (json.RawMessage, error) {
	m.cancelled = append(m.cancelled, wb)
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return json.RawMessage(`{"status":true}`), nil
}

func (m *mockCarrier) TrackShipment(_ context.Context, _ carrier.Waybill, _ string) (*carrier.TrackingInfo, error) {
	return m.tracking, m.trackErr
}

func (m *mockCarrier) EstimateCharge(_ context.Context, _ carrier.ChargeRequest) (*carrier.ChargeBreakdown, error) {
	return m.charge, m.chargeErr
}

func (m *mockCarrier) EstimateTransitDays(_ context.Context, _ carrier.TransitRequest) (*carrier.TransitEstimate, error) {
	return m.transit, m.transitErr
}

func (m *mockCarrier) PackingSlip(_ context.Context, _ carrier.Waybill) (json.RawMessage, error) {
	return json.RawMessage(`{"packages":[]}`), nil
}

func testOrder(id int64) *order.Order {
	return &order.Order{
		ID:              id,
		Number:          "ORD-TEST-00001",
		CustomerID:      42,
		Status:          order.StatusPending,
		ShippingName:    "A Customer",
		ShippingPhone:   "9876543210",
		ShippingAddress: "14 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
	}
}

func testItems() []order.Item {
	return []order.Item{
		{TeaID: 1, PackageID: 10, Quantity: 2},
		{TeaID: 2, PackageID: 20, Quantity: 1},
		{TeaID: 1, PackageID: 10, Quantity: 1, IsFree: true},
	}
}

func newCoordinator(repo Repository, client carrier.Client) *Coordinator {
	orders := &mockOrderRepo{
		orders: map[int64]*order.Order{1: testOrder(1)},
		items:  map[int64][]order.Item{1: testItems()},
	}
	cat := &mockCatalog{weights: map[int64]int{10: 120}}
	return NewCoordinator(repo, orders, cat, client)
}

func TestCreateForOrder_Success(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{waybill: "WB123"}
	c := newCoordinator(repo, client)

	res, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, res.CarrierErr)

	sh := res.Local
	assert.Equal(t, carrier.Waybill("WB123"), sh.Waybill)
	assert.Equal(t, StatusCreated, sh.Status)
	assert.True(t, sh.IsSuccess)
	assert.Equal(t, "https://www.delhivery.com/track/package/WB123", sh.TrackingURL)

	require.Len(t, client.createdReqs, 1)
	req := client.createdReqs[0]
	assert.Equal(t, "ORD-TEST-00001", req.OrderNumber)
	// 2x120 (catalog weight) + 1x100 (default); the free unit is excluded.
	assert.Equal(t, 340, req.WeightGrams)
}

func TestCreateForOrder_OrderMissing(t *testing.T) {
	c := newCoordinator(newMockShipmentRepo(), &mockCarrier{waybill: "WB123"})

	_, err := c.CreateForOrder(context.Background(), 404)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestCreateForOrder_SecondShipmentRejected(t *testing.T) {
	repo := newMockShipmentRepo()
	c := newCoordinator(repo, &mockCarrier{waybill: "WB123"})

	_, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)

	_, err = c.CreateForOrder(context.Background(), 1)
	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, int64(1), exists.OrderID)
}

func TestCreateForOrder_CarrierFailureStillPersistsLocally(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{
		waybill:   "WB123",
		createErr: &carrier.Error{Op: "create shipment", Err: errors.New("504")},
	}
	c := newCoordinator(repo, client)

	res, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err, "carrier failure is not an operation failure")
	require.Error(t, res.CarrierErr)

	stored, err := repo.GetByOrderID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, stored.IsSuccess)
	assert.Contains(t, string(stored.Response), "504", "raw carrier error recorded for audit")
	assert.Equal(t, carrier.Waybill("WB123"), stored.Waybill)
}

func TestCreateForOrder_WaybillAllocationFailureStillPersists(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{
		allocateErr: &carrier.Error{Op: "allocate waybill", Err: errors.New("timeout")},
	}
	c := newCoordinator(repo, client)

	res, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, res.CarrierErr)
	assert.Empty(t, client.createdReqs, "no create attempt without a waybill")

	stored, err := repo.GetByOrderID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, stored.IsSuccess)
	assert.Empty(t, stored.TrackingURL)
}

func TestCancel_CarrierFailureStillCancelsLocally(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{waybill: "WB123"}
	c := newCoordinator(repo, client)

	_, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)

	client.cancelErr = &carrier.Error{Op: "cancel shipment", Err: errors.New("network error")}
	res, err := c.Cancel(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, res.CarrierErr)

	stored, _ := repo.GetByOrderID(context.Background(), 1)
	assert.Equal(t, StatusCancelled, stored.Status, "local cancellation is authoritative")
	assert.False(t, stored.IsSuccess)
	assert.Contains(t, string(stored.Response), "network error")
}

func TestCancel_AlreadyCancelledIsNoop(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{waybill: "WB123"}
	c := newCoordinator(repo, client)

	_, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)

	_, err = c.Cancel(context.Background(), 1)
	require.NoError(t, err)
	_, err = c.Cancel(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, client.cancelled, 1, "carrier called once")
}

func TestCancelForOrder_NoShipmentIsFine(t *testing.T) {
	c := newCoordinator(newMockShipmentRepo(), &mockCarrier{})
	assert.NoError(t, c.CancelForOrder(context.Background(), 1))
}

func TestTrack(t *testing.T) {
	repo := newMockShipmentRepo()
	client := &mockCarrier{
		waybill:  "WB123",
		tracking: &carrier.TrackingInfo{Status: "In Transit"},
	}
	c := newCoordinator(repo, client)

	_, err := c.CreateForOrder(context.Background(), 1)
	require.NoError(t, err)

	info, sh, err := c.Track(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "In Transit", info.Status)
	assert.Equal(t, carrier.Waybill("WB123"), sh.Waybill)

	_, _, err = c.Track(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoShipment)
}

type mockEstimateRepo struct {
	charges  []*ChargeRecord
	transits []*TransitRecord
	err      error
}

func (m *mockEstimateRepo) CreateCharge(_ context.Context, rec *ChargeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.charges = append(m.charges, rec)
	return nil
}

func (m *mockEstimateRepo) CreateTransit(_ context.Context, rec *TransitRecord) error {
	if m.err != nil {
		return m.err
	}
	m.transits = append(m.transits, rec)
	return nil
}

func TestEstimator_PreviewDefaultsWeight(t *testing.T) {
	client := &mockCarrier{charge: &carrier.ChargeBreakdown{TotalAmount: decimal.NewFromInt(90)}}
	e := NewEstimator(client, &mockEstimateRepo{}, "122004")

	got, err := e.PreviewCharge(context.Background(), "560001", 0)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90).Equal(got.TotalAmount))
}

func TestEstimator_PersistChargeForOrder(t *testing.T) {
	repo := &mockEstimateRepo{}
	client := &mockCarrier{charge: &carrier.ChargeBreakdown{
		Zone:        "D",
		TotalAmount: decimal.RequireFromString("100.30"),
	}}
	e := NewEstimator(client, repo, "122004")

	amt, err := e.PersistChargeForOrder(context.Background(), 1, "560001", 340)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.30").Equal(amt))
	require.Len(t, repo.charges, 1)
	assert.Equal(t, int64(1), repo.charges[0].OrderID)
	assert.Equal(t, "D", repo.charges[0].Zone)
}

func TestEstimator_CarrierFailurePersistsNothing(t *testing.T) {
	repo := &mockEstimateRepo{}
	client := &mockCarrier{chargeErr: &carrier.Error{Op: "estimate charge", Err: errors.New("down")}}
	e := NewEstimator(client, repo, "122004")

	_, err := e.PersistChargeForOrder(context.Background(), 1, "560001", 340)
	require.Error(t, err)
	assert.Empty(t, repo.charges)
}

func TestEstimator_PersistTransitForOrder(t *testing.T) {
	repo := &mockEstimateRepo{}
	client := &mockCarrier{transit: &carrier.TransitEstimate{Days: 4}}
	e := NewEstimator(client, repo, "122004")

	days, err := e.PersistTransitForOrder(context.Background(), 1, "560001")
	require.NoError(t, err)
	assert.Equal(t, 4, days)
	require.Len(t, repo.transits, 1)
	assert.Equal(t, "560001", repo.transits[0].DestinationPin)
}
