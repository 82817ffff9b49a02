package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"ten digits", "9876543210", "919876543210", false},
		{"with country code", "919876543210", "919876543210", false},
		{"with plus and spaces", "+91 98765 43210", "919876543210", false},
		{"with dashes", "98765-43210", "919876543210", false},
		{"too short", "12345", "", true},
		{"twelve digits wrong prefix", "129876543210", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhatsAppClient_RejectsUnknownEvent(t *testing.T) {
	c := NewWhatsAppClient(WhatsAppConfig{Enabled: true})

	err := c.SendEvent(context.Background(), "9876543210", Event("FLASH_SALE"), nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestWhatsAppClient_DisabledDropsSilently(t *testing.T) {
	c := NewWhatsAppClient(WhatsAppConfig{Enabled: false})

	err := c.SendEvent(context.Background(), "not-a-number", EventDelivered, nil)
	assert.NoError(t, err, "disabled sender drops events before validation")
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []*Email
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, e *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

type mockWhatsApp struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *mockWhatsApp) SendEvent(_ context.Context, _ string, ev Event, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func notifyOrder(status order.Status) *order.Order {
	return &order.Order{
		ID:            1,
		Number:        "ORD-TEST-00001",
		Status:        status,
		Total:         decimal.NewFromInt(900),
		ShippingName:  "A Customer",
		ShippingPhone: "9876543210",
		ShippingEmail: "customer@example.com",
	}
}

func TestNotifier_OrderPlaced(t *testing.T) {
	email := &mockEmailSender{}
	wa := &mockWhatsApp{}
	n := NewNotifier(email, wa, "admin@example.com")

	err := n.OrderPlaced(context.Background(), notifyOrder(order.StatusPending), []order.Item{
		{TeaName: "Darjeeling", PackageName: "100g", Quantity: 2, PricePerUnit: decimal.NewFromInt(450)},
	})
	require.NoError(t, err)

	require.Len(t, email.sent, 2)
	recipients := []string{email.sent[0].To, email.sent[1].To}
	assert.Contains(t, recipients, "customer@example.com")
	assert.Contains(t, recipients, "admin@example.com")
	assert.Equal(t, []Event{EventPaymentPending}, wa.events)
}

func TestNotifier_EmailFailureDoesNotBlockWhatsApp(t *testing.T) {
	email := &mockEmailSender{err: errors.New("smtp down")}
	wa := &mockWhatsApp{}
	n := NewNotifier(email, wa, "admin@example.com")

	err := n.OrderPlaced(context.Background(), notifyOrder(order.StatusPending), nil)
	require.Error(t, err, "failure surfaces to the caller's log boundary")
	assert.Equal(t, []Event{EventPaymentPending}, wa.events, "sibling sends still run")
}

func TestNotifier_StatusChanged(t *testing.T) {
	tests := []struct {
		status     order.Status
		wantEmails int
		wantEvents []Event
	}{
		{order.StatusShipped, 1, nil},
		{order.StatusDelivered, 1, []Event{EventDelivered}},
		{order.StatusCancelled, 1, nil},
		{order.StatusPending, 0, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			email := &mockEmailSender{}
			wa := &mockWhatsApp{}
			n := NewNotifier(email, wa, "admin@example.com")

			err := n.StatusChanged(context.Background(), notifyOrder(tt.status))
			require.NoError(t, err)
			assert.Len(t, email.sent, tt.wantEmails)
			assert.Equal(t, tt.wantEvents, wa.events)
		})
	}
}

func TestNotifier_PaymentReceived(t *testing.T) {
	wa := &mockWhatsApp{}
	n := NewNotifier(&mockEmailSender{}, wa, "")

	err := n.PaymentReceived(context.Background(), notifyOrder(order.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, []Event{EventPaymentReceived}, wa.events)
}

func TestStatusEmailTemplates(t *testing.T) {
	o := notifyOrder(order.StatusShipped)
	e := statusEmail(o)
	require.NotNil(t, e)
	assert.Contains(t, e.Subject, o.Number)
	assert.Contains(t, e.HTML, o.Number)

	o.Status = order.StatusPending
	assert.Nil(t, statusEmail(o))
}
