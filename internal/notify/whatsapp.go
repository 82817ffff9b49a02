package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// Event names the business moments that may trigger a WhatsApp message.
// Callers request events, never template content: the frozen mapping below
// is the only way a template name reaches the transport.
type Event string

const (
	EventPaymentPending  Event = "PAYMENT_PENDING"
	EventPaymentReceived Event = "PAYMENT_RECEIVED"
	EventDelivered       Event = "DELIVERED"
)

// templateForEvent is the whitelist of sendable templates.
var templateForEvent = map[Event]string{
	EventPaymentPending:  "payment_pending",
	EventPaymentReceived: "payment_confirm",
	EventDelivered:       "delivery",
}

// ErrUnknownEvent rejects any event outside the whitelist.
var ErrUnknownEvent = errors.New("unknown notification event")

// ErrInvalidPhone rejects numbers that cannot be normalized.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts an Indian phone number to the 91XXXXXXXXXX wire
// format: 10 digits get the country code prefixed, 12 digits starting with
// 91 pass through, everything else is rejected.
func NormalizePhone(phone string) (string, error) {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}

	switch {
	case len(digits) == 10:
		return "91" + string(digits), nil
	case len(digits) == 12 && digits[0] == '9' && digits[1] == '1':
		return string(digits), nil
	default:
		return "", ErrInvalidPhone
	}
}

// WhatsAppSender delivers whitelisted template messages.
type WhatsAppSender interface {
	SendEvent(ctx context.Context, phone string, event Event, params []string) error
}

// WhatsAppConfig holds the transport settings.
type WhatsAppConfig struct {
	BaseURL string
	Token   string
	// Enabled gates all sends; a disabled sender silently drops events.
	Enabled bool
	Timeout time.Duration
}

// WhatsAppClient sends template messages over the provider's HTTP API.
type WhatsAppClient struct {
	cfg  WhatsAppConfig
	http *http.Client
}

// NewWhatsAppClient creates a WhatsAppClient.
func NewWhatsAppClient(cfg WhatsAppConfig) *WhatsAppClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppClient{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// SendEvent sends the template mapped to the event. Unknown events and
// unnormalizable phone numbers are rejected before any network call.
func (c *WhatsAppClient) SendEvent(ctx context.Context, phone string, event Event, params []string) error {
	template, ok := templateForEvent[event]
	if !ok {
		return errors.Wrapf(ErrUnknownEvent, "%q", event)
	}
	if !c.cfg.Enabled {
		return nil
	}

	to, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"to":       to,
		"template": template,
		"params":   params,
	})
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages/template", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send template message")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp provider returned status %d", resp.StatusCode)
	}
	return nil
}
