package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

// Notifier fans order lifecycle events out to email and WhatsApp. It
// implements the order service's notification hook; independent sends run
// concurrently and one failure never suppresses another.
type Notifier struct {
	email      EmailSender
	whatsapp   WhatsAppSender
	adminEmail string
}

var _ order.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier. adminEmail receives a copy of every new
// order.
func NewNotifier(email EmailSender, whatsapp WhatsAppSender, adminEmail string) *Notifier {
	return &Notifier{email: email, whatsapp: whatsapp, adminEmail: adminEmail}
}

// OrderPlaced sends the customer confirmation, the admin alert, and the
// payment-pending WhatsApp event.
func (n *Notifier) OrderPlaced(ctx context.Context, o *order.Order, items []order.Item) error {
	// Plain errgroup: a failed send must not cancel its siblings.
	var g errgroup.Group

	if o.ShippingEmail != "" {
		g.Go(func() error {
			return n.send(ctx, "customer confirmation email", func() error {
				return n.email.Send(ctx, confirmationEmail(o, items))
			})
		})
	}
	if n.adminEmail != "" {
		g.Go(func() error {
			return n.send(ctx, "admin alert email", func() error {
				return n.email.Send(ctx, adminAlertEmail(n.adminEmail, o, items))
			})
		})
	}
	g.Go(func() error {
		return n.send(ctx, "payment pending message", func() error {
			return n.whatsapp.SendEvent(ctx, o.ShippingPhone, EventPaymentPending, []string{o.Number, o.Total.StringFixed(2)})
		})
	})

	return g.Wait()
}

// StatusChanged sends the status-specific email, plus the delivery WhatsApp
// event when the order reached Delivered. Statuses without a template send
// nothing.
func (n *Notifier) StatusChanged(ctx context.Context, o *order.Order) error {
	var g errgroup.Group

	if email := statusEmail(o); email != nil && email.To != "" {
		g.Go(func() error {
			return n.send(ctx, "status email", func() error {
				return n.email.Send(ctx, email)
			})
		})
	}
	if o.Status == order.StatusDelivered {
		g.Go(func() error {
			return n.send(ctx, "delivery message", func() error {
				return n.whatsapp.SendEvent(ctx, o.ShippingPhone, EventDelivered, []string{o.Number})
			})
		})
	}

	return g.Wait()
}

// PaymentReceived sends the payment-confirmation WhatsApp event.
func (n *Notifier) PaymentReceived(ctx context.Context, o *order.Order) error {
	return n.send(ctx, "payment received message", func() error {
		return n.whatsapp.SendEvent(ctx, o.ShippingPhone, EventPaymentReceived, []string{o.Number, o.Total.StringFixed(2)})
	})
}

// send wraps one delivery attempt with logging. The error still propagates
// so the caller's boundary sees the failure; siblings are unaffected.
func (n *Notifier) send(ctx context.Context, what string, fn func() error) error {
	if err := fn(); err != nil {
		zctx.From(ctx).Warn("notification failed", zap.String("kind", what), zap.Error(err))
		return err
	}
	return nil
}
