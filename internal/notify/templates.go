package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

func itemRows(items []order.Item) string {
	var b strings.Builder
	for _, it := range items {
		name := fmt.Sprintf("%s (%s)", it.TeaName, it.PackageName)
		price := it.PricePerUnit.StringFixed(2)
		if it.IsFree {
			price = "FREE"
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(name), it.Quantity, price)
	}
	return b.String()
}

func confirmationEmail(o *order.Order, items []order.Item) *Email {
	return &Email{
		To:      o.ShippingEmail,
		Subject: fmt.Sprintf("Order %s confirmed", o.Number),
		HTML: fmt.Sprintf(`<h2>Thank you for your order, %s!</h2>
<p>Your order <b>%s</b> has been received.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>%s</table>
<p>Subtotal: %s<br>Discount: %s<br><b>Total: %s</b></p>
<p>We will let you know as soon as it ships.</p>`,
			html.EscapeString(o.ShippingName), o.Number, itemRows(items),
			o.Subtotal.StringFixed(2), o.DiscountAmount.StringFixed(2), o.Total.StringFixed(2)),
	}
}

func adminAlertEmail(adminEmail string, o *order.Order, items []order.Item) *Email {
	return &Email{
		To:      adminEmail,
		Subject: fmt.Sprintf("New order %s", o.Number),
		HTML: fmt.Sprintf(`<h2>New order placed</h2>
<p>Order <b>%s</b> by %s (%s)</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>%s</table>
<p>Total: %s</p>
<p>Ship to: %s, %s, %s %s</p>`,
			o.Number, html.EscapeString(o.ShippingName), html.EscapeString(o.ShippingPhone),
			itemRows(items), o.Total.StringFixed(2),
			html.EscapeString(o.ShippingAddress), html.EscapeString(o.ShippingCity),
			html.EscapeString(o.ShippingState), html.EscapeString(o.ShippingPincode)),
	}
}

// statusEmail builds the status-change email, or nil when the new status has
// no customer-facing template (Pending has none).
func statusEmail(o *order.Order) *Email {
	var subject, body string
	switch o.Status {
	case order.StatusShipped:
		subject = fmt.Sprintf("Order %s is on its way", o.Number)
		body = fmt.Sprintf(`<h2>Your order has shipped!</h2>
<p>Order <b>%s</b> is on its way to you.</p>`, o.Number)
	case order.StatusDelivered:
		subject = fmt.Sprintf("Order %s delivered", o.Number)
		body = fmt.Sprintf(`<h2>Your order has been delivered.</h2>
<p>We hope you enjoy your tea! Order <b>%s</b>.</p>`, o.Number)
	case order.StatusCancelled:
		subject = fmt.Sprintf("Order %s cancelled", o.Number)
		body = fmt.Sprintf(`<h2>Your order has been cancelled.</h2>
<p>Order <b>%s</b> was cancelled. If you did not request this, please contact support.</p>`, o.Number)
	default:
		return nil
	}

	return &Email{To: o.ShippingEmail, Subject: subject, HTML: body}
}
