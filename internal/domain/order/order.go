// Package order holds the order aggregate, its status state machine, and the
// placement orchestrator.
package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Delivered and Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// PaymentStatus is orthogonal to Status and independently settable.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// ErrNotFound is returned when an order does not exist or is not visible to
// the requesting customer.
var ErrNotFound = errors.New("order not found")

// ErrStaleStatus is returned by the repository when a guarded status update
// finds the stored status no longer matches the expected one.
var ErrStaleStatus = errors.New("order status changed concurrently")

// ValidationError reports malformed or missing placement input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a fatal failure writing the order aggregate.
// Placement aborts; nothing downstream runs.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Order is the immutable record of a placed order. Shipping and contact
// fields are snapshots copied at placement time; later customer edits never
// alter them. Only Status, PaymentStatus and DeliveredAt change afterwards,
// and only through the state machine.
type Order struct {
	ID            int64
	Number        string
	CustomerID    int64
	Status        Status
	PaymentStatus PaymentStatus

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	DiscountID     *int64

	ShippingName    string
	ShippingPhone   string
	ShippingEmail   string
	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingPincode string

	OrderDate   time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is one snapshotted order line. Free items carry a zero unit price and
// exist so quantity promotions show up on the order without touching the
// discount accounting fields.
type Item struct {
	ID           int64
	OrderID      int64
	TeaID        int64
	PackageID    int64
	TeaName      string
	PackageName  string
	Quantity     int
	PricePerUnit decimal.Decimal
	Subtotal     decimal.Decimal
	IsFree       bool
}

// Repository persists orders. CreateWithItems must be atomic: either the
// order and every item land together or nothing does.
type Repository interface {
	CreateWithItems(ctx context.Context, o *Order, items []Item) error
	GetByID(ctx context.Context, orderID int64) (*Order, error)
	GetItems(ctx context.Context, orderID int64) ([]Item, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus writes the new status only if the stored status still
	// equals expected; returns ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, orderID int64, expected, next Status, deliveredAt *time.Time) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, ps PaymentStatus) error
}

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewNumber generates a globally unique order number of the form
// ORD-<millis base36>-<5 random base36 chars>.
func NewNumber(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock rather than returning an error here.
		return fmt.Sprintf("ORD-%s-%05d", ts, now.Nanosecond()%100000)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", ts, buf)
}
