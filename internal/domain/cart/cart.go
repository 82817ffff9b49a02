// Package cart models the customer's mutable cart and its conversion into an
// immutable priced snapshot at order-placement time.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when a snapshot is requested for a cart with no
// lines.
var ErrEmptyCart = errors.New("cart is empty")

// Item is a single mutable cart entry keyed by tea and package.
type Item struct {
	TeaID     int64
	PackageID int64
	Quantity  int
}

// Store provides access to the customer's live cart. The cart is owned by a
// single customer; last-write-wins semantics are acceptable between a
// concurrent add and a clear.
type Store interface {
	Items(ctx context.Context, customerID int64) ([]Item, error)
	// SetItem writes one cart line; a zero or negative quantity removes it.
	SetItem(ctx context.Context, customerID int64, item Item) error
	Clear(ctx context.Context, customerID int64) error
}

// Line is one priced, snapshotted cart line. Names and price are copied from
// the catalog at snapshot time and never re-read.
type Line struct {
	TeaID       int64
	PackageID   int64
	TeaName     string
	PackageName string
	UnitPrice   decimal.Decimal
	Quantity    int
	WeightGrams int
}

// Subtotal returns unit price times quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable ordered list of priced lines taken from a live
// cart at a point in time.
type Snapshot struct {
	Lines []Line
}

// Subtotal returns the exact sum of line subtotals. No intermediate rounding
// is applied; callers round at display boundaries only.
func (s Snapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// TeaIDs returns the distinct tea ids present in the snapshot, in line order.
func (s Snapshot) TeaIDs() []int64 {
	seen := make(map[int64]struct{}, len(s.Lines))
	ids := make([]int64, 0, len(s.Lines))
	for _, l := range s.Lines {
		if _, ok := seen[l.TeaID]; ok {
			continue
		}
		seen[l.TeaID] = struct{}{}
		ids = append(ids, l.TeaID)
	}
	return ids
}

// TotalWeightGrams sums line weight times quantity, substituting
// defaultGrams for lines whose catalog entry has no weight on record.
func (s Snapshot) TotalWeightGrams(defaultGrams int) int {
	total := 0
	for _, l := range s.Lines {
		w := l.WeightGrams
		if w <= 0 {
			w = defaultGrams
		}
		total += w * l.Quantity
	}
	return total
}
