// Package catalog exposes the read-only view of teas and their packages that
// the order engine snapshots from. Catalog writes (admin CRUD) live outside
// this service; only current pricing, display names, and package weight are
// consumed here.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a tea/package combination does not exist or
// is no longer active.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is the current catalog state for one tea/package combination.
// Values are snapshotted onto orders at placement time; later catalog edits
// never alter existing orders.
type Entry struct {
	TeaID       int64
	PackageID   int64
	TeaName     string
	PackageName string
	// SellingPrice is the current unit price.
	SellingPrice decimal.Decimal
	// WeightGrams is the package weight. Zero means the catalog has no
	// weight on record; callers fall back to a default.
	WeightGrams int
}

// Reader provides catalog lookups for the order engine.
type Reader interface {
	// GetEntry returns the current catalog entry for a tea/package pair.
	// Returns ErrNotFound when the pair is unknown or inactive.
	GetEntry(ctx context.Context, teaID, packageID int64) (*Entry, error)
	// GetTeaName returns the display name for a tea. Used when a promotion
	// grants a free product without a package reference.
	GetTeaName(ctx context.Context, teaID int64) (string, error)
}
