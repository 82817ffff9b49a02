package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
)

// SnapshotReader converts a live cart into an immutable priced Snapshot
// using current catalog pricing.
type SnapshotReader struct {
	store   Store
	catalog catalog.Reader
}

// NewSnapshotReader creates a SnapshotReader over the given cart store and
// catalog.
func NewSnapshotReader(store Store, cat catalog.Reader) *SnapshotReader {
	return &SnapshotReader{store: store, catalog: cat}
}

// Snapshot reads the customer's cart and prices every line from the catalog.
// Returns ErrEmptyCart when the cart has no lines at the moment of the read.
func (r *SnapshotReader) Snapshot(ctx context.Context, customerID int64) (*Snapshot, error) {
	items, err := r.store.Items(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		entry, err := r.catalog.GetEntry(ctx, it.TeaID, it.PackageID)
		if err != nil {
			return nil, errors.Wrapf(err, "price cart line tea=%d package=%d", it.TeaID, it.PackageID)
		}
		lines = append(lines, Line{
			TeaID:       entry.TeaID,
			PackageID:   entry.PackageID,
			TeaName:     entry.TeaName,
			PackageName: entry.PackageName,
			UnitPrice:   entry.SellingPrice,
			Quantity:    it.Quantity,
			WeightGrams: entry.WeightGrams,
		})
	}

	return &Snapshot{Lines: lines}, nil
}
