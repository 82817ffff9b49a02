package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/catalog"
)

const (
	getCatalogEntrySQL = `SELECT t.id, p.id, t.name, p.name, p.selling_price, p.weight_grams
		FROM tea_packages p
		JOIN teas t ON t.id = p.tea_id
		WHERE t.id = $1 AND p.id = $2 AND t.status = 'active' AND p.status = 'active'`

	getTeaNameSQL = `SELECT name FROM teas WHERE id = $1 AND status = 'active'`

	upsertTeaSQL = `INSERT INTO teas (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET status = 'active'
		RETURNING id`

	upsertPackageSQL = `INSERT INTO tea_packages (tea_id, name, selling_price, weight_grams)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tea_id, name) DO UPDATE
		SET selling_price = EXCLUDED.selling_price,
			weight_grams = EXCLUDED.weight_grams,
			status = 'active'`
)

var _ catalog.Reader = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Reader backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetEntry returns the current catalog entry for a tea/package pair.
func (r *CatalogRepository) GetEntry(ctx context.Context, teaID, packageID int64) (*catalog.Entry, error) {
	rows, err := r.pool.Query(ctx, getCatalogEntrySQL, teaID, packageID)
	if err != nil {
		return nil, fmt.Errorf("getting catalog entry %d/%d: %w", teaID, packageID, err)
	}

	entry, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (catalog.Entry, error) {
		var e catalog.Entry
		err := row.Scan(&e.TeaID, &e.PackageID, &e.TeaName, &e.PackageName, &e.SellingPrice, &e.WeightGrams)
		return e, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting catalog entry %d/%d: %w", teaID, packageID, err)
	}
	return &entry, nil
}

// UpsertTea stores a tea by name and returns its id. Used by the seeding
// tool.
func (r *CatalogRepository) UpsertTea(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, upsertTeaSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting tea %q: %w", name, err)
	}
	return id, nil
}

// UpsertPackage stores a sellable package for a tea, keyed by (tea, name).
func (r *CatalogRepository) UpsertPackage(ctx context.Context, teaID int64, name string, sellingPrice decimal.Decimal, weightGrams int) error {
	if _, err := r.pool.Exec(ctx, upsertPackageSQL, teaID, name, sellingPrice, weightGrams); err != nil {
		return fmt.Errorf("upserting package %q for tea %d: %w", name, teaID, err)
	}
	return nil
}

// GetTeaName returns the display name for an active tea.
func (r *CatalogRepository) GetTeaName(ctx context.Context, teaID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, getTeaNameSQL, teaID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", catalog.ErrNotFound
		}
		return "", fmt.Errorf("getting tea %d: %w", teaID, err)
	}
	return name, nil
}
