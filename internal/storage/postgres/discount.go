package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
)

const (
	discountColumns = `id, name, type, COALESCE(code, ''), percentage, flat_amount, min_cart_value,
		buy_quantity, get_quantity, free_product_id, free_product_quantity, start_date, end_date, status`

	listActiveDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE status = 'active' ORDER BY id`

	findDiscountByCodeSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE UPPER(code) = UPPER($1)`

	listDiscountTeasSQL = `SELECT discount_id, tea_id FROM discount_teas WHERE discount_id = ANY($1)`

	expireEndedDiscountsSQL = `UPDATE discounts SET status = 'inactive', updated_at = now()
		WHERE status = 'active' AND end_date <= $1`

	upsertCouponSQL = `INSERT INTO discounts
			(name, type, code, percentage, flat_amount, min_cart_value, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active')
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
			type = EXCLUDED.type,
			percentage = EXCLUDED.percentage,
			flat_amount = EXCLUDED.flat_amount,
			min_cart_value = EXCLUDED.min_cart_value,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = 'active',
			updated_at = now()`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given
// pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns every discount still marked active, with linked teas
// attached. The engine re-checks the date window itself.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active discounts: %w", err)
	}

	discounts, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, fmt.Errorf("listing active discounts: %w", err)
	}
	if err := r.attachLinkedTeas(ctx, discounts); err != nil {
		return nil, err
	}
	return discounts, nil
}

// FindByCode looks a discount up by code, case-insensitively. Returns
// (nil, nil) when no such code exists; absence is a business outcome, not an
// error.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, findDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount by code: %w", err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding discount by code: %w", err)
	}

	ds := []discount.Discount{d}
	if err := r.attachLinkedTeas(ctx, ds); err != nil {
		return nil, err
	}
	return &ds[0], nil
}

// ExpireEnded flips every active discount whose window has closed to
// inactive. Idempotent; returns the number of rows changed.
func (r *DiscountRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, expireEndedDiscountsSQL, now)
	if err != nil {
		return 0, fmt.Errorf("expiring ended discounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertCoupon stores a code-gated discount, reactivating it if it already
// exists. Used by the bulk ingest tool; d.Code must be set.
func (r *DiscountRepository) UpsertCoupon(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		d.Name, d.Type, d.Code, d.Percentage, d.FlatAmount, d.MinCartValue,
		d.StartDate, d.EndDate,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", d.Code, err)
	}
	return nil
}

func (r *DiscountRepository) attachLinkedTeas(ctx context.Context, discounts []discount.Discount) error {
	if len(discounts) == 0 {
		return nil
	}

	ids := make([]int64, len(discounts))
	index := make(map[int64]int, len(discounts))
	for i := range discounts {
		ids[i] = discounts[i].ID
		index[discounts[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, listDiscountTeasSQL, ids)
	if err != nil {
		return fmt.Errorf("listing discount teas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var discountID, teaID int64
		if err := rows.Scan(&discountID, &teaID); err != nil {
			return fmt.Errorf("scanning discount tea: %w", err)
		}
		i := index[discountID]
		discounts[i].LinkedTeaIDs = append(discounts[i].LinkedTeaIDs, teaID)
	}
	return rows.Err()
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var d discount.Discount
	err := row.Scan(
		&d.ID, &d.Name, &d.Type, &d.Code, &d.Percentage, &d.FlatAmount, &d.MinCartValue,
		&d.BuyQuantity, &d.GetQuantity, &d.FreeProductID, &d.FreeProductQuantity,
		&d.StartDate, &d.EndDate, &d.Status,
	)
	return d, err
}
