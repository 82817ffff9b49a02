package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			order_number, customer_id, status, payment_status,
			subtotal_amount, discount_amount, total_amount, discount_id,
			shipping_name, shipping_phone, shipping_email, shipping_address,
			shipping_city, shipping_state, shipping_pincode, order_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (
			order_id, tea_id, package_id, tea_name, package_name,
			quantity, price_per_unit, subtotal, is_free
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	orderColumns = `id, order_number, customer_id, status, payment_status,
		subtotal_amount, discount_amount, total_amount, discount_id,
		shipping_name, shipping_phone, shipping_email, shipping_address,
		shipping_city, shipping_state, shipping_pincode,
		order_date, delivered_at, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, tea_id, package_id, tea_name, package_name,
			quantity, price_per_unit, subtotal, is_free
		FROM order_items WHERE order_id = $1 ORDER BY id`

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	// The status predicate makes this a compare-and-swap: zero rows means
	// someone else moved the order first.
	updateOrderStatusSQL = `UPDATE orders
		SET status = $3, delivered_at = COALESCE($4, delivered_at), updated_at = now()
		WHERE id = $1 AND status = $2`

	updatePaymentStatusSQL = `UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithItems persists the order and all of its items in one
// transaction. On success the generated ids and timestamps are written back
// onto the passed structs.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order, items []order.Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.CustomerID, o.Status, o.PaymentStatus,
		o.Subtotal, o.DiscountAmount, o.Total, o.DiscountID,
		o.ShippingName, o.ShippingPhone, o.ShippingEmail, o.ShippingAddress,
		o.ShippingCity, o.ShippingState, o.ShippingPincode, o.OrderDate,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}

	for i := range items {
		items[i].OrderID = o.ID
		err := tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, items[i].TeaID, items[i].PackageID, items[i].TeaName, items[i].PackageName,
			items[i].Quantity, items[i].PricePerUnit, items[i].Subtotal, items[i].IsFree,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("creating order item for order %q: %w", o.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.Number, err)
	}
	return nil
}

// GetByID returns a single order by id.
func (r *OrderRepository) GetByID(ctx context.Context, orderID int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	return &o, nil
}

// GetItems returns all items of an order in insertion order.
func (r *OrderRepository) GetItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, getOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %d: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns all orders, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus moves an order to the next status only if the stored status
// still matches expected. Returns order.ErrStaleStatus when it does not.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, expected, next order.Status, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, orderID, expected, next, deliveredAt)
	if err != nil {
		return fmt.Errorf("updating status of order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order vanished or its status moved underneath us.
		if _, err := r.GetByID(ctx, orderID); err != nil {
			return err
		}
		return order.ErrStaleStatus
	}
	return nil
}

// UpdatePaymentStatus sets the payment flag.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, orderID int64, ps order.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, updatePaymentStatusSQL, orderID, ps)
	if err != nil {
		return fmt.Errorf("updating payment status of order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.DiscountAmount, &o.Total, &o.DiscountID,
		&o.ShippingName, &o.ShippingPhone, &o.ShippingEmail, &o.ShippingAddress,
		&o.ShippingCity, &o.ShippingState, &o.ShippingPincode,
		&o.OrderDate, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.TeaID, &it.PackageID, &it.TeaName, &it.PackageName,
		&it.Quantity, &it.PricePerUnit, &it.Subtotal, &it.IsFree,
	)
	return it, err
}
