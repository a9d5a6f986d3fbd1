package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/plant-shop-api/internal/model"
)

type OrderRepository interface {
	// Place persists the order and decrements stock for each line item in
	// one transaction. Nothing is written when any item cannot be fulfilled.
	Place(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListByPaymentStatus(ctx context.Context, status model.PaymentStatus) ([]model.Order, error)
	ListToFulfill(ctx context.Context) ([]model.Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error)
	ListRecent(ctx context.Context, limit, offset int) ([]model.Order, int, error)
	// Update applies fn to the locked order and persists the result.
	Update(ctx context.Context, id uuid.UUID, fn func(*model.Order) error) (*model.Order, error)
	// Cancel cancels the order and returns its items to stock.
	Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Stats(ctx context.Context, from, to *time.Time, top int) (*OrderStats, error)
	Count(ctx context.Context) (int, error)
}

type StatusCount struct {
	Status  model.OrderStatus
	Count   int
	Revenue decimal.Decimal
}

type CustomerTotal struct {
	Email  string
	Orders int
	Spent  decimal.Decimal
}

type ProductSales struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

// OrderStats aggregates revenue over paid orders that were not cancelled.
// ByStatus covers every order in the range.
type OrderStats struct {
	Revenue      decimal.Decimal
	ByStatus     []StatusCount
	TopCustomers []CustomerTotal
	BestSellers  []ProductSales
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, email, items, total_price, shipping_address, status, payment_status,
	tracking_number, delivery_date, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Email, &o.Items, &o.TotalPrice, &o.ShippingAddress, &o.Status, &o.PaymentStatus,
		&o.TrackingNumber, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) Place(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, email, items, total_price, shipping_address, status, payment_status,
			tracking_number, delivery_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.Email, order.Items, order.TotalPrice, order.ShippingAddress,
		order.Status, order.PaymentStatus, order.TrackingNumber, order.DeliveryDate,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		if _, err := adjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
			return fmt.Errorf("item %d (%s): %w", i+1, item.Name, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) list(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return r.list(ctx, "email = $1", email)
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, "user_id = $1", userID)
}

func (r *pgOrderRepo) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.list(ctx, "status = $1", string(status))
}

func (r *pgOrderRepo) ListByPaymentStatus(ctx context.Context, status model.PaymentStatus) ([]model.Order, error) {
	return r.list(ctx, "payment_status = $1", string(status))
}

// ListToFulfill returns paid orders that have not shipped yet.
func (r *pgOrderRepo) ListToFulfill(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, "status IN ($1, $2) AND payment_status = $3",
		string(model.OrderStatusPending), string(model.OrderStatusProcessing), string(model.PaymentStatusPaid))
}

func (r *pgOrderRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return r.list(ctx, "created_at >= $1 AND created_at <= $2", from, to)
}

func (r *pgOrderRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list recent orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// withLockedOrder runs fn against the order under a row lock and persists
// its mutable fields when fn succeeds.
func (r *pgOrderRepo) withLockedOrder(ctx context.Context, id uuid.UUID, fn func(tx pgx.Tx, o *model.Order) error) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := fn(tx, o); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, payment_status = $3, tracking_number = $4, delivery_date = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		o.ID, o.Status, o.PaymentStatus, o.TrackingNumber, o.DeliveryDate,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) Update(ctx context.Context, id uuid.UUID, fn func(*model.Order) error) (*model.Order, error) {
	return r.withLockedOrder(ctx, id, func(_ pgx.Tx, o *model.Order) error { return fn(o) })
}

// Cancel restocks only when the order actually moves to cancelled. Products
// deleted since the order was placed are skipped.
func (r *pgOrderRepo) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.withLockedOrder(ctx, id, func(tx pgx.Tx, o *model.Order) error {
		if o.Status == model.OrderStatusCancelled {
			return nil
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		for _, item := range o.Items {
			_, err := adjustStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil && !errors.Is(err, model.ErrProductNotFound) {
				return fmt.Errorf("restock %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

const revenueFilter = `status <> 'cancelled' AND payment_status = 'paid'`

const dateRangeFilter = `($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at <= $2)`

func (r *pgOrderRepo) Stats(ctx context.Context, from, to *time.Time, top int) (*OrderStats, error) {
	stats := &OrderStats{
		ByStatus:     []StatusCount{},
		TopCustomers: []CustomerTotal{},
		BestSellers:  []ProductSales{},
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE `+revenueFilter+` AND `+dateRangeFilter,
		from, to,
	).Scan(&stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("order revenue: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_price), 0) FROM orders
		 WHERE `+dateRangeFilter+` GROUP BY status ORDER BY status`, from, to)
	if err != nil {
		return nil, fmt.Errorf("order status counts: %w", err)
	}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Revenue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, sc)
	}
	rows.Close()

	rows, err = r.pool.Query(ctx,
		`SELECT email, COUNT(*), SUM(total_price) FROM orders
		 WHERE `+revenueFilter+` AND `+dateRangeFilter+`
		 GROUP BY email ORDER BY SUM(total_price) DESC, email LIMIT $3`, from, to, top)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	for rows.Next() {
		var ct CustomerTotal
		if err := rows.Scan(&ct.Email, &ct.Orders, &ct.Spent); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan top customer: %w", err)
		}
		stats.TopCustomers = append(stats.TopCustomers, ct)
	}
	rows.Close()

	rows, err = r.pool.Query(ctx,
		`SELECT (i->>'productId')::uuid, MIN(i->>'name'), SUM((i->>'quantity')::int),
			SUM((i->>'price')::numeric * (i->>'quantity')::int)
		 FROM orders, jsonb_array_elements(items) AS i
		 WHERE `+revenueFilter+` AND `+dateRangeFilter+`
		 GROUP BY 1 ORDER BY 3 DESC, 2 LIMIT $3`, from, to, top)
	if err != nil {
		return nil, fmt.Errorf("best sellers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity, &ps.Revenue); err != nil {
			return nil, fmt.Errorf("scan best seller: %w", err)
		}
		stats.BestSellers = append(stats.BestSellers, ps)
	}
	return stats, rows.Err()
}

func (r *pgOrderRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
