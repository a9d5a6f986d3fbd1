package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/plant-shop-api/internal/model"
)

type CartRepository interface {
	Get(ctx context.Context, key model.CartKey) (*model.Cart, error)
	GetOrCreate(ctx context.Context, key model.CartKey) (*model.Cart, error)
	// Mutate loads the cart under a row lock, applies fn and persists the
	// result. It returns model.ErrCartNotFound when the cart does not exist.
	Mutate(ctx context.Context, key model.CartKey, fn func(*model.Cart) error) (*model.Cart, error)
	// MutateOrCreate is Mutate on a cart that is created empty when absent.
	MutateOrCreate(ctx context.Context, key model.CartKey, fn func(*model.Cart) error) (*model.Cart, error)
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*model.Cart, error)
	Delete(ctx context.Context, key model.CartKey) error
	DeleteEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]model.Cart, error)
	Count(ctx context.Context) (int, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

const cartColumns = `id, session_id, user_id, items, total_amount, created_at, updated_at`

func cartWhere(key model.CartKey) (string, any) {
	if key.IsUser() {
		return "user_id = $1", key.UserID
	}
	return "session_id = $1", key.SessionID
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	c := &model.Cart{}
	var sessionID *string
	if err := row.Scan(&c.ID, &sessionID, &c.UserID, &c.Items, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if sessionID != nil {
		c.SessionID = *sessionID
	}
	c.Recalculate()
	return c, nil
}

func selectCart(ctx context.Context, q querier, key model.CartKey, forUpdate bool) (*model.Cart, error) {
	cond, arg := cartWhere(key)
	query := `SELECT ` + cartColumns + ` FROM carts WHERE ` + cond
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCart(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

// insertEmptyCart creates the cart for key unless one already exists.
func insertEmptyCart(ctx context.Context, q querier, key model.CartKey) error {
	c := model.NewCart(key)
	_, err := q.Exec(ctx,
		`INSERT INTO carts (id, session_id, user_id, items, total_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT DO NOTHING`,
		c.ID, nullIfEmpty(c.SessionID), c.UserID, c.Items, c.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func saveCart(ctx context.Context, q querier, c *model.Cart) error {
	c.Recalculate()
	err := q.QueryRow(ctx,
		`UPDATE carts SET session_id = $2, user_id = $3, items = $4, total_amount = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		c.ID, nullIfEmpty(c.SessionID), c.UserID, c.Items, c.TotalAmount,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) Get(ctx context.Context, key model.CartKey) (*model.Cart, error) {
	return selectCart(ctx, r.pool, key, false)
}

func (r *pgCartRepo) GetOrCreate(ctx context.Context, key model.CartKey) (*model.Cart, error) {
	c, err := selectCart(ctx, r.pool, key, false)
	if err != nil || c != nil {
		return c, err
	}
	if err := insertEmptyCart(ctx, r.pool, key); err != nil {
		return nil, err
	}
	// A concurrent request may have won the insert; either way the row exists now.
	return selectCart(ctx, r.pool, key, false)
}

func (r *pgCartRepo) Mutate(ctx context.Context, key model.CartKey, fn func(*model.Cart) error) (*model.Cart, error) {
	return r.mutate(ctx, key, false, fn)
}

func (r *pgCartRepo) MutateOrCreate(ctx context.Context, key model.CartKey, fn func(*model.Cart) error) (*model.Cart, error) {
	return r.mutate(ctx, key, true, fn)
}

func (r *pgCartRepo) mutate(ctx context.Context, key model.CartKey, create bool, fn func(*model.Cart) error) (*model.Cart, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if create {
		if err := insertEmptyCart(ctx, tx, key); err != nil {
			return nil, err
		}
	}
	c, err := selectCart(ctx, tx, key, true)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrCartNotFound
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := saveCart(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cart: %w", err)
	}
	return c, nil
}

// Merge folds the guest cart identified by sessionID into the user's cart.
// A guest cart with no user cart to merge into is re-keyed to the user.
func (r *pgCartRepo) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*model.Cart, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	guest, err := selectCart(ctx, tx, model.SessionKey(sessionID), true)
	if err != nil {
		return nil, err
	}
	userKey := model.UserKey(userID)
	user, err := selectCart(ctx, tx, userKey, true)
	if err != nil {
		return nil, err
	}

	switch {
	case guest == nil || guest.IsEmpty():
		if user == nil {
			if err := insertEmptyCart(ctx, tx, userKey); err != nil {
				return nil, err
			}
			if user, err = selectCart(ctx, tx, userKey, false); err != nil {
				return nil, err
			}
		}
	case user == nil:
		guest.SessionID = ""
		guest.UserID = &userID
		if err := saveCart(ctx, tx, guest); err != nil {
			return nil, err
		}
		user = guest
	default:
		user.Merge(guest)
		if err := saveCart(ctx, tx, user); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guest.ID); err != nil {
			return nil, fmt.Errorf("delete guest cart: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cart merge: %w", err)
	}
	return user, nil
}

func (r *pgCartRepo) Delete(ctx context.Context, key model.CartKey) error {
	cond, arg := cartWhere(key)
	ct, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE `+cond, arg)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrCartNotFound
	}
	return nil
}

func (r *pgCartRepo) DeleteEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM carts WHERE updated_at < $1 AND jsonb_array_length(items) = 0`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete empty carts: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ListAbandoned returns non-empty carts untouched since cutoff, oldest first.
func (r *pgCartRepo) ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]model.Cart, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cartColumns+` FROM carts
		 WHERE updated_at < $1 AND jsonb_array_length(items) > 0
		 ORDER BY updated_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list abandoned carts: %w", err)
	}
	defer rows.Close()

	var carts []model.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, *c)
	}
	return carts, rows.Err()
}

func (r *pgCartRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM carts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count carts: %w", err)
	}
	return n, nil
}
