package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/plant-shop-api/internal/model"
)

// ProductFilter narrows a catalog listing. Zero values mean "no filter",
// except stock: unless AnyStock is set, only in-stock products are returned
// when InStock is nil.
type ProductFilter struct {
	Category    string
	Size        string
	CareLevel   string
	PetFriendly *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStock     *bool
	AnyStock    bool
	Search      string
	Sort        string
	Limit       int
	Offset      int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	CreateMany(ctx context.Context, products []model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error)
	Search(ctx context.Context, term string, limit int) ([]model.Product, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*model.Product) error) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error)
	Count(ctx context.Context) (int, error)
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, name, description, price, size, image, images, category, tags,
	in_stock, stock_quantity, rating, reviews, care_level, light_requirement, pet_friendly,
	created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Size, &p.Image, &p.Images, &p.Category, &p.Tags,
		&p.InStock, &p.StockQuantity, &p.Rating, &p.Reviews, &p.CareLevel, &p.LightRequirement, &p.PetFriendly,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func insertProduct(ctx context.Context, q querier, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Normalize()
	query := `INSERT INTO products (id, name, description, price, size, image, images, category, tags,
				in_stock, stock_quantity, rating, reviews, care_level, light_requirement, pet_friendly,
				created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
			  RETURNING created_at, updated_at`
	return q.QueryRow(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Size, p.Image, p.Images, p.Category, p.Tags,
		p.InStock, p.StockQuantity, p.Rating, p.Reviews, p.CareLevel, p.LightRequirement, p.PetFriendly,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	if err := insertProduct(ctx, r.pool, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// CreateMany inserts all products or none.
func (r *pgProductRepo) CreateMany(ctx context.Context, products []model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range products {
		if err := insertProduct(ctx, tx, &products[i]); err != nil {
			return fmt.Errorf("insert product %q: %w", products[i].Name, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

var productSorts = map[string]string{
	"":           "created_at DESC",
	"newest":     "created_at DESC",
	"rating":     "rating DESC, reviews DESC",
	"featured":   "reviews DESC, rating DESC",
	"price_asc":  "price ASC",
	"price_desc": "price DESC",
	"name":       "name ASC",
}

// whereClause renders the filter as a SQL condition with positional args.
func (f ProductFilter) whereClause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Size != "" {
		add(`size ILIKE $%d ESCAPE '\'`, containsPattern(f.Size))
	}
	if f.CareLevel != "" {
		add("care_level = $%d", f.CareLevel)
	}
	if f.PetFriendly != nil {
		add("pet_friendly = $%d", *f.PetFriendly)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	switch {
	case f.InStock != nil:
		add("in_stock = $%d", *f.InStock)
	case !f.AnyStock:
		conds = append(conds, "in_stock")
	}
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\' OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $%d ESCAPE '\'))`,
			n, n, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *pgProductRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error) {
	where, args := filter.whereClause()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	orderBy, ok := productSorts[filter.Sort]
	if !ok {
		orderBy = productSorts[""]
	}
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + orderBy + `, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Search matches term against name, description and tags, regardless of stock.
func (r *pgProductRepo) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	products, _, err := r.List(ctx, ProductFilter{Search: term, AnyStock: true, Sort: "rating", Limit: limit})
	return products, err
}

// Update runs fn against the product under a row lock and writes it back in
// the same transaction, so stock moved by a concurrent order is never
// overwritten with the value read here.
func (r *pgProductRepo) Update(ctx context.Context, id uuid.UUID, fn func(*model.Product) error) (*model.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.Normalize()

	query := `UPDATE products SET name=$2, description=$3, price=$4, size=$5, image=$6, images=$7,
				category=$8, tags=$9, in_stock=$10, stock_quantity=$11, rating=$12, reviews=$13,
				care_level=$14, light_requirement=$15, pet_friendly=$16, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err = tx.QueryRow(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Size, p.Image, p.Images, p.Category, p.Tags,
		p.InStock, p.StockQuantity, p.Rating, p.Reviews, p.CareLevel, p.LightRequirement, p.PetFriendly,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

func (r *pgProductRepo) DeleteAll(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	return adjustStock(ctx, r.pool, id, delta)
}

// adjustStock applies delta in a single conditional UPDATE so concurrent
// adjustments cannot drive the quantity below zero. in_stock is derived from
// the new quantity in the same statement.
func adjustStock(ctx context.Context, q querier, id uuid.UUID, delta int) (*model.Product, error) {
	query := `UPDATE products
			  SET stock_quantity = stock_quantity + $2,
				  in_stock = stock_quantity + $2 > 0,
				  updated_at = NOW()
			  WHERE id = $1 AND stock_quantity + $2 >= 0
			  RETURNING ` + productColumns
	p, err := scanProduct(q.QueryRow(ctx, query, id, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	if !exists {
		return nil, model.ErrProductNotFound
	}
	return nil, model.ErrInsufficientStock
}

func (r *pgProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
