package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories behind one pool. It is built once in main.
type Store struct {
	Users    UserRepository
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository

	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:    NewUserRepository(pool),
		Products: NewProductRepository(pool),
		Carts:    NewCartRepository(pool),
		Orders:   NewOrderRepository(pool),
		pool:     pool,
	}
}

type StoreStats struct {
	Products  int
	Carts     int
	Orders    int
	Connected bool
}

func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{Connected: s.pool.Ping(ctx) == nil}
	for table, dst := range map[string]*int{
		"products": &stats.Products,
		"carts":    &stats.Carts,
		"orders":   &stats.Orders,
	} {
		if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return stats, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE metacharacters escaped.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
