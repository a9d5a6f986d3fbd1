// Command seed replaces the product catalog with the bundled sample plants,
// or with a YAML catalog given by -file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/plant-shop-api/internal/config"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
	"github.com/flicky/plant-shop-api/internal/seed"
)

func main() {
	file := flag.String("file", "", "YAML catalog to load instead of the bundled one")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var products []model.Product
	if *file != "" {
		products, err = seed.LoadFile(*file)
	} else {
		products, err = seed.Products()
	}
	if err != nil {
		log.Error("load catalog", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}

	repo := repository.NewProductRepository(pool)
	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		log.Error("clear products", "error", err)
		os.Exit(1)
	}
	if err := repo.CreateMany(ctx, products); err != nil {
		log.Error("insert products", "error", err)
		os.Exit(1)
	}

	log.Info("catalog seeded", "deleted", deleted, "inserted", len(products))
}
