package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/plant-shop-api/internal/config"
	"github.com/flicky/plant-shop-api/internal/handler"
	"github.com/flicky/plant-shop-api/internal/repository"
	"github.com/flicky/plant-shop-api/internal/seed"
	"github.com/flicky/plant-shop-api/internal/service"
	"github.com/flicky/plant-shop-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	if cfg.DB.AutoMigrate {
		if err := repository.Migrate(ctx, dbPool); err != nil {
			log.Error("migrate database", "error", err)
			os.Exit(1)
		}
		log.Info("database schema up to date")
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	store := repository.NewStore(dbPool)

	// RabbitMQ is optional: without it carts are cleared inline at checkout.
	var (
		amqpConn    *amqp.Connection
		publisher   service.OrderPublisher
		orderWorker *worker.OrderWorker
	)
	if cfg.RabbitMQ.Enabled && cfg.RabbitMQ.URL != "" {
		amqpConn, err = amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Error("connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()

		amqpCh, err := amqpConn.Channel()
		if err != nil {
			log.Error("open RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		defer amqpCh.Close()

		if err := worker.SetupRabbitMQ(amqpCh); err != nil {
			log.Error("setup RabbitMQ", "error", err)
			os.Exit(1)
		}
		log.Info("connected to RabbitMQ")

		publisher = worker.NewPublisher(amqpCh)
		orderWorker = worker.NewOrderWorker(amqpCh, store.Carts, worker.NewRedisIdempotency(redisClient), log)
	} else {
		log.Warn("RabbitMQ disabled, carts are cleared at checkout")
	}

	// Services
	productSvc := service.NewProductService(store.Products, redisClient, cfg.Cache.ProductTTL)
	cartSvc := service.NewCartService(store.Carts, store.Products)
	orderSvc := service.NewOrderService(store.Orders, store.Carts, productSvc, publisher, log)
	authSvc := service.NewAuthService(store.Users, cartSvc, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.AdminEmails)

	router := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Product: handler.NewProductHandler(productSvc, seed.Products),
		Cart:    handler.NewCartHandler(cartSvc),
		Order:   handler.NewOrderHandler(orderSvc),
		Health:  handler.NewHealthHandler(dbPool, redisClient, amqpConn, store),
	}, cfg.JWT.Secret)

	if orderWorker != nil {
		if err := orderWorker.Start(ctx); err != nil {
			log.Error("start order worker", "error", err)
			os.Exit(1)
		}
	}

	janitor := worker.NewCartJanitor(store.Carts, cfg.Cart, log)
	go janitor.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	if orderWorker != nil {
		orderWorker.Stop()
	}
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
