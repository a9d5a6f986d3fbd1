package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/repository"
)

type storeStats interface {
	Stats(ctx context.Context) (*repository.StoreStats, error)
}

type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
	store       storeStats
}

// NewHealthHandler reports dependency health. amqpConn is nil when the API
// runs without a broker.
func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection, store storeStats) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn, store: store}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.dbPool.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "postgres": "unavailable"})
		return
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "redis": "unavailable"})
		return
	}

	broker := "disabled"
	if h.amqpConn != nil {
		if h.amqpConn.IsClosed() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "rabbitmq": "unavailable"})
			return
		}
		broker = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"postgres": "connected",
		"redis":    "connected",
		"rabbitmq": broker,
	})
}

// Stats reports row counts for the storefront collections.
func (h *HealthHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StoreStatsResponse{
		Success:   true,
		Connected: stats.Connected,
		Products:  stats.Products,
		Carts:     stats.Carts,
		Orders:    stats.Orders,
	})
}
