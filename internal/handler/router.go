package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/plant-shop-api/internal/middleware"
)

type Handlers struct {
	Auth    *AuthHandler
	Product *ProductHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Health  *HealthHandler
}

// NewRouter mounts every route under /api/v1 plus the probes. Catalog reads,
// the cart and checkout are open to guests; a bearer token, when present,
// keys the cart by user.
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	router := gin.Default()
	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)

	requireAuth := middleware.AuthMiddleware(jwtSecret)
	optionalAuth := middleware.OptionalAuth(jwtSecret)
	adminOnly := middleware.AdminOnly()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		v1.GET("/stats", requireAuth, adminOnly, h.Health.Stats)

		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/search", h.Product.Search)
		products.GET("/seed", h.Product.SeedStatus)
		products.GET("/:id", h.Product.GetByID)

		admin := products.Group("", requireAuth, adminOnly)
		admin.POST("", h.Product.Create)
		admin.POST("/seed", h.Product.Seed)
		admin.DELETE("/clear", h.Product.Clear)
		admin.PUT("/:id", h.Product.Update)
		admin.DELETE("/:id", h.Product.Delete)
		admin.POST("/:id/stock", h.Product.AdjustStock)

		cart := v1.Group("/cart", optionalAuth)
		cart.GET("", h.Cart.GetCart)
		cart.GET("/count", h.Cart.Count)
		cart.POST("", h.Cart.AddItem)
		cart.PUT("", h.Cart.UpdateItem)
		cart.DELETE("", h.Cart.Delete)
		v1.POST("/cart/merge", requireAuth, h.Cart.Merge)

		orders := v1.Group("/orders", optionalAuth)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/stats", requireAuth, adminOnly, h.Order.Stats)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("", requireAuth, adminOnly, h.Order.UpdateOrder)
	}

	return router
}
