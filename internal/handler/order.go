package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/middleware"
	"github.com/flicky/plant-shop-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bind(c, &req) {
		return
	}

	var userID *uuid.UUID
	if uid := middleware.GetUserID(c); uid != uuid.Nil {
		userID = &uid
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OrderEnvelope{Success: true, Message: "Order created", Order: order})
}

// ListOrders filters by the first query field present; with none it pages
// through all orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if !bindQuery(c, &q) {
		return
	}

	if !q.Filtered() {
		resp, err := h.orderService.ListRecent(c.Request.Context(), q.Page, q.Limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp, err := h.orderService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OrderEnvelope{Success: true, Order: order})
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req dto.UpdateOrderRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.orderService.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Stats(c *gin.Context) {
	var q dto.StatsQuery
	if !bindQuery(c, &q) {
		return
	}

	resp, err := h.orderService.Stats(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
