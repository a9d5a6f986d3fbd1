package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/middleware"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// cartKey keys the cart by the authenticated user when there is one and by
// the guest session otherwise.
func cartKey(c *gin.Context, sessionID string) model.CartKey {
	if uid := middleware.GetUserID(c); uid != uuid.Nil {
		return model.UserKey(uid)
	}
	return model.SessionKey(sessionID)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	var q dto.CartQuery
	if !bindQuery(c, &q) {
		return
	}
	cart, err := h.svc.GetCart(c.Request.Context(), cartKey(c, q.SessionID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartEnvelope{Success: true, Cart: cart})
}

func (h *CartHandler) Count(c *gin.Context) {
	var q dto.CartQuery
	if !bindQuery(c, &q) {
		return
	}
	n, err := h.svc.ItemCount(c.Request.Context(), cartKey(c, q.SessionID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartCountResponse{Success: true, Count: n})
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), cartKey(c, req.SessionID), *req.Item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CartEnvelope{Success: true, Message: "Item added to cart", Cart: cart})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateCartItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.UpdateItemQuantity(c.Request.Context(), cartKey(c, req.SessionID), req.ProductID, req.Size, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartEnvelope{Success: true, Message: "Cart updated", Cart: cart})
}

// Delete removes one line when productId is given and empties the cart otherwise.
func (h *CartHandler) Delete(c *gin.Context) {
	var q dto.CartQuery
	if !bindQuery(c, &q) {
		return
	}
	key := cartKey(c, q.SessionID)

	if q.ProductID == "" {
		cart, err := h.svc.Clear(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.CartEnvelope{Success: true, Message: "Cart cleared", Cart: cart})
		return
	}

	productID, err := uuid.Parse(q.ProductID)
	if err != nil {
		respondBadRequest(c, "invalid product ID")
		return
	}
	if q.Size == "" {
		respondBadRequest(c, "size is required")
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), key, productID, q.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartEnvelope{Success: true, Message: "Item removed from cart", Cart: cart})
}

// Merge folds a guest cart into the signed-in user's cart.
func (h *CartHandler) Merge(c *gin.Context) {
	var req dto.MergeCartRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.MergeGuestIntoUser(c.Request.Context(), req.SessionID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartEnvelope{Success: true, Message: "Cart merged", Cart: cart})
}
