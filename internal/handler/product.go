package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/service"
)

const defaultSearchLimit = 20

type ProductHandler struct {
	productService *service.ProductService
	catalog        func() ([]model.Product, error)
}

// NewProductHandler serves the catalog. catalog supplies the sample products
// loaded by POST /products/seed.
func NewProductHandler(productService *service.ProductService, catalog func() ([]model.Product, error)) *ProductHandler {
	return &ProductHandler{productService: productService, catalog: catalog}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ProductEnvelope{Success: true, Message: "Product created", Product: resp})
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	resp, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductEnvelope{Success: true, Product: resp})
}

func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ListProductsQuery
	if !bindQuery(c, &q) {
		return
	}

	resp, err := h.productService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Search(c *gin.Context) {
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondBadRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	products, err := h.productService.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductListResponse{
		Success:  true,
		Count:    len(products),
		Total:    len(products),
		Products: products,
	})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductEnvelope{Success: true, Message: "Product updated", Product: resp})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Success: true, Message: "Product deleted"})
}

func (h *ProductHandler) Clear(c *gin.Context) {
	n, err := h.productService.Clear(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClearProductsResponse{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d products", n),
		DeletedCount: n,
	})
}

// AdjustStock applies a signed delta: positive restocks, negative sells off.
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.productService.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductEnvelope{Success: true, Message: "Stock updated", Product: resp})
}

// Seed replaces the catalog with the bundled sample plants.
func (h *ProductHandler) Seed(c *gin.Context) {
	products, err := h.catalog()
	if err != nil {
		respondError(c, err)
		return
	}

	seeded, err := h.productService.Seed(c.Request.Context(), products)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SeedResponse{
		Success:  true,
		Message:  fmt.Sprintf("Seeded %d products", len(seeded)),
		Count:    len(seeded),
		Products: seeded,
	})
}

// SeedStatus reports how many products are in the catalog.
func (h *ProductHandler) SeedStatus(c *gin.Context) {
	n, err := h.productService.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SeedResponse{
		Success: true,
		Message: fmt.Sprintf("Catalog has %d products", n),
		Count:   n,
	})
}
