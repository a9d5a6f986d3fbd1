package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

const (
	productCachePrefix = "product:"
	defaultPageSize    = 20
)

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewProductService wires the catalog. redisClient may be nil, which disables caching.
func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, cacheTTL time.Duration) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient, cacheTTL: cacheTTL}
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product := &model.Product{
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		Size:             req.Size,
		Image:            req.Image,
		Images:           req.Images,
		Category:         req.Category,
		Tags:             req.Tags,
		StockQuantity:    req.StockQuantity,
		Rating:           req.Rating,
		Reviews:          req.Reviews,
		CareLevel:        req.CareLevel,
		LightRequirement: req.LightRequirement,
		PetFriendly:      req.PetFriendly,
	}
	product.Normalize()
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, wrapStore("create product", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCachePrefix + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore("get product", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	resp := toProductResponse(product)
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, q dto.ListProductsQuery) (*dto.ProductListResponse, error) {
	filter, err := productFilter(q)
	if err != nil {
		return nil, err
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, wrapStore("list products", err)
	}

	resp := &dto.ProductListResponse{
		Success:  true,
		Count:    len(products),
		Total:    total,
		Products: make([]dto.ProductResponse, 0, len(products)),
	}
	if filter.Limit > 0 {
		resp.Page = filter.Offset/filter.Limit + 1
		resp.Limit = filter.Limit
	}
	for i := range products {
		resp.Products = append(resp.Products, toProductResponse(&products[i]))
	}
	return resp, nil
}

// Search matches name, description and tags regardless of stock.
func (s *ProductService) Search(ctx context.Context, term string, limit int) ([]dto.ProductResponse, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.Invalid("search term is required")
	}
	products, err := s.productRepo.Search(ctx, term, limit)
	if err != nil {
		return nil, wrapStore("search products", err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.Update(ctx, id, func(p *model.Product) error {
		applyProductUpdate(p, req)
		p.Normalize()
		return p.Validate()
	})
	if err != nil {
		return nil, wrapStore("update product", err)
	}

	s.InvalidateProducts(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func applyProductUpdate(p *model.Product, req dto.UpdateProductRequest) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.Name, req.Name)
	setString(&p.Description, req.Description)
	setString(&p.Size, req.Size)
	setString(&p.Image, req.Image)
	setString(&p.Category, req.Category)
	setString(&p.CareLevel, req.CareLevel)
	setString(&p.LightRequirement, req.LightRequirement)
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Images != nil {
		p.Images = req.Images
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
	if req.Rating != nil {
		p.Rating = *req.Rating
	}
	if req.Reviews != nil {
		p.Reviews = *req.Reviews
	}
	if req.PetFriendly != nil {
		p.PetFriendly = *req.PetFriendly
	}
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return wrapStore("delete product", err)
	}
	s.InvalidateProducts(ctx, id)
	return nil
}

// Clear removes every product and returns how many were deleted.
func (s *ProductService) Clear(ctx context.Context) (int64, error) {
	n, err := s.productRepo.DeleteAll(ctx)
	if err != nil {
		return 0, wrapStore("clear products", err)
	}
	s.flushCache(ctx)
	return n, nil
}

// Seed replaces the catalog with products.
func (s *ProductService) Seed(ctx context.Context, products []model.Product) ([]dto.ProductResponse, error) {
	if _, err := s.productRepo.DeleteAll(ctx); err != nil {
		return nil, wrapStore("clear products", err)
	}
	if err := s.productRepo.CreateMany(ctx, products); err != nil {
		return nil, wrapStore("seed products", err)
	}
	s.flushCache(ctx)

	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out, nil
}

func (s *ProductService) Count(ctx context.Context) (int, error) {
	return s.productRepo.Count(ctx)
}

func (s *ProductService) DecreaseStock(ctx context.Context, id uuid.UUID, qty int) (*dto.ProductResponse, error) {
	if qty < 1 {
		return nil, model.Invalid("quantity must be at least 1")
	}
	return s.AdjustStock(ctx, id, -qty)
}

func (s *ProductService) IncreaseStock(ctx context.Context, id uuid.UUID, qty int) (*dto.ProductResponse, error) {
	if qty < 1 {
		return nil, model.Invalid("quantity must be at least 1")
	}
	return s.AdjustStock(ctx, id, qty)
}

// AdjustStock applies a signed delta. Going below zero fails with
// model.ErrInsufficientStock and leaves the product untouched.
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*dto.ProductResponse, error) {
	product, err := s.productRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, wrapStore("adjust stock", err)
	}
	s.InvalidateProducts(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// InvalidateProducts drops cached copies of the given products.
func (s *ProductService) InvalidateProducts(ctx context.Context, ids ...uuid.UUID) {
	if s.redisClient == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCachePrefix + id.String()
	}
	s.redisClient.Del(ctx, keys...)
}

func (s *ProductService) flushCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	iter := s.redisClient.Scan(ctx, 0, productCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		s.redisClient.Del(ctx, keys...)
	}
}

// productFilter translates storefront query parameters. "all" and empty
// values mean no filter; difficulty is an alias of careLevel.
func productFilter(q dto.ListProductsQuery) (repository.ProductFilter, error) {
	var f repository.ProductFilter

	f.Category = filterValue(q.Category)
	f.Size = filterValue(q.Size)
	f.Search = strings.TrimSpace(q.Search)
	f.Sort = q.Sort

	care := filterValue(q.Difficulty)
	if care == "" {
		care = filterValue(q.CareLevel)
	}
	f.CareLevel = model.NormalizeCareLevel(care)

	if v := filterValue(q.PetFriendly); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, model.Invalid("petFriendly must be true or false")
		}
		f.PetFriendly = &b
	}

	switch v := strings.TrimSpace(q.InStock); {
	case strings.EqualFold(v, "all"):
		f.AnyStock = true
	case v != "":
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, model.Invalid("inStock must be true, false or all")
		}
		f.InStock = &b
	}

	var err error
	if f.MinPrice, err = priceBound(q.MinPrice, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceBound(q.MaxPrice, "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, model.Invalid("minPrice cannot exceed maxPrice")
	}

	if q.Page > 0 || q.Limit > 0 {
		page, limit := q.Page, q.Limit
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = defaultPageSize
		}
		f.Limit = limit
		f.Offset = (page - 1) * limit
	}
	return f, nil
}

func filterValue(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

func priceBound(raw, name string) (*decimal.Decimal, error) {
	raw = filterValue(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, model.Invalid("%s must be a non-negative number", name)
	}
	return &d, nil
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Price:            p.Price,
		Size:             p.Size,
		Image:            p.Image,
		Images:           nonNil(p.Images),
		Category:         p.Category,
		Tags:             nonNil(p.Tags),
		InStock:          p.InStock,
		StockQuantity:    p.StockQuantity,
		Rating:           p.Rating,
		Reviews:          p.Reviews,
		CareLevel:        p.CareLevel,
		LightRequirement: p.LightRequirement,
		PetFriendly:      p.PetFriendly,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
