package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

type mockProductRepo struct {
	products   map[uuid.UUID]*model.Product
	lastFilter repository.ProductFilter
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) CreateMany(ctx context.Context, products []model.Product) error {
	for i := range products {
		if err := m.Create(ctx, &products[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	m.lastFilter = f
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Search(_ context.Context, term string, _ int) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.products {
		if p.Name == term {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, id uuid.UUID, fn func(*model.Product) error) (*model.Product, error) {
	stored, ok := m.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.Normalize()
	m.products[id] = &cp
	out := cp
	return &out, nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DeleteAll(_ context.Context) (int64, error) {
	n := int64(len(m.products))
	m.products = make(map[uuid.UUID]*model.Product)
	return n, nil
}

func (m *mockProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	if p.StockQuantity+delta < 0 {
		return nil, model.ErrInsufficientStock
	}
	p.StockQuantity += delta
	p.InStock = p.StockQuantity > 0
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) Count(_ context.Context) (int, error) {
	return len(m.products), nil
}

func (m *mockProductRepo) add(p model.Product) *model.Product {
	p.ID = uuid.New()
	p.Normalize()
	m.products[p.ID] = &p
	return &p
}

func samplePlant(name string, stock int) model.Product {
	return model.Product{
		Name:          name,
		Description:   "A leafy houseplant",
		Price:         decimal.RequireFromString("24.99"),
		Size:          "SM, MD, LG",
		Image:         "/images/" + name + ".jpg",
		Category:      "Indoor",
		StockQuantity: stock,
		CareLevel:     "Easy",
	}
}

func validCreateRequest() dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Name:          "  Fiddle Leaf Fig ",
		Description:   "Tall and dramatic",
		Price:         decimal.RequireFromString("59.99"),
		Size:          "LG",
		Image:         "/images/fiddle.jpg",
		Category:      "Indoor",
		StockQuantity: 4,
		CareLevel:     "moderate",
	}
}

func TestProductService_Create(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil, time.Minute)

	resp, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "Fiddle Leaf Fig", resp.Name)
	assert.Equal(t, "Moderate", resp.CareLevel)
	assert.True(t, resp.InStock)
	assert.Equal(t, []string{}, resp.Tags)
	assert.Len(t, repo.products, 1)
}

func TestProductService_Create_Invalid(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, time.Minute)

	req := validCreateRequest()
	req.Image = ""
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrValidation)

	req = validCreateRequest()
	req.CareLevel = "impossible"
	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, time.Minute)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProductService_Update_Partial(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(samplePlant("Pothos", 3))
	svc := NewProductService(repo, nil, time.Minute)

	price := decimal.RequireFromString("19.50")
	zero := 0
	resp, err := svc.Update(context.Background(), p.ID, dto.UpdateProductRequest{Price: &price, StockQuantity: &zero})
	require.NoError(t, err)
	assert.True(t, price.Equal(resp.Price))
	assert.False(t, resp.InStock)
	assert.Equal(t, "Pothos", resp.Name)
	assert.Equal(t, "SM, MD, LG", resp.Size)
}

func TestProductService_Update_RejectsInvalid(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(samplePlant("Pothos", 3))
	svc := NewProductService(repo, nil, time.Minute)

	empty := ""
	_, err := svc.Update(context.Background(), p.ID, dto.UpdateProductRequest{Name: &empty})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "Pothos", repo.products[p.ID].Name)
}

func TestProductService_Update_KeepsStoredStock(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(samplePlant("Pothos", 10))
	svc := NewProductService(repo, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.DecreaseStock(ctx, p.ID, 3)
	require.NoError(t, err)

	name := "Golden Pothos"
	resp, err := svc.Update(ctx, p.ID, dto.UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Golden Pothos", resp.Name)
	assert.Equal(t, 7, resp.StockQuantity)
	assert.Equal(t, 7, repo.products[p.ID].StockQuantity)
}

func TestProductService_Update_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, time.Minute)
	name := "Ghost"
	_, err := svc.Update(context.Background(), uuid.New(), dto.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(samplePlant("Pothos", 3))
	svc := NewProductService(repo, nil, time.Minute)

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.Empty(t, repo.products)

	err := svc.Delete(context.Background(), p.ID)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestProductService_ClearAndSeed(t *testing.T) {
	repo := newMockProductRepo()
	repo.add(samplePlant("Pothos", 3))
	repo.add(samplePlant("Calathea", 1))
	svc := NewProductService(repo, nil, time.Minute)

	n, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	seeded, err := svc.Seed(context.Background(), []model.Product{samplePlant("Monstera", 5)})
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	assert.Equal(t, "Monstera", seeded[0].Name)
	count, _ := svc.Count(context.Background())
	assert.Equal(t, 1, count)
}

func TestProductService_StockAdjustments(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.add(samplePlant("Pothos", 2))
	svc := NewProductService(repo, nil, time.Minute)
	ctx := context.Background()

	resp, err := svc.DecreaseStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StockQuantity)
	assert.False(t, resp.InStock)

	_, err = svc.DecreaseStock(ctx, p.ID, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	resp, err = svc.IncreaseStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.StockQuantity)
	assert.True(t, resp.InStock)

	_, err = svc.IncreaseStock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.AdjustStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestProductService_Search_RequiresTerm(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil, time.Minute)
	_, err := svc.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestProductService_List_PaginationEcho(t *testing.T) {
	repo := newMockProductRepo()
	repo.add(samplePlant("Pothos", 2))
	svc := NewProductService(repo, nil, time.Minute)

	resp, err := svc.List(context.Background(), dto.ListProductsQuery{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 10, repo.lastFilter.Offset)
	assert.Equal(t, 1, resp.Count)
}

func TestProductFilter(t *testing.T) {
	yes := true

	t.Run("all means no filter", func(t *testing.T) {
		f, err := productFilter(dto.ListProductsQuery{Category: "all", Size: "ALL", CareLevel: "all", PetFriendly: "all"})
		require.NoError(t, err)
		assert.Equal(t, repository.ProductFilter{}, f)
	})

	t.Run("difficulty wins over careLevel", func(t *testing.T) {
		f, err := productFilter(dto.ListProductsQuery{Difficulty: "easy", CareLevel: "Expert"})
		require.NoError(t, err)
		assert.Equal(t, "Easy", f.CareLevel)
	})

	t.Run("booleans", func(t *testing.T) {
		f, err := productFilter(dto.ListProductsQuery{PetFriendly: "true", InStock: "all"})
		require.NoError(t, err)
		assert.Equal(t, &yes, f.PetFriendly)
		assert.True(t, f.AnyStock)
		assert.Nil(t, f.InStock)

		_, err = productFilter(dto.ListProductsQuery{PetFriendly: "maybe"})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("price range", func(t *testing.T) {
		f, err := productFilter(dto.ListProductsQuery{MinPrice: "10", MaxPrice: "40.5"})
		require.NoError(t, err)
		assert.Equal(t, "10", f.MinPrice.String())
		assert.Equal(t, "40.5", f.MaxPrice.String())

		_, err = productFilter(dto.ListProductsQuery{MinPrice: "50", MaxPrice: "40"})
		assert.ErrorIs(t, err, model.ErrValidation)

		_, err = productFilter(dto.ListProductsQuery{MinPrice: "-1"})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("no paging unless asked", func(t *testing.T) {
		f, err := productFilter(dto.ListProductsQuery{})
		require.NoError(t, err)
		assert.Zero(t, f.Limit)

		f, err = productFilter(dto.ListProductsQuery{Page: 2})
		require.NoError(t, err)
		assert.Equal(t, defaultPageSize, f.Limit)
		assert.Equal(t, defaultPageSize, f.Offset)
	})
}
