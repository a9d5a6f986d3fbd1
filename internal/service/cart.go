package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the cart for key, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, key model.CartKey) (*dto.CartResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetOrCreate(ctx, key)
	if err != nil {
		return nil, wrapStore("get or create cart", err)
	}
	return toCartResponse(cart), nil
}

// AddItem snapshots the product into the cart. An existing line with the same
// product and size has its quantity increased.
func (s *CartService) AddItem(ctx context.Context, key model.CartKey, in dto.CartItemInput) (*dto.CartResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, wrapStore("get product", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	size, ok := product.MatchSize(in.Size)
	if !ok {
		return nil, model.Invalid("size %q is not available for %s (available: %s)",
			strings.TrimSpace(in.Size), product.Name, strings.Join(product.Sizes(), ", "))
	}
	if !product.InStock {
		return nil, model.ErrOutOfStock
	}

	item := model.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Size:      size,
		Quantity:  max(in.Quantity, 1),
	}

	cart, err := s.cartRepo.MutateOrCreate(ctx, key, func(c *model.Cart) error {
		if unitsInCart(c, product.ID)+item.Quantity > product.StockQuantity {
			return model.ErrInsufficientStock
		}
		c.AddItem(item)
		return nil
	})
	if err != nil {
		return nil, wrapStore("add cart item", err)
	}
	return toCartResponse(cart), nil
}

// UpdateItemQuantity sets a line's quantity exactly; zero or less removes it.
// Raising a quantity is held to the product's stock like AddItem.
func (s *CartService) UpdateItemQuantity(ctx context.Context, key model.CartKey, productID uuid.UUID, size string, quantity int) (*dto.CartResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	stock := -1
	if quantity > 0 {
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return nil, wrapStore("get product", err)
		}
		if product == nil {
			return nil, model.ErrProductNotFound
		}
		stock = product.StockQuantity
	}
	cart, err := s.cartRepo.Mutate(ctx, key, func(c *model.Cart) error {
		if err := c.SetQuantity(productID, size, quantity); err != nil {
			return err
		}
		if stock >= 0 && unitsInCart(c, productID) > stock {
			return model.ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		return nil, wrapStore("update cart item", err)
	}
	return toCartResponse(cart), nil
}

func (s *CartService) RemoveItem(ctx context.Context, key model.CartKey, productID uuid.UUID, size string) (*dto.CartResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.Mutate(ctx, key, func(c *model.Cart) error {
		return c.RemoveItem(productID, size)
	})
	if err != nil {
		return nil, wrapStore("remove cart item", err)
	}
	return toCartResponse(cart), nil
}

func (s *CartService) Clear(ctx context.Context, key model.CartKey) (*dto.CartResponse, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.Mutate(ctx, key, func(c *model.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, wrapStore("clear cart", err)
	}
	return toCartResponse(cart), nil
}

// MergeGuestIntoUser reconciles the guest cart into the user's cart. Calling
// it again after the guest cart is gone returns the user's cart unchanged.
func (s *CartService) MergeGuestIntoUser(ctx context.Context, sessionID string, userID uuid.UUID) (*dto.CartResponse, error) {
	guest := model.SessionKey(sessionID)
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, model.ErrUnauthorized
	}
	cart, err := s.cartRepo.Merge(ctx, guest.SessionID, userID)
	if err != nil {
		return nil, wrapStore("merge cart", err)
	}
	return toCartResponse(cart), nil
}

// ItemCount is the number of units in the cart; a missing cart counts as empty.
func (s *CartService) ItemCount(ctx context.Context, key model.CartKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	cart, err := s.cartRepo.Get(ctx, key)
	if err != nil {
		return 0, wrapStore("get cart", err)
	}
	if cart == nil {
		return 0, nil
	}
	return cart.ItemCount(), nil
}

// unitsInCart counts the units of productID across every size.
func unitsInCart(c *model.Cart, productID uuid.UUID) int {
	n := 0
	for _, line := range c.Items {
		if line.ProductID == productID {
			n += line.Quantity
		}
	}
	return n
}

func toCartResponse(c *model.Cart) *dto.CartResponse {
	items := c.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return &dto.CartResponse{
		ID:          c.ID,
		SessionID:   c.SessionID,
		UserID:      c.UserID,
		Items:       items,
		TotalAmount: c.TotalAmount,
		ItemCount:   c.ItemCount(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
