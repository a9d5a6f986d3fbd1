package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/plant-shop-api/internal/model"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
}

// LoginRequest may carry the guest session so its cart is merged into the user's.
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	SessionID string `json:"sessionId" binding:"max=128"`
}

type AuthResponse struct {
	Success bool          `json:"success"`
	Token   string        `json:"token"`
	User    UserResponse  `json:"user"`
	Cart    *CartResponse `json:"cart,omitempty"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
}

// --- Product ---

type CreateProductRequest struct {
	Name             string          `json:"name" binding:"required"`
	Description      string          `json:"description" binding:"required"`
	Price            decimal.Decimal `json:"price"`
	Size             string          `json:"size" binding:"required"`
	Image            string          `json:"image" binding:"required"`
	Images           []string        `json:"images"`
	Category         string          `json:"category" binding:"required"`
	Tags             []string        `json:"tags"`
	StockQuantity    int             `json:"stockQuantity" binding:"min=0"`
	Rating           float64         `json:"rating" binding:"min=0,max=5"`
	Reviews          int             `json:"reviews" binding:"min=0"`
	CareLevel        string          `json:"careLevel"`
	LightRequirement string          `json:"lightRequirement"`
	PetFriendly      bool            `json:"petFriendly"`
}

// UpdateProductRequest is a partial update: nil fields are left unchanged.
type UpdateProductRequest struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	Price            *decimal.Decimal `json:"price"`
	Size             *string          `json:"size"`
	Image            *string          `json:"image"`
	Images           []string         `json:"images"`
	Category         *string          `json:"category"`
	Tags             []string         `json:"tags"`
	StockQuantity    *int             `json:"stockQuantity" binding:"omitempty,min=0"`
	Rating           *float64         `json:"rating" binding:"omitempty,min=0,max=5"`
	Reviews          *int             `json:"reviews" binding:"omitempty,min=0"`
	CareLevel        *string          `json:"careLevel"`
	LightRequirement *string          `json:"lightRequirement"`
	PetFriendly      *bool            `json:"petFriendly"`
}

// ListProductsQuery mirrors the storefront filter bar. Any filter set to
// "all" or left empty is ignored.
type ListProductsQuery struct {
	Category    string `form:"category"`
	Size        string `form:"size"`
	Difficulty  string `form:"difficulty"`
	CareLevel   string `form:"careLevel"`
	PetFriendly string `form:"petFriendly"`
	MinPrice    string `form:"minPrice"`
	MaxPrice    string `form:"maxPrice"`
	InStock     string `form:"inStock"`
	Search      string `form:"search"`
	Sort        string `form:"sort"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type ProductResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Size             string          `json:"size"`
	Image            string          `json:"image"`
	Images           []string        `json:"images"`
	Category         string          `json:"category"`
	Tags             []string        `json:"tags"`
	InStock          bool            `json:"inStock"`
	StockQuantity    int             `json:"stockQuantity"`
	Rating           float64         `json:"rating"`
	Reviews          int             `json:"reviews"`
	CareLevel        string          `json:"careLevel,omitempty"`
	LightRequirement string          `json:"lightRequirement,omitempty"`
	PetFriendly      bool            `json:"petFriendly"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type ProductEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Product *ProductResponse `json:"product"`
}

type ProductListResponse struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Page     int               `json:"page,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Products []ProductResponse `json:"products"`
}

type ClearProductsResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type SeedResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Count    int               `json:"count"`
	Products []ProductResponse `json:"products,omitempty"`
}

// --- Cart ---

type CartQuery struct {
	SessionID string `form:"sessionId"`
	ProductID string `form:"productId"`
	Size      string `form:"size"`
}

type CartItemInput struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Size      string    `json:"size" binding:"required"`
	Quantity  int       `json:"quantity"`
}

type AddCartItemRequest struct {
	SessionID string         `json:"sessionId"`
	Item      *CartItemInput `json:"item" binding:"required"`
}

type UpdateCartItemRequest struct {
	SessionID string    `json:"sessionId"`
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Size      string    `json:"size" binding:"required"`
	Quantity  *int      `json:"quantity" binding:"required"`
}

type MergeCartRequest struct {
	SessionID string `json:"sessionId" binding:"required,max=128"`
}

type CartResponse struct {
	ID          uuid.UUID        `json:"id"`
	SessionID   string           `json:"sessionId,omitempty"`
	UserID      *uuid.UUID       `json:"userId,omitempty"`
	Items       []model.CartItem `json:"items"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	ItemCount   int              `json:"itemCount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type CartEnvelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Cart    *CartResponse `json:"cart"`
}

type CartCountResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// --- Order ---

type CreateOrderRequest struct {
	Email           string                 `json:"email"`
	Items           []model.OrderItem      `json:"items"`
	TotalPrice      *decimal.Decimal       `json:"totalPrice"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress"`
	PaymentStatus   model.PaymentStatus    `json:"paymentStatus"`
	// SessionID names the guest cart to clear once the order is placed.
	SessionID string `json:"sessionId"`
}

type ListOrdersQuery struct {
	Email         string `form:"email"`
	UserID        string `form:"userId"`
	Status        string `form:"status"`
	PaymentStatus string `form:"paymentStatus"`
	Fulfill       bool   `form:"fulfill"`
	From          string `form:"from"`
	To            string `form:"to"`
	Page          int    `form:"page,default=1" binding:"min=1"`
	Limit         int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// Filtered reports whether q selects orders by a field rather than paging
// through all of them.
func (q ListOrdersQuery) Filtered() bool {
	return q.Email != "" || q.UserID != "" || q.Status != "" || q.PaymentStatus != "" ||
		q.Fulfill || q.From != "" || q.To != ""
}

type UpdateOrderRequest struct {
	OrderID        uuid.UUID           `json:"orderId" binding:"required"`
	Status         model.OrderStatus   `json:"status"`
	PaymentStatus  model.PaymentStatus `json:"paymentStatus"`
	TrackingNumber string              `json:"trackingNumber"`
	DeliveryDate   *time.Time          `json:"deliveryDate"`
}

type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          *uuid.UUID            `json:"userId,omitempty"`
	Email           string                `json:"email"`
	Items           []model.OrderItem     `json:"items"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	Status          model.OrderStatus     `json:"status"`
	PaymentStatus   model.PaymentStatus   `json:"paymentStatus"`
	TrackingNumber  string                `json:"trackingNumber,omitempty"`
	DeliveryDate    *time.Time            `json:"deliveryDate,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

type OrderEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Order   *OrderResponse `json:"order"`
}

type OrderListResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Orders  []OrderResponse `json:"orders"`
}

type OrderPageResponse struct {
	Success    bool            `json:"success"`
	Data       []OrderResponse `json:"data"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

type StatsQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
	Top  int    `form:"top,default=10" binding:"min=1,max=100"`
}

type StatusCountResponse struct {
	Status  model.OrderStatus `json:"status"`
	Count   int               `json:"count"`
	Revenue decimal.Decimal   `json:"totalRevenue"`
}

type TopCustomerResponse struct {
	Email       string          `json:"email"`
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

type BestSellerResponse struct {
	ProductID     uuid.UUID       `json:"productId"`
	ProductName   string          `json:"productName"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type OrderStatsResponse struct {
	Success      bool                  `json:"success"`
	Revenue      decimal.Decimal       `json:"revenue"`
	ByStatus     []StatusCountResponse `json:"byStatus"`
	TopCustomers []TopCustomerResponse `json:"topCustomers"`
	BestSellers  []BestSellerResponse  `json:"bestSellers"`
}

// --- Ops ---

type StoreStatsResponse struct {
	Success   bool `json:"success"`
	Connected bool `json:"connected"`
	Products  int  `json:"products"`
	Carts     int  `json:"carts"`
	Orders    int  `json:"orders"`
}
