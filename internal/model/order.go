package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal statuses have no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0 && s.Valid()
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Phone    string `json:"phone"`
}

type Order struct {
	ID              uuid.UUID
	UserID          *uuid.UUID
	Email           string
	Items           []OrderItem
	TotalPrice      decimal.Decimal
	ShippingAddress ShippingAddress
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	TrackingNumber  string
	DeliveryDate    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a snapshot of the purchased line, independent of later catalog changes.
type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// NewOrder returns an order in its initial state.
func NewOrder(email string, userID *uuid.UUID, items []OrderItem, total decimal.Decimal, addr ShippingAddress) *Order {
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Email:           email,
		Items:           items,
		TotalPrice:      total,
		ShippingAddress: addr,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
	}
}

// TransitionTo moves the order along the lifecycle. Setting the current
// status again is a no-op.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !next.Valid() {
		return Invalid("invalid order status %q", next)
	}
	if next == o.Status {
		return nil
	}
	if next == OrderStatusCancelled {
		return o.Cancel()
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

// Cancel is allowed from pending and processing. Shipped or delivered orders
// cannot be cancelled and are left untouched.
func (o *Order) Cancel() error {
	switch o.Status {
	case OrderStatusCancelled:
		return nil
	case OrderStatusShipped, OrderStatusDelivered:
		return ErrOrderNotCancellable
	}
	o.Status = OrderStatusCancelled
	return nil
}

// AddTracking records the carrier tracking number and marks the order shipped.
func (o *Order) AddTracking(trackingNumber string, deliveryDate *time.Time) error {
	if trackingNumber == "" {
		return Invalid("tracking number is required")
	}
	if o.Status != OrderStatusShipped {
		if err := o.TransitionTo(OrderStatusShipped); err != nil {
			return err
		}
	}
	o.TrackingNumber = trackingNumber
	if deliveryDate != nil {
		o.DeliveryDate = deliveryDate
	}
	return nil
}

func (o *Order) MarkDelivered(now time.Time) error {
	if o.Status == OrderStatusDelivered {
		return nil
	}
	if err := o.TransitionTo(OrderStatusDelivered); err != nil {
		return err
	}
	o.DeliveryDate = &now
	return nil
}

func (o *Order) SetPaymentStatus(s PaymentStatus) error {
	if !s.Valid() {
		return Invalid("invalid payment status %q", s)
	}
	o.PaymentStatus = s
	return nil
}

// Validate checks a checkout submission before anything is persisted.
func (o *Order) Validate() error {
	var missing []string
	if strings.TrimSpace(o.Email) == "" {
		missing = append(missing, "email")
	}
	if len(o.Items) == 0 {
		missing = append(missing, "items")
	}
	if o.ShippingAddress == (ShippingAddress{}) {
		missing = append(missing, "shippingAddress")
	}
	if len(missing) > 0 {
		return Invalid("missing required fields: %s", strings.Join(missing, ", "))
	}
	if o.TotalPrice.IsNegative() {
		return Invalid("totalPrice cannot be negative")
	}
	a := o.ShippingAddress
	if a.FullName == "" || a.Address == "" || a.City == "" || a.Phone == "" {
		return Invalid("shippingAddress requires fullName, address, city and phone")
	}
	for i, item := range o.Items {
		switch {
		case item.ProductID == uuid.Nil:
			return Invalid("items[%d]: productId is required", i)
		case item.Quantity < 1:
			return Invalid("items[%d]: quantity must be at least 1", i)
		case item.Price.IsNegative():
			return Invalid("items[%d]: price cannot be negative", i)
		}
	}
	return nil
}

// ProductIDs returns the distinct products referenced by the order, in item order.
func (o *Order) ProductIDs() []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
