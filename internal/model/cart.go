package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

const MaxSessionIDLength = 128

// CartKey identifies a cart: by user when authenticated, otherwise by guest session.
type CartKey struct {
	SessionID string
	UserID    uuid.UUID
}

func SessionKey(sessionID string) CartKey { return CartKey{SessionID: strings.TrimSpace(sessionID)} }

func UserKey(userID uuid.UUID) CartKey { return CartKey{UserID: userID} }

func (k CartKey) IsUser() bool { return k.UserID != uuid.Nil }

func (k CartKey) Validate() error {
	if k.IsUser() {
		return nil
	}
	if k.SessionID == "" {
		return Invalid("session ID is required")
	}
	if len(k.SessionID) > MaxSessionIDLength {
		return Invalid("session ID must be at most %d characters", MaxSessionIDLength)
	}
	return nil
}

func (k CartKey) String() string {
	if k.IsUser() {
		return "user:" + k.UserID.String()
	}
	return "session:" + k.SessionID
}

type Cart struct {
	ID          uuid.UUID
	SessionID   string
	UserID      *uuid.UUID
	Items       []CartItem
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartItem is a snapshot of the product at the time it was added.
type CartItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCart returns an empty cart bound to key.
func NewCart(key CartKey) *Cart {
	c := &Cart{ID: uuid.New(), Items: []CartItem{}}
	if key.IsUser() {
		uid := key.UserID
		c.UserID = &uid
	} else {
		c.SessionID = key.SessionID
	}
	c.recalculate()
	return c
}

// AddItem upserts by (productId, size): an existing line has its quantity
// increased, otherwise the item is appended. Quantities below 1 count as 1.
func (c *Cart) AddItem(item CartItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if i := c.indexOf(item.ProductID, item.Size); i >= 0 {
		c.Items[i].Quantity += item.Quantity
	} else {
		c.Items = append(c.Items, item)
	}
	c.recalculate()
}

// SetQuantity sets a line's quantity exactly; zero or less removes the line.
func (c *Cart) SetQuantity(productID uuid.UUID, size string, quantity int) error {
	i := c.indexOf(productID, size)
	if i < 0 {
		return ErrCartItemNotFound
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.recalculate()
	return nil
}

func (c *Cart) RemoveItem(productID uuid.UUID, size string) error {
	return c.SetQuantity(productID, size, 0)
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.recalculate()
}

// Merge folds other's lines into c using the AddItem upsert rule.
func (c *Cart) Merge(other *Cart) {
	for _, item := range other.Items {
		c.AddItem(item)
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ItemCount is the total number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Recalculate recomputes derived fields. Mutating methods call it already;
// repositories call it after loading so a stale stored total never leaks.
func (c *Cart) Recalculate() { c.recalculate() }

func (c *Cart) recalculate() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalAmount = total
}

// indexOf finds the line for (productID, size); sizes compare without case,
// the same way Product.MatchSize resolves them.
func (c *Cart) indexOf(productID uuid.UUID, size string) int {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(size))
	for i, item := range c.Items {
		if item.ProductID == productID && fold.String(item.Size) == want {
			return i
		}
	}
	return -1
}
