package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderMessage is published after an order is placed.
type OrderMessage struct {
	OrderID   uuid.UUID  `json:"order_id"`
	Email     string     `json:"email"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
}

// CartKey returns the cart the order was checked out from, if any.
func (m OrderMessage) CartKey() (CartKey, bool) {
	if m.UserID != nil && *m.UserID != uuid.Nil {
		return UserKey(*m.UserID), true
	}
	if m.SessionID != "" {
		return SessionKey(m.SessionID), true
	}
	return CartKey{}, false
}
