package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(status OrderStatus) *Order {
	o := NewOrder("buyer@example.com", nil, []OrderItem{
		{ProductID: uuid.New(), Name: "Snake Plant", Price: decimal.NewFromInt(34), Size: "XS", Quantity: 1},
	}, decimal.NewFromInt(34), ShippingAddress{FullName: "A B", Address: "1 Road", City: "Town", Phone: "555"})
	o.Status = status
	return o
}

func TestNewOrder_InitialState(t *testing.T) {
	o := testOrder(OrderStatusPending)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.NotEqual(t, uuid.Nil, o.ID)
}

func TestOrder_Cancel(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusShipped, OrderStatusDelivered} {
		o := testOrder(s)
		assert.ErrorIs(t, o.Cancel(), ErrOrderNotCancellable)
		assert.ErrorIs(t, o.Cancel(), ErrConflict)
		assert.Equal(t, s, o.Status)
	}

	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusCancelled} {
		o := testOrder(s)
		require.NoError(t, o.Cancel())
		assert.Equal(t, OrderStatusCancelled, o.Status)
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusDelivered, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := testOrder(tt.from)
			err := o.TransitionTo(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, o.Status)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, o.Status)
		})
	}

	o := testOrder(OrderStatusPending)
	assert.ErrorIs(t, o.TransitionTo("lost"), ErrValidation)
}

func TestOrder_AddTracking(t *testing.T) {
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	o := testOrder(OrderStatusPending)
	require.NoError(t, o.AddTracking("TRK1", &date))
	assert.Equal(t, OrderStatusShipped, o.Status)
	assert.Equal(t, "TRK1", o.TrackingNumber)
	assert.Equal(t, date, *o.DeliveryDate)

	require.NoError(t, o.AddTracking("TRK2", nil))
	assert.Equal(t, "TRK2", o.TrackingNumber)

	for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		o := testOrder(s)
		assert.ErrorIs(t, o.AddTracking("TRK", nil), ErrConflict)
		assert.Empty(t, o.TrackingNumber)
	}

	assert.ErrorIs(t, testOrder(OrderStatusPending).AddTracking("", nil), ErrValidation)
}

func TestOrder_MarkDelivered(t *testing.T) {
	now := time.Now()
	o := testOrder(OrderStatusShipped)
	require.NoError(t, o.MarkDelivered(now))
	assert.Equal(t, OrderStatusDelivered, o.Status)
	assert.Equal(t, now, *o.DeliveryDate)

	assert.ErrorIs(t, testOrder(OrderStatusPending).MarkDelivered(now), ErrInvalidTransition)
}

func TestOrder_SetPaymentStatus(t *testing.T) {
	o := testOrder(OrderStatusDelivered)
	require.NoError(t, o.SetPaymentStatus(PaymentStatusPaid))
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.ErrorIs(t, o.SetPaymentStatus("refunded"), ErrValidation)
}

func TestOrder_Validate(t *testing.T) {
	assert.NoError(t, testOrder(OrderStatusPending).Validate())

	o := &Order{}
	err := o.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "missing required fields: email, items, shippingAddress", err.Error())

	o = testOrder(OrderStatusPending)
	o.Items[0].Quantity = 0
	assert.ErrorIs(t, o.Validate(), ErrValidation)

	o = testOrder(OrderStatusPending)
	o.TotalPrice = decimal.NewFromInt(-1)
	assert.ErrorIs(t, o.Validate(), ErrValidation)

	o = testOrder(OrderStatusPending)
	o.ShippingAddress.Phone = ""
	assert.ErrorIs(t, o.Validate(), ErrValidation)
}

func TestOrder_ProductIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := &Order{Items: []OrderItem{{ProductID: a}, {ProductID: b}, {ProductID: a}}}
	assert.Equal(t, []uuid.UUID{a, b}, o.ProductIDs())
}
