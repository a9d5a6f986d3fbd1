package service

import (
	"context"
	"errors"
	"slices"
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

type mockOrderRepo struct {
	orders    map[uuid.UUID]*model.Order
	placeErr  error
	restocked []uuid.UUID
	statsArgs struct {
		from, to *time.Time
		top      int
	}
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func (m *mockOrderRepo) Place(_ context.Context, order *model.Order) error {
	if m.placeErr != nil {
		return m.placeErr
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (m *mockOrderRepo) filter(keep func(*model.Order) bool) []model.Order {
	out := []model.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out
}

func (m *mockOrderRepo) ListByEmail(_ context.Context, email string) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.Email == email }), nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.UserID != nil && *o.UserID == userID }), nil
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.Status == status }), nil
}

func (m *mockOrderRepo) ListByPaymentStatus(_ context.Context, status model.PaymentStatus) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.PaymentStatus == status }), nil
}

func (m *mockOrderRepo) ListToFulfill(_ context.Context) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool {
		return (o.Status == model.OrderStatusPending || o.Status == model.OrderStatusProcessing) &&
			o.PaymentStatus == model.PaymentStatusPaid
	}), nil
}

func (m *mockOrderRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool {
		return !o.CreatedAt.Before(from) && !o.CreatedAt.After(to)
	}), nil
}

func (m *mockOrderRepo) ListRecent(_ context.Context, limit, offset int) ([]model.Order, int, error) {
	all := m.filter(func(*model.Order) bool { return true })
	if offset >= len(all) {
		return []model.Order{}, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

func (m *mockOrderRepo) Update(_ context.Context, id uuid.UUID, fn func(*model.Order) error) (*model.Order, error) {
	stored, ok := m.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	o := cloneOrder(stored)
	if err := fn(o); err != nil {
		return nil, err
	}
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return cloneOrder(o), nil
}

func (m *mockOrderRepo) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return m.Update(ctx, id, func(o *model.Order) error {
		if o.Status == model.OrderStatusCancelled {
			return nil
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		m.restocked = append(m.restocked, o.ProductIDs()...)
		return nil
	})
}

func (m *mockOrderRepo) Stats(_ context.Context, from, to *time.Time, top int) (*repository.OrderStats, error) {
	m.statsArgs.from, m.statsArgs.to, m.statsArgs.top = from, to, top
	return &repository.OrderStats{
		Revenue:      decimal.RequireFromString("74.97"),
		ByStatus:     []repository.StatusCount{{Status: model.OrderStatusPending, Count: 1, Revenue: decimal.RequireFromString("74.97")}},
		TopCustomers: []repository.CustomerTotal{{Email: "ada@example.com", Orders: 1, Spent: decimal.RequireFromString("74.97")}},
		BestSellers:  []repository.ProductSales{{ProductID: uuid.New(), Name: "Snake Plant", Quantity: 3, Revenue: decimal.RequireFromString("74.97")}},
	}, nil
}

func (m *mockOrderRepo) Count(_ context.Context) (int, error) {
	return len(m.orders), nil
}

type fakePublisher struct {
	sent []model.OrderMessage
	err  error
}

func (p *fakePublisher) PublishOrder(_ context.Context, msg model.OrderMessage) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

type fakeProductCache struct {
	invalidated []uuid.UUID
}

func (c *fakeProductCache) InvalidateProducts(_ context.Context, ids ...uuid.UUID) {
	c.invalidated = append(c.invalidated, ids...)
}

type orderFixture struct {
	svc       *OrderService
	orders    *mockOrderRepo
	carts     *mockCartRepo
	cache     *fakeProductCache
	publisher *fakePublisher
}

func newOrderFixture(publisher *fakePublisher) *orderFixture {
	f := &orderFixture{
		orders:    newMockOrderRepo(),
		carts:     newMockCartRepo(),
		cache:     &fakeProductCache{},
		publisher: publisher,
	}
	var pub OrderPublisher
	if publisher != nil {
		pub = publisher
	}
	f.svc = NewOrderService(f.orders, f.carts, f.cache, pub, nil)
	return f
}

func checkoutRequest() dto.CreateOrderRequest {
	total := decimal.RequireFromString("74.97")
	return dto.CreateOrderRequest{
		Email: "ada@example.com",
		Items: []model.OrderItem{{
			ProductID: uuid.New(),
			Name:      "Snake Plant",
			Price:     decimal.RequireFromString("24.99"),
			Size:      "MD",
			Quantity:  3,
		}},
		TotalPrice: &total,
		ShippingAddress: &model.ShippingAddress{
			FullName: "Ada Lovelace",
			Address:  "12 Fern Lane",
			City:     "Portland",
			State:    "OR",
			ZipCode:  "97201",
			Phone:    "555-0100",
		},
		SessionID: "sess-1",
	}
}

func (f *orderFixture) place(t *testing.T) *dto.OrderResponse {
	t.Helper()
	order, err := f.svc.PlaceOrder(context.Background(), checkoutRequest(), nil)
	require.NoError(t, err)
	return order
}

func TestOrderService_PlaceOrder_MissingFields(t *testing.T) {
	f := newOrderFixture(&fakePublisher{})
	_, err := f.svc.PlaceOrder(context.Background(), dto.CreateOrderRequest{}, nil)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.EqualError(t, err, "missing required fields: email, items, totalPrice, shippingAddress")
	assert.Empty(t, f.orders.orders)
}

func TestOrderService_PlaceOrder_Publishes(t *testing.T) {
	f := newOrderFixture(&fakePublisher{})
	order := f.place(t)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Contains(t, f.orders.orders, order.ID)
	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, order.ID, f.publisher.sent[0].OrderID)
	assert.Equal(t, "sess-1", f.publisher.sent[0].SessionID)
	assert.Equal(t, []uuid.UUID{order.Items[0].ProductID}, f.cache.invalidated)
}

func TestOrderService_PlaceOrder_ClearsCartWithoutBroker(t *testing.T) {
	for name, pub := range map[string]*fakePublisher{
		"no publisher":   nil,
		"publish failed": {err: errors.New("channel closed")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newOrderFixture(pub)
			key := model.SessionKey("sess-1")
			_, err := f.carts.MutateOrCreate(context.Background(), key, func(c *model.Cart) error {
				c.AddItem(model.CartItem{ProductID: uuid.New(), Size: "MD", Quantity: 1, Price: decimal.NewFromInt(5)})
				return nil
			})
			require.NoError(t, err)

			f.place(t)
			assert.Empty(t, f.carts.carts[key.String()].Items)
		})
	}
}

func TestOrderService_PlaceOrder_StockFailure(t *testing.T) {
	f := newOrderFixture(&fakePublisher{})
	f.orders.placeErr = model.ErrInsufficientStock

	_, err := f.svc.PlaceOrder(context.Background(), checkoutRequest(), nil)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Empty(t, f.publisher.sent)
	assert.Empty(t, f.cache.invalidated)
}

func TestOrderService_PlaceOrder_Validation(t *testing.T) {
	f := newOrderFixture(nil)

	req := checkoutRequest()
	req.PaymentStatus = "refunded"
	_, err := f.svc.PlaceOrder(context.Background(), req, nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	req = checkoutRequest()
	req.Items[0].Quantity = 0
	_, err = f.svc.PlaceOrder(context.Background(), req, nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	req = checkoutRequest()
	negative := decimal.NewFromInt(-1)
	req.TotalPrice = &negative
	_, err = f.svc.PlaceOrder(context.Background(), req, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOrderService_GetByID(t *testing.T) {
	f := newOrderFixture(nil)
	order := f.place(t)

	got, err := f.svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	_, err = f.svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_Update_Dispatch(t *testing.T) {
	f := newOrderFixture(nil)
	ctx := context.Background()
	order := f.place(t)

	_, err := f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, Status: "delivered"})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	env, err := f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, TrackingNumber: "1Z999", Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "Tracking information added", env.Message)
	assert.Equal(t, model.OrderStatusShipped, env.Order.Status)
	assert.Equal(t, "1Z999", env.Order.TrackingNumber)

	_, err = f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, Status: "cancelled"})
	assert.ErrorIs(t, err, model.ErrOrderNotCancellable)

	env, err = f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, Status: "Delivered"})
	require.NoError(t, err)
	assert.Equal(t, "Order marked as delivered", env.Message)
	assert.Equal(t, model.OrderStatusDelivered, env.Order.Status)
	assert.NotNil(t, env.Order.DeliveryDate)

	env, err = f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, PaymentStatus: "paid"})
	require.NoError(t, err)
	assert.Equal(t, "Payment status updated", env.Message)
	assert.Equal(t, model.PaymentStatusPaid, env.Order.PaymentStatus)
}

func TestOrderService_Cancel_Restocks(t *testing.T) {
	f := newOrderFixture(nil)
	ctx := context.Background()
	order := f.place(t)
	f.cache.invalidated = nil

	env, err := f.svc.Update(ctx, dto.UpdateOrderRequest{OrderID: order.ID, Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "Order cancelled", env.Message)
	assert.Equal(t, model.OrderStatusCancelled, env.Order.Status)
	assert.Equal(t, []uuid.UUID{order.Items[0].ProductID}, f.orders.restocked)
	assert.Equal(t, []uuid.UUID{order.Items[0].ProductID}, f.cache.invalidated)

	again, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, again.Status)
	assert.Len(t, f.orders.restocked, 1, "second cancel must not restock again")

	_, err = f.svc.UpdateStatus(ctx, order.ID, model.OrderStatusProcessing)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestOrderService_UpdateStatus_Invalid(t *testing.T) {
	f := newOrderFixture(nil)
	order := f.place(t)

	_, err := f.svc.UpdateStatus(context.Background(), order.ID, "lost")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.UpdatePaymentStatus(context.Background(), order.ID, "maybe")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.UpdateStatus(context.Background(), uuid.New(), model.OrderStatusProcessing)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_List(t *testing.T) {
	f := newOrderFixture(nil)
	ctx := context.Background()
	order := f.place(t)

	resp, err := f.svc.List(ctx, dto.ListOrdersQuery{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, order.ID, resp.Orders[0].ID)

	resp, err = f.svc.List(ctx, dto.ListOrdersQuery{Status: "SHIPPED"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Orders)

	_, err = f.svc.List(ctx, dto.ListOrdersQuery{Status: "lost"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.List(ctx, dto.ListOrdersQuery{UserID: "nope"})
	assert.ErrorIs(t, err, model.ErrValidation)

	today := time.Now().UTC().Format(time.DateOnly)
	resp, err = f.svc.List(ctx, dto.ListOrdersQuery{From: today, To: today})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	_, err = f.svc.List(ctx, dto.ListOrdersQuery{From: "yesterday"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOrderService_ListRecent_Pages(t *testing.T) {
	f := newOrderFixture(nil)
	for i := 0; i < 5; i++ {
		f.place(t)
	}

	resp, err := f.svc.ListRecent(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 3, resp.Page)
	assert.Len(t, resp.Data, 1)
}

func TestOrderService_Stats(t *testing.T) {
	f := newOrderFixture(nil)

	resp, err := f.svc.Stats(context.Background(), dto.StatsQuery{From: "2026-01-01", To: "2026-01-31"})
	require.NoError(t, err)
	assert.Equal(t, 10, f.orders.statsArgs.top)
	require.NotNil(t, f.orders.statsArgs.to)
	assert.Equal(t, 31, f.orders.statsArgs.to.Day())
	assert.Equal(t, 23, f.orders.statsArgs.to.Hour())
	assert.Equal(t, "74.97", resp.Revenue.String())
	require.Len(t, resp.BestSellers, 1)
	assert.Equal(t, "Snake Plant", resp.BestSellers[0].ProductName)
	assert.Equal(t, 3, resp.BestSellers[0].TotalQuantity)

	_, err = f.svc.Stats(context.Background(), dto.StatsQuery{From: "2026-02-01", To: "2026-01-01"})
	assert.ErrorIs(t, err, model.ErrValidation)
}
