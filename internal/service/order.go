package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

// OrderPublisher hands a placed order to background processing.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, msg model.OrderMessage) error
}

type productCache interface {
	InvalidateProducts(ctx context.Context, ids ...uuid.UUID)
}

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	cache     productCache
	publisher OrderPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrderService wires checkout. cache and publisher may be nil; without a
// publisher the checkout cart is cleared inline.
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, cache productCache, publisher OrderPublisher, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// PlaceOrder records the order and takes its items out of stock. Either
// every line is fulfilled or nothing is written.
func (s *OrderService) PlaceOrder(ctx context.Context, req dto.CreateOrderRequest, userID *uuid.UUID) (*dto.OrderResponse, error) {
	var missing []string
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	if req.TotalPrice == nil {
		missing = append(missing, "totalPrice")
	}
	if req.ShippingAddress == nil || *req.ShippingAddress == (model.ShippingAddress{}) {
		missing = append(missing, "shippingAddress")
	}
	if len(missing) > 0 {
		return nil, model.Invalid("missing required fields: %s", strings.Join(missing, ", "))
	}

	order := model.NewOrder(strings.TrimSpace(req.Email), userID, req.Items, *req.TotalPrice, *req.ShippingAddress)
	if req.PaymentStatus != "" {
		if err := order.SetPaymentStatus(req.PaymentStatus); err != nil {
			return nil, err
		}
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Place(ctx, order); err != nil {
		return nil, wrapStore("place order", err)
	}
	s.invalidate(ctx, order)

	msg := model.OrderMessage{OrderID: order.ID, Email: order.Email, UserID: userID, SessionID: strings.TrimSpace(req.SessionID)}
	s.afterPlace(ctx, msg)

	resp := toOrderResponse(order)
	return &resp, nil
}

// afterPlace publishes the order event. When there is no broker, or
// publishing fails, the checkout cart is cleared here instead.
func (s *OrderService) afterPlace(ctx context.Context, msg model.OrderMessage) {
	log := s.logger.With("order_id", msg.OrderID)
	if s.publisher != nil {
		err := s.publisher.PublishOrder(ctx, msg)
		if err == nil {
			return
		}
		log.Warn("publish order failed, clearing cart inline", "error", err)
	}

	key, ok := msg.CartKey()
	if !ok {
		return
	}
	_, err := s.cartRepo.Mutate(ctx, key, func(c *model.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrCartNotFound) {
		log.Error("clear cart after order", "cart", key.String(), "error", err)
	}
}

func (s *OrderService) invalidate(ctx context.Context, order *model.Order) {
	if s.cache != nil {
		s.cache.InvalidateProducts(ctx, order.ProductIDs()...)
	}
}

func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore("get order", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

// List runs the first filter present in q, in the order email, userId,
// status, paymentStatus, fulfill, date range.
func (s *OrderService) List(ctx context.Context, q dto.ListOrdersQuery) (*dto.OrderListResponse, error) {
	var (
		orders []model.Order
		err    error
	)
	switch {
	case strings.TrimSpace(q.Email) != "":
		orders, err = s.orderRepo.ListByEmail(ctx, strings.TrimSpace(q.Email))
	case q.UserID != "":
		id, perr := uuid.Parse(q.UserID)
		if perr != nil {
			return nil, model.Invalid("invalid userId")
		}
		orders, err = s.orderRepo.ListByUserID(ctx, id)
	case q.Status != "":
		status := model.OrderStatus(strings.ToLower(q.Status))
		if !status.Valid() {
			return nil, model.Invalid("invalid order status %q", q.Status)
		}
		orders, err = s.orderRepo.ListByStatus(ctx, status)
	case q.PaymentStatus != "":
		status := model.PaymentStatus(strings.ToLower(q.PaymentStatus))
		if !status.Valid() {
			return nil, model.Invalid("invalid payment status %q", q.PaymentStatus)
		}
		orders, err = s.orderRepo.ListByPaymentStatus(ctx, status)
	case q.Fulfill:
		orders, err = s.orderRepo.ListToFulfill(ctx)
	case q.From != "" || q.To != "":
		from, to, perr := dateRange(q.From, q.To)
		if perr != nil {
			return nil, perr
		}
		if from == nil {
			from = &time.Time{}
		}
		if to == nil {
			now := s.now()
			to = &now
		}
		orders, err = s.orderRepo.ListByDateRange(ctx, *from, *to)
	default:
		return nil, model.Invalid("no order filter provided")
	}
	if err != nil {
		return nil, wrapStore("list orders", err)
	}

	resp := &dto.OrderListResponse{Success: true, Count: len(orders), Orders: make([]dto.OrderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	return resp, nil
}

// ListRecent pages through every order, newest first.
func (s *OrderService) ListRecent(ctx context.Context, page, limit int) (*dto.OrderPageResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	orders, total, err := s.orderRepo.ListRecent(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, wrapStore("list recent orders", err)
	}
	resp := &dto.OrderPageResponse{
		Success:    true,
		Data:       make([]dto.OrderResponse, 0, len(orders)),
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}
	for i := range orders {
		resp.Data = append(resp.Data, toOrderResponse(&orders[i]))
	}
	return resp, nil
}

func (s *OrderService) AddTrackingInfo(ctx context.Context, id uuid.UUID, trackingNumber string, deliveryDate *time.Time) (*dto.OrderResponse, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	return s.update(ctx, id, "add tracking", func(o *model.Order) error {
		return o.AddTracking(trackingNumber, deliveryDate)
	})
}

func (s *OrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	now := s.now()
	return s.update(ctx, id, "mark delivered", func(o *model.Order) error {
		return o.MarkDelivered(now)
	})
}

// Cancel returns the order's items to stock. Cancelling twice is a no-op.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.Cancel(ctx, id)
	if err != nil {
		return nil, wrapStore("cancel order", err)
	}
	s.invalidate(ctx, order)
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*dto.OrderResponse, error) {
	status = model.OrderStatus(strings.ToLower(string(status)))
	if !status.Valid() {
		return nil, model.Invalid("invalid order status %q", status)
	}
	if status == model.OrderStatusCancelled {
		return s.Cancel(ctx, id)
	}
	if status == model.OrderStatusDelivered {
		return s.MarkDelivered(ctx, id)
	}
	return s.update(ctx, id, "update order status", func(o *model.Order) error {
		return o.TransitionTo(status)
	})
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*dto.OrderResponse, error) {
	status = model.PaymentStatus(strings.ToLower(string(status)))
	if !status.Valid() {
		return nil, model.Invalid("invalid payment status %q", status)
	}
	return s.update(ctx, id, "update payment status", func(o *model.Order) error {
		return o.SetPaymentStatus(status)
	})
}

// Update applies the first change present in req: tracking, delivery,
// cancellation, status, then payment status.
func (s *OrderService) Update(ctx context.Context, req dto.UpdateOrderRequest) (*dto.OrderEnvelope, error) {
	var (
		order *dto.OrderResponse
		msg   string
		err   error
	)
	req.Status = model.OrderStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	switch {
	case strings.TrimSpace(req.TrackingNumber) != "":
		order, err = s.AddTrackingInfo(ctx, req.OrderID, req.TrackingNumber, req.DeliveryDate)
		msg = "Tracking information added"
	case req.Status == model.OrderStatusDelivered:
		order, err = s.MarkDelivered(ctx, req.OrderID)
		msg = "Order marked as delivered"
	case req.Status == model.OrderStatusCancelled:
		order, err = s.Cancel(ctx, req.OrderID)
		msg = "Order cancelled"
	case req.Status != "":
		order, err = s.UpdateStatus(ctx, req.OrderID, req.Status)
		msg = "Order status updated"
	case req.PaymentStatus != "":
		order, err = s.UpdatePaymentStatus(ctx, req.OrderID, req.PaymentStatus)
		msg = "Payment status updated"
	default:
		return nil, model.Invalid("no update fields provided")
	}
	if err != nil {
		return nil, err
	}
	return &dto.OrderEnvelope{Success: true, Message: msg, Order: order}, nil
}

func (s *OrderService) update(ctx context.Context, id uuid.UUID, op string, fn func(*model.Order) error) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.Update(ctx, id, fn)
	if err != nil {
		return nil, wrapStore(op, err)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) Stats(ctx context.Context, q dto.StatsQuery) (*dto.OrderStatsResponse, error) {
	from, to, err := dateRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	top := q.Top
	if top < 1 {
		top = 10
	}
	stats, err := s.orderRepo.Stats(ctx, from, to, top)
	if err != nil {
		return nil, wrapStore("order stats", err)
	}

	resp := &dto.OrderStatsResponse{
		Success:      true,
		Revenue:      stats.Revenue,
		ByStatus:     make([]dto.StatusCountResponse, 0, len(stats.ByStatus)),
		TopCustomers: make([]dto.TopCustomerResponse, 0, len(stats.TopCustomers)),
		BestSellers:  make([]dto.BestSellerResponse, 0, len(stats.BestSellers)),
	}
	for _, sc := range stats.ByStatus {
		resp.ByStatus = append(resp.ByStatus, dto.StatusCountResponse{Status: sc.Status, Count: sc.Count, Revenue: sc.Revenue})
	}
	for _, c := range stats.TopCustomers {
		resp.TopCustomers = append(resp.TopCustomers, dto.TopCustomerResponse{Email: c.Email, TotalOrders: c.Orders, TotalSpent: c.Spent})
	}
	for _, p := range stats.BestSellers {
		resp.BestSellers = append(resp.BestSellers, dto.BestSellerResponse{
			ProductID:     p.ProductID,
			ProductName:   p.Name,
			TotalQuantity: p.Quantity,
			TotalRevenue:  p.Revenue,
		})
	}
	return resp, nil
}

// dateRange parses optional RFC 3339 timestamps or plain dates. A plain
// "to" date covers the whole day.
func dateRange(fromRaw, toRaw string) (from, to *time.Time, err error) {
	if from, err = parseDate(fromRaw, "from", false); err != nil {
		return nil, nil, err
	}
	if to, err = parseDate(toRaw, "to", true); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, model.Invalid("from must not be after to")
	}
	return from, to, nil
}

func parseDate(raw, name string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, model.Invalid("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	items := o.Items
	if items == nil {
		items = []model.OrderItem{}
	}
	return dto.OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Email:           o.Email,
		Items:           items,
		TotalPrice:      o.TotalPrice,
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		TrackingNumber:  o.TrackingNumber,
		DeliveryDate:    o.DeliveryDate,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
