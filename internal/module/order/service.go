package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/shared/events"
	"github.com/soundcraft/server/internal/shared/mail"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/soundcraft/server/internal/shared/random"
	"go.uber.org/zap"
)

// Service provides order operations.
type Service struct {
	repo      Repository
	products  catalog.Repository
	users     user.Repository
	sm        *StateMachine
	publisher events.Publisher
	mailer    mail.Mailer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a new order service.
func NewService(
	repo Repository,
	products catalog.Repository,
	users user.Repository,
	publisher events.Publisher,
	mailer mail.Mailer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		users:     users,
		sm:        NewStateMachine(),
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		logger:    logger,
	}
}

// CreatePending builds a pending order from the requested items.
// Prices come from the catalog, never from the client, and each item's
// quantity must be covered by current stock.
func (s *Service) CreatePending(ctx context.Context, userID uuid.UUID, method PaymentMethod, items []ItemRequest) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	orderItems := make([]OrderItem, 0, len(items))
	for _, req := range items {
		p, err := s.products.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.InStock(req.Quantity) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrInsufficientStock, p.Name)
		}
		orderItems = append(orderItems, OrderItem{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       req.Quantity,
			UnitPricePaisa: p.PricePaisa,
			AmountPaisa:    int64(req.Quantity) * p.PricePaisa,
		})
	}

	order := &Order{
		OrderNumber:        "SC-" + random.UpperAlphaNum(10),
		UserID:             userID,
		PaymentMethod:      method,
		AmountPaisa:        Total(orderItems),
		Status:             OrderStatusPending,
		PaymentReferenceID: uuid.New().String(),
		Items:              orderItems,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.OrdersTotal.WithLabelValues(string(OrderStatusPending)).Inc()
	s.publishCreated(order)
	return order, nil
}

// GetByReferenceID loads the order correlated with a gateway callback.
func (s *Service) GetByReferenceID(ctx context.Context, referenceID string) (*Order, error) {
	return s.repo.GetByReferenceID(ctx, referenceID)
}

// Complete settles a pending order as paid. Stock decrements happen in
// the same transaction as the status flip, so a duplicate callback makes
// no further changes. The confirmation email and the OrderCompleted
// event go out after commit, best-effort.
func (s *Service) Complete(ctx context.Context, referenceID, transactionCode string) (*Order, error) {
	existing, err := s.repo.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.Complete(ctx, existing.ID, transactionCode)
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return existing, err
		}
		return nil, err
	}

	s.metrics.OrdersTotal.WithLabelValues(string(OrderStatusCompleted)).Inc()
	s.publishCompleted(completed)
	s.sendConfirmation(ctx, completed)
	return completed, nil
}

// Fail settles a pending order as failed. Stock is untouched.
func (s *Service) Fail(ctx context.Context, referenceID, reason string) (*Order, error) {
	existing, err := s.repo.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	failed, err := s.repo.Fail(ctx, existing.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return existing, err
		}
		return nil, err
	}

	s.metrics.OrdersTotal.WithLabelValues(string(OrderStatusFailed)).Inc()
	if env, err := events.NewEnvelope(events.EventOrderFailed, failed.ID.String(), events.OrderFailedPayload{
		OrderID: failed.ID.String(),
		Reason:  reason,
	}); err == nil {
		s.publisher.Publish(env.EventType, env.CorrelationID, env)
	}
	return failed, nil
}

// Get returns an order. Non-admins only see their own.
func (s *Service) Get(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*Response, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID && !isAdmin {
		return nil, ErrOrderNotFound
	}
	return ToResponse(order), nil
}

// ListForUser returns the user's billing history.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) (*ListResponse, error) {
	orders, total, err := s.repo.ListByUser(ctx, userID, offset, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total), nil
}

// ListAll returns all orders, optionally filtered by status (admin).
func (s *Service) ListAll(ctx context.Context, status OrderStatus, offset, limit int) (*ListResponse, error) {
	orders, total, err := s.repo.List(ctx, status, offset, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return toListResponse(orders, total), nil
}

// --- Helpers ---

func (s *Service) publishCreated(order *Order) {
	items := make([]events.OrderItemPayload, len(order.Items))
	for i, item := range order.Items {
		items[i] = events.OrderItemPayload{
			ProductID:  item.ProductID.String(),
			Qty:        item.Quantity,
			PricePaisa: item.UnitPricePaisa,
		}
	}
	env, err := events.NewEnvelope(events.EventOrderCreated, order.ID.String(), events.OrderCreatedPayload{
		OrderID:       order.ID.String(),
		UserID:        order.UserID.String(),
		PaymentMethod: string(order.PaymentMethod),
		Items:         items,
		TotalPaisa:    order.AmountPaisa,
	})
	if err != nil {
		s.logger.Warn("failed to build order event", zap.Error(err))
		return
	}
	s.publisher.Publish(env.EventType, env.CorrelationID, env)
}

func (s *Service) publishCompleted(order *Order) {
	env, err := events.NewEnvelope(events.EventOrderCompleted, order.ID.String(), events.OrderCompletedPayload{
		OrderID:            order.ID.String(),
		PaymentMethod:      string(order.PaymentMethod),
		PaymentReferenceID: order.PaymentReferenceID,
		TotalPaisa:         order.AmountPaisa,
	})
	if err != nil {
		s.logger.Warn("failed to build order event", zap.Error(err))
		return
	}
	s.publisher.Publish(env.EventType, env.CorrelationID, env)
}

func (s *Service) sendConfirmation(ctx context.Context, order *Order) {
	u, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		s.logger.Warn("confirmation email skipped",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}

	items := make([]mail.OrderConfirmationItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = mail.OrderConfirmationItem{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    catalog.FormatRupees(item.UnitPricePaisa),
		}
	}

	err = s.mailer.SendOrderConfirmation(ctx, u.Email, &mail.OrderConfirmation{
		Name:        u.Name,
		OrderNumber: order.OrderNumber,
		Gateway:     string(order.PaymentMethod),
		Items:       items,
		Total:       catalog.FormatRupees(order.AmountPaisa),
	})
	if err != nil {
		s.logger.Warn("confirmation email failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func toListResponse(orders []*Order, total int64) *ListResponse {
	resp := &ListResponse{
		Orders: make([]*Response, len(orders)),
		Total:  total,
	}
	for i, o := range orders {
		resp.Orders[i] = ToResponse(o)
	}
	return resp
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
