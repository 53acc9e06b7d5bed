package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

// OrderService serves order reads and accepts status transitions from the
// order-management collaborator.
type OrderService struct {
	orders repository.OrderRepository
	now    func() time.Time
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{
		orders: orders,
		now:    time.Now,
	}
}

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	HasMore     bool  `json:"has_more"`
}

// GetOrder returns the order only to its owner.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		return nil, apperrors.Unavailable("failed to load order", err)
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order not found")
	}
	return order, nil
}

// GetUserOrders retrieves paginated orders for a user, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, apperrors.Unavailable("failed to fetch orders", err)
	}

	return &OrderListResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

// UpdateStatus applies one lifecycle transition and appends a history
// entry. Backward moves and transitions out of termination are rejected.
// The store-side update is conditional on the status the caller saw, so a
// concurrent transition loses cleanly instead of double-appending.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to models.OrderStatus, note string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		return nil, apperrors.Unavailable("failed to load order", err)
	}

	if !models.CanTransition(order.Status, to) {
		return nil, apperrors.InvalidTransition(order.Status.String(), to.String())
	}

	change := models.StatusChange{
		Status:    to,
		Timestamp: s.now(),
		Note:      note,
	}
	err = s.orders.UpdateStatus(ctx, orderID, order.Status, to, change)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, apperrors.InvalidTransition(order.Status.String(), to.String())
	}
	if err != nil {
		return nil, apperrors.Unavailable("failed to update order status", err)
	}

	order, err = s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, apperrors.Unavailable("failed to reload order", err)
	}
	return order, nil
}
