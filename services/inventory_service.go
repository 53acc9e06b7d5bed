package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

// InventoryService is the only component that mutates stock. Each demand is
// settled by a single conditional decrement in the store, so two shoppers
// racing for the last unit are resolved first-committed-wins and stock can
// never go negative.
type InventoryService struct {
	products     repository.ProductRepository
	reservations repository.ReservationRepository
	now          func() time.Time
}

func NewInventoryService(products repository.ProductRepository, reservations repository.ReservationRepository) *InventoryService {
	return &InventoryService{
		products:     products,
		reservations: reservations,
		now:          time.Now,
	}
}

// Reserve test-and-decrements stock for the whole batch, in the order
// supplied. If any demand cannot be satisfied, every decrement already
// applied is compensated and the failure enumerates each product that fell
// short together with the stock actually available. On success the batch is
// recorded as a held reservation for later Commit or Release.
func (s *InventoryService) Reserve(ctx context.Context, userID string, demands []models.ReservationItem) (*models.Reservation, error) {
	var applied []models.ReservationItem
	var shortages []apperrors.StockShortage

	for _, demand := range demands {
		err := s.products.DecrementStock(ctx, demand.ProductID, demand.Quantity)
		if err == nil {
			applied = append(applied, demand)
			continue
		}

		if !errors.Is(err, repository.ErrInsufficientStock) {
			if rbErr := s.compensate(ctx, applied); rbErr != nil {
				return nil, rbErr
			}
			return nil, apperrors.Unavailable("failed to reserve stock", err)
		}

		// The conditional update rejected this demand; find out why so
		// the caller gets an actionable shortage entry.
		shortage := apperrors.StockShortage{
			ProductID: demand.ProductID,
			Requested: demand.Quantity,
		}
		product, getErr := s.products.Get(ctx, demand.ProductID)
		switch {
		case errors.Is(getErr, repository.ErrNotFound):
			shortage.Reason = "product not found"
		case getErr != nil:
			if rbErr := s.compensate(ctx, applied); rbErr != nil {
				return nil, rbErr
			}
			return nil, apperrors.Unavailable("failed to read stock", getErr)
		case !product.IsActive:
			shortage.Reason = "product is no longer available"
		default:
			shortage.Available = product.StockQuantity
			shortage.Reason = "insufficient stock"
		}
		shortages = append(shortages, shortage)
	}

	if len(shortages) > 0 {
		if rbErr := s.compensate(ctx, applied); rbErr != nil {
			return nil, rbErr
		}
		return nil, apperrors.StockInsufficient(shortages)
	}

	reservation := &models.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     demands,
		CreatedAt: s.now(),
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		if rbErr := s.compensate(ctx, applied); rbErr != nil {
			return nil, rbErr
		}
		return nil, apperrors.Unavailable("failed to record reservation", err)
	}

	zap.L().Info("Stock reserved",
		zap.String("reservation_id", reservation.ID),
		zap.String("user_id", userID),
		zap.Int("items", len(demands)),
	)
	return reservation, nil
}

// Release reverses a held reservation: the reservation document is claimed
// atomically, then each decrement is compensated. Releasing a reservation
// that was already committed or released is a no-op.
func (s *InventoryService) Release(ctx context.Context, reservationID string) error {
	reservation, err := s.reservations.Take(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Unavailable("failed to claim reservation", err)
	}

	if err := s.compensate(ctx, reservation.Items); err != nil {
		return err
	}

	zap.L().Info("Reservation released",
		zap.String("reservation_id", reservationID),
		zap.Int("items", len(reservation.Items)),
	)
	return nil
}

// Commit consumes a held reservation once an order holds its stock; the
// decrements stand. A missing reservation here means the reaper swept it
// mid-checkout, which needs an operator to reconcile.
func (s *InventoryService) Commit(ctx context.Context, reservationID string) error {
	_, err := s.reservations.Take(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Consistency("reservation vanished before commit; stock may have been released under a recorded order", nil)
	}
	if err != nil {
		return apperrors.Unavailable("failed to commit reservation", err)
	}
	return nil
}

// compensate increments stock back for every item. A failure here means
// stock is stuck decremented with no order holding it, which is the one
// failure this system must never hide.
func (s *InventoryService) compensate(ctx context.Context, items []models.ReservationItem) error {
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			zap.L().Error("Stock rollback failed",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			return apperrors.Consistency("stock rollback failed; operator attention required", err)
		}
	}
	return nil
}
