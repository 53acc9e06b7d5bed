package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

// Reaper is the periodic background sweep. It removes carts whose expiry
// has passed and releases reservations held longer than the hold timeout
// (a checkout that died between reserving and recording its order).
//
// Both sweeps are idempotent and safe to run concurrently with live
// traffic: the cart delete predicate is evaluated in the store, so a cart
// whose expiry was refreshed after the sweep began simply no longer
// matches, and reservation release claims each document atomically.
type Reaper struct {
	carts        repository.CartRepository
	reservations repository.ReservationRepository
	inventory    *InventoryService

	interval    time.Duration
	holdTimeout time.Duration
	now         func() time.Time
}

func NewReaper(
	carts repository.CartRepository,
	reservations repository.ReservationRepository,
	inventory *InventoryService,
	interval, holdTimeout time.Duration,
) *Reaper {
	return &Reaper{
		carts:        carts,
		reservations: reservations,
		inventory:    inventory,
		interval:     interval,
		holdTimeout:  holdTimeout,
		now:          time.Now,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass of both cleanups.
func (r *Reaper) Sweep(ctx context.Context) {
	now := r.now()

	deleted, err := r.carts.DeleteExpired(ctx, now)
	if err != nil {
		zap.L().Error("Expired cart sweep failed", zap.Error(err))
	} else if deleted > 0 {
		zap.L().Info("Expired carts removed", zap.Int64("count", deleted))
	}

	r.sweepReservations(ctx, now)
}

func (r *Reaper) sweepReservations(ctx context.Context, now time.Time) {
	stale, err := r.reservations.ListCreatedBefore(ctx, now.Add(-r.holdTimeout))
	if err != nil {
		zap.L().Error("Stale reservation sweep failed", zap.Error(err))
		return
	}

	for _, reservation := range stale {
		r.releaseStale(ctx, reservation)
	}
}

func (r *Reaper) releaseStale(ctx context.Context, reservation models.Reservation) {
	// Release claims the document first, so a checkout committing at the
	// same moment cannot be double-compensated.
	if err := r.inventory.Release(ctx, reservation.ID); err != nil {
		zap.L().Error("Stale reservation release failed",
			zap.String("reservation_id", reservation.ID),
			zap.Error(err),
		)
		return
	}
	zap.L().Warn("Stale reservation released",
		zap.String("reservation_id", reservation.ID),
		zap.String("user_id", reservation.UserID),
		zap.Time("created_at", reservation.CreatedAt),
	)
}
