package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

// orderNumberPrefix plus a zero-padded sequence value forms the order
// number. The sequence is an atomic counter, never a document count.
const (
	orderNumberPrefix = "ORD-"
	orderSequenceName = "orders"
)

// PricingPolicy supplies tax and shipping amounts; the rates mirror the
// storefront's long-standing defaults.
type PricingPolicy struct {
	TaxRate          decimal.Decimal
	FreeShippingOver decimal.Decimal
	FlatShippingCost decimal.Decimal
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:          decimal.NewFromFloat(0.08),
		FreeShippingOver: decimal.NewFromInt(50),
		FlatShippingCost: decimal.NewFromFloat(9.99),
	}
}

func (p PricingPolicy) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingOver) {
		return decimal.Zero
	}
	return p.FlatShippingCost
}

// CheckoutRequest carries the collaborator-supplied blocks recorded
// verbatim on the order. The core does not call a payment processor.
type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress
	ShippingMethod  string
	PaymentMethod   string
	PaymentStatus   models.PaymentStatus
	PaymentAmount   decimal.Decimal
	Currency        string
}

// CheckoutService turns a cart into an order atomically. Its one
// non-negotiable contract: stock is never left decremented without a
// persisted order, and an order is never recorded over stock that was not
// reserved.
type CheckoutService struct {
	carts     repository.CartRepository
	products  repository.ProductReader
	orders    repository.OrderRepository
	sequences repository.SequenceRepository
	inventory *InventoryService
	events    []EventPublisher
	pricing   PricingPolicy
	now       func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductReader,
	orders repository.OrderRepository,
	sequences repository.SequenceRepository,
	inventory *InventoryService,
	events []EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		products:  products,
		orders:    orders,
		sequences: sequences,
		inventory: inventory,
		events:    events,
		pricing:   DefaultPricingPolicy(),
		now:       time.Now,
	}
}

// Checkout runs the cart -> order transition:
//
//	load cart -> snapshot prices -> reserve stock -> mint order number ->
//	persist order -> clear cart -> commit reservation
//
// Any failure before the order is persisted releases the reservation and
// leaves cart and inventory exactly as they were.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error) {
	now := s.now()

	cart, err := s.carts.GetActive(ctx, userID, now)
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.EmptyCart()
	}

	items, demands, subtotal, err := s.snapshot(ctx, cart)
	if err != nil {
		return nil, err
	}

	reservation, err := s.inventory.Reserve(ctx, userID, demands)
	if err != nil {
		// Itemized shortage, outage, or rollback escalation; the cart is
		// untouched either way.
		return nil, err
	}

	seq, err := s.sequences.Next(ctx, orderSequenceName)
	if err != nil {
		if relErr := s.inventory.Release(ctx, reservation.ID); relErr != nil {
			return nil, relErr
		}
		return nil, apperrors.Unavailable("order sequencer unavailable", err)
	}
	orderNumber := fmt.Sprintf("%s%06d", orderNumberPrefix, seq)

	tax := subtotal.Mul(s.pricing.TaxRate).Round(2)
	shippingCost := s.pricing.ShippingCost(subtotal)
	total := subtotal.Add(tax).Add(shippingCost)

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	// The payment collaborator's amount is recorded as supplied; the
	// computed total stands in only when it sends none.
	paymentAmount := req.PaymentAmount
	if paymentAmount.IsZero() {
		paymentAmount = total
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     orderNumber,
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Payment: models.Payment{
			Method:   req.PaymentMethod,
			Status:   paymentStatus,
			Amount:   paymentAmount,
			Currency: currency,
		},
		Shipping: models.Shipping{
			Method: req.ShippingMethod,
			Cost:   shippingCost,
		},
		Status:   models.OrderStatusPending,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
		StatusHistory: []models.StatusChange{
			{Status: models.OrderStatusPending, Timestamp: now, Note: "order created"},
		},
		CreatedAt: now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if relErr := s.inventory.Release(ctx, reservation.ID); relErr != nil {
			return nil, relErr
		}
		return nil, apperrors.Unavailable("failed to record order", err)
	}

	// From here the order holds the stock; nothing below may release it.
	s.clearCart(ctx, cart, order)

	if err := s.inventory.Commit(ctx, reservation.ID); err != nil {
		zap.L().Error("Reservation commit failed after order was recorded",
			zap.String("order_id", order.ID),
			zap.String("reservation_id", reservation.ID),
			zap.Error(err),
		)
	}

	s.publish(ctx, order)

	zap.L().Info("Checkout completed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// snapshot copies each line's current product name and price so later
// catalog changes never alter the placed order, and collects the stock
// demands for the reservation batch in cart order.
func (s *CheckoutService) snapshot(ctx context.Context, cart *models.Cart) ([]models.OrderItem, []models.ReservationItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(cart.Items))
	demands := make([]models.ReservationItem, 0, len(cart.Items))
	subtotal := decimal.Zero
	var shortages []apperrors.StockShortage

	for _, line := range cart.Items {
		product, err := s.products.Get(ctx, line.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			shortages = append(shortages, apperrors.StockShortage{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Reason:    "product not found",
			})
			continue
		}
		if err != nil {
			return nil, nil, decimal.Zero, apperrors.Unavailable("failed to load product", err)
		}
		if !product.IsActive {
			shortages = append(shortages, apperrors.StockShortage{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Reason:    "product is no longer available",
			})
			continue
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Variant:   line.Variant,
		})
		demands = append(demands, models.ReservationItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if len(shortages) > 0 {
		return nil, nil, decimal.Zero, apperrors.StockInsufficient(shortages)
	}
	return items, demands, subtotal, nil
}

// clearCart empties the cart after the order is recorded. The order already
// holds the stock, so a failure here must not unwind anything; it is logged
// and retried once.
func (s *CheckoutService) clearCart(ctx context.Context, cart *models.Cart, order *models.Order) {
	cart.Items = []models.CartItem{}
	cart.Touch(s.now())

	err := s.carts.Save(ctx, cart)
	if err != nil {
		err = s.carts.Save(ctx, cart)
	}
	if err != nil {
		zap.L().Error("Cart not cleared after checkout",
			zap.String("order_id", order.ID),
			zap.String("user_id", cart.UserID),
			zap.Error(err),
		)
	}
}

func (s *CheckoutService) publish(ctx context.Context, order *models.Order) {
	for _, publisher := range s.events {
		if err := publisher.PublishOrderCreated(ctx, order); err != nil {
			zap.L().Warn("Order event publish failed",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}
}
