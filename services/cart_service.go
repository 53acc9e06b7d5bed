package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/nebulamart/storefront-core/common/errors"
	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

// CartService owns the single active cart per shopper. It never performs a
// hard stock check; adds only warn when the requested quantity exceeds the
// last known stock, and the authoritative check happens at checkout.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductReader
	now      func() time.Time
}

func NewCartService(carts repository.CartRepository, products repository.ProductReader) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		now:      time.Now,
	}
}

// GetOrCreate returns the user's non-expired cart, creating and persisting
// an empty one with a fresh expiry when there is none.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart != nil {
		return cart, nil
	}

	cart = s.emptyCart(userID)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Unavailable("failed to create cart", err)
	}
	return cart, nil
}

// Get returns the cart for display, pruning lines whose product vanished or
// went inactive and clamping quantities to the stock last seen. Read-side
// cleanup only; nothing here reserves stock.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart == nil {
		return s.emptyCart(userID), nil
	}

	changed := false
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		product, err := s.products.Get(ctx, item.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			changed = true
			continue
		}
		if err != nil {
			// Catalog read failed; keep the line rather than guessing.
			kept = append(kept, item)
			continue
		}
		if !product.IsActive || product.StockQuantity <= 0 {
			changed = true
			continue
		}
		if item.Quantity > product.StockQuantity {
			item.Quantity = product.StockQuantity
			changed = true
		}
		kept = append(kept, item)
	}
	cart.Items = kept

	if changed {
		cart.Touch(s.now())
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, apperrors.Unavailable("failed to save cart", err)
		}
	}
	return cart, nil
}

// AddItem merges the selection into the cart: an existing line for the same
// product and canonical variant has its quantity summed, capped at the line
// maximum with the excess silently dropped; otherwise a new line is
// appended. Every add refreshes the cart expiry.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int, variant models.Variant) (*models.Cart, []models.StockWarning, error) {
	if productID == "" {
		return nil, nil, apperrors.Validation("product_id is required")
	}
	if quantity < models.MinItemQuantity || quantity > models.MaxItemQuantity {
		return nil, nil, apperrors.Validation(fmt.Sprintf(
			"quantity must be between %d and %d", models.MinItemQuantity, models.MaxItemQuantity))
	}

	product, err := s.products.Get(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.NotFound("product not found")
	}
	if err != nil {
		return nil, nil, apperrors.Unavailable("failed to load product", err)
	}
	if !product.IsActive {
		return nil, nil, apperrors.NotFound("product is no longer available")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var lineQuantity int
	if idx := cart.FindLine(productID, variant); idx >= 0 {
		lineQuantity = cart.Items[idx].Quantity + quantity
		if lineQuantity > models.MaxItemQuantity {
			lineQuantity = models.MaxItemQuantity
		}
		cart.Items[idx].Quantity = lineQuantity
	} else {
		lineQuantity = quantity
		cart.Items = append(cart.Items, models.CartItem{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  quantity,
			Variant:   variant,
			AddedAt:   now,
		})
	}

	// Soft check against the last known stock. Deliberately not a hard
	// gate: the snapshot may be stale, and the inventory guard settles it
	// at checkout.
	var warnings []models.StockWarning
	if lineQuantity > product.StockQuantity {
		warnings = append(warnings, models.StockWarning{
			ProductID: productID,
			Requested: lineQuantity,
			Available: product.StockQuantity,
		})
		zap.L().Info("Cart line exceeds last known stock",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Int("requested", lineQuantity),
			zap.Int("available", product.StockQuantity),
		)
	}

	cart.Touch(now)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, nil, apperrors.Unavailable("failed to save cart", err)
	}
	return cart, warnings, nil
}

// UpdateItem sets the quantity of an existing line; zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	if quantity < 0 || quantity > models.MaxItemQuantity {
		return nil, apperrors.Validation(fmt.Sprintf(
			"quantity must be between 0 and %d", models.MaxItemQuantity))
	}

	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart == nil {
		return nil, apperrors.NotFound("cart not found")
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item not found")
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = quantity
	}

	cart.Touch(s.now())
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Unavailable("failed to save cart", err)
	}
	return cart, nil
}

// RemoveItem removes a line. Removing an absent line is a no-op success.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart == nil {
		return s.emptyCart(userID), nil
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return cart, nil
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	cart.Touch(s.now())
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Unavailable("failed to save cart", err)
	}
	return cart, nil
}

// Clear empties the cart. The cart itself stays so the user can start a new
// one immediately; clearing an absent cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.Unavailable("failed to load cart", err)
	}
	if cart == nil {
		return s.emptyCart(userID), nil
	}

	cart.Items = []models.CartItem{}
	cart.Touch(s.now())
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Unavailable("failed to save cart", err)
	}
	return cart, nil
}

func (s *CartService) emptyCart(userID string) *models.Cart {
	now := s.now()
	cart := &models.Cart{
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
	}
	cart.Touch(now)
	return cart
}
