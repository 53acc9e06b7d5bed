package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
)

func decimalFromFloat(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// In-memory repository fakes. The product fake guards its map with a mutex
// and applies the same conditional-decrement rule as the Mongo
// implementation, so the concurrency tests exercise the real contract.

type fakeCartRepo struct {
	mu      sync.Mutex
	carts   map[string]*models.Cart
	saveErr error
	getErr  error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*models.Cart{}}
}

func copyCart(cart *models.Cart) *models.Cart {
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	return &c
}

func (f *fakeCartRepo) GetActive(ctx context.Context, userID string, now time.Time) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	cart, ok := f.carts[userID]
	if !ok || !cart.ExpiresAt.After(now) {
		return nil, nil
	}
	return copyCart(cart), nil
}

func (f *fakeCartRepo) Save(ctx context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (f *fakeCartRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for userID, cart := range f.carts {
		if !cart.ExpiresAt.After(now) {
			delete(f.carts, userID)
			deleted++
		}
	}
	return deleted, nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*models.Product
	decErr   error
	incErr   error
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: map[string]*models.Product{}}
	for _, p := range products {
		cp := *p
		f.products[p.ID] = &cp
	}
	return f
}

func (f *fakeProductRepo) Get(ctx context.Context, productID string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decErr != nil {
		return f.decErr
	}
	p, ok := f.products[productID]
	if !ok || !p.IsActive || p.StockQuantity < quantity {
		return repository.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	return nil
}

func (f *fakeProductRepo) IncrementStock(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return f.incErr
	}
	p, ok := f.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.StockQuantity += quantity
	return nil
}

func (f *fakeProductRepo) stock(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].StockQuantity
}

func (f *fakeProductRepo) setPrice(productID string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID].Price = decimalFromFloat(price)
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*models.Order{}}
}

func copyOrder(order *models.Order) *models.Order {
	o := *order
	o.Items = append([]models.OrderItem(nil), order.Items...)
	o.StatusHistory = append([]models.StatusChange(nil), order.StatusHistory...)
	return &o
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrderRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(order), nil
}

func (f *fakeOrderRepo) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			all = append(all, *copyOrder(order))
		}
	}
	return all, int64(len(all)), nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, change models.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return repository.ErrStatusConflict
	}
	order.Status = to
	order.StatusHistory = append(order.StatusHistory, change)
	return nil
}

func (f *fakeOrderRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeSequenceRepo struct {
	mu      sync.Mutex
	seqs    map[string]int64
	nextErr error
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{seqs: map[string]int64{}}
}

func (f *fakeSequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextErr != nil {
		return 0, f.nextErr
	}
	f.seqs[name]++
	return f.seqs[name], nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	createErr    error
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: map[string]*models.Reservation{}}
}

func (f *fakeReservationRepo) Create(ctx context.Context, reservation *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	r := *reservation
	r.Items = append([]models.ReservationItem(nil), reservation.Items...)
	f.reservations[r.ID] = &r
	return nil
}

func (f *fakeReservationRepo) Take(ctx context.Context, id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reservation, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.reservations, id)
	return reservation, nil
}

func (f *fakeReservationRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.Reservation
	for _, reservation := range f.reservations {
		if reservation.CreatedAt.Before(cutoff) {
			stale = append(stale, *reservation)
		}
	}
	return stale, nil
}

func (f *fakeReservationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

type capturePublisher struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (p *capturePublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return nil
}
