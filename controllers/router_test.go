package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/repository"
	"github.com/nebulamart/storefront-core/routes"
	"github.com/nebulamart/storefront-core/services"
)

// memStore backs every repository interface with one mutex-guarded map set,
// enough to drive the full HTTP surface in-process.
type memStore struct {
	mu           sync.Mutex
	carts        map[string]*models.Cart
	products     map[string]*models.Product
	orders       map[string]*models.Order
	reservations map[string]*models.Reservation
	seqs         map[string]int64
}

func newMemStore(products ...*models.Product) *memStore {
	s := &memStore{
		carts:        map[string]*models.Cart{},
		products:     map[string]*models.Product{},
		orders:       map[string]*models.Order{},
		reservations: map[string]*models.Reservation{},
		seqs:         map[string]int64{},
	}
	for _, p := range products {
		cp := *p
		s.products[p.ID] = &cp
	}
	return s
}

func (s *memStore) GetActive(ctx context.Context, userID string, now time.Time) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok || !cart.ExpiresAt.After(now) {
		return nil, nil
	}
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	return &c, nil
}

func (s *memStore) Save(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	s.carts[cart.UserID] = &c
	return nil
}

func (s *memStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) Get(ctx context.Context, productID string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) DecrementStock(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || !p.IsActive || p.StockQuantity < quantity {
		return repository.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	return nil
}

func (s *memStore) IncrementStock(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.StockQuantity += quantity
	return nil
}

func (s *memStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := *order
	s.orders[order.ID] = &o
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o := *order
	return &o, nil
}

func (s *memStore) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			all = append(all, *order)
		}
	}
	return all, int64(len(all)), nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, change models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return repository.ErrStatusConflict
	}
	order.Status = to
	order.StatusHistory = append(order.StatusHistory, change)
	return nil
}

func (s *memStore) Next(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[name]++
	return s.seqs[name], nil
}

func (s *memStore) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *reservation
	s.reservations[r.ID] = &r
	return nil
}

func (s *memStore) Take(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.reservations, id)
	return reservation, nil
}

func (s *memStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	return nil, nil
}

// The Create/Get method names collide across repositories, so thin views
// split the store into the interfaces the services expect.
type orderView struct{ *memStore }

func (v orderView) Create(ctx context.Context, order *models.Order) error {
	return v.memStore.Create(ctx, order)
}

func (v orderView) Get(ctx context.Context, id string) (*models.Order, error) {
	return v.memStore.GetOrder(ctx, id)
}

type reservationView struct{ *memStore }

func (v reservationView) Create(ctx context.Context, reservation *models.Reservation) error {
	return v.memStore.CreateReservation(ctx, reservation)
}

func newTestRouter(products ...*models.Product) (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	store := newMemStore(products...)

	cartService := services.NewCartService(store, store)
	inventory := services.NewInventoryService(store, reservationView{store})
	checkoutService := services.NewCheckoutService(store, store, orderView{store}, store, inventory, nil)
	orderService := services.NewOrderService(orderView{store})

	r := gin.New()
	routes.Register(r, cartService, checkoutService, orderService)
	return r, store
}

func do(t *testing.T, r *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func testProduct(id string, price float64, stock int) *models.Product {
	return &models.Product{
		ID:            id,
		Name:          "Product " + id,
		Price:         decimal.NewFromFloat(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

func checkoutBody() gin.H {
	return gin.H{
		"shipping_address": gin.H{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"email":      "ada@example.com",
			"street":     "1 Main St",
			"city":       "Springfield",
			"state":      "IL",
			"zip_code":   "62701",
		},
		"payment": gin.H{"method": "card"},
	}
}

func TestRoutesRequireUserHeader(t *testing.T) {
	r, _ := newTestRouter()

	w := do(t, r, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestAddItemAndGetCart(t *testing.T) {
	r, _ := newTestRouter(testProduct("p1", 10, 5))

	w := do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{
		"product_id": "p1",
		"quantity":   2,
		"variant":    gin.H{"size": "M"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/cart", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total_items"])
}

func TestAddItemValidation(t *testing.T) {
	r, _ := newTestRouter(testProduct("p1", 10, 5))

	w := do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "p1", "quantity": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "ghost", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutEndToEnd(t *testing.T) {
	r, store := newTestRouter(testProduct("p1", 10, 5))

	w := do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/checkout", "u1", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	order := body["data"].(map[string]any)["order"].(map[string]any)
	assert.Equal(t, "ORD-000001", order["order_number"])
	assert.Equal(t, "pending", order["status"])

	store.mu.Lock()
	stock := store.products["p1"].StockQuantity
	store.mu.Unlock()
	assert.Equal(t, 3, stock)

	// The cart is empty again.
	w = do(t, r, http.MethodGet, "/cart", "u1", nil)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(0), data["total_items"])

	// And an empty cart cannot check out.
	w = do(t, r, http.MethodPost, "/checkout", "u1", checkoutBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutShortageEnvelope(t *testing.T) {
	r, _ := newTestRouter(testProduct("p1", 10, 1))

	w := do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "p1", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/checkout", "u1", checkoutBody())
	require.Equal(t, http.StatusConflict, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	shortages := body["errors"].([]any)
	require.Len(t, shortages, 1)
	first := shortages[0].(map[string]any)
	assert.Equal(t, "p1", first["product_id"])
	assert.Equal(t, float64(3), first["requested"])
	assert.Equal(t, float64(1), first["available"])
}

func TestOrderStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(testProduct("p1", 10, 5))

	w := do(t, r, http.MethodPost, "/cart/items", "u1", gin.H{"product_id": "p1", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/checkout", "u1", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := decode(t, w)["data"].(map[string]any)["order"].(map[string]any)["id"].(string)

	w = do(t, r, http.MethodPatch, "/orders/"+orderID+"/status", "u1", gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPatch, "/orders/"+orderID+"/status", "u1", gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodGet, "/orders/"+orderID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)["data"].(map[string]any)["order"].(map[string]any)
	assert.Equal(t, "confirmed", order["status"])

	w = do(t, r, http.MethodGet, "/orders/"+orderID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
