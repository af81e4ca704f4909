// Package storefront ties the client pieces together: the locally persisted
// cart with its resynchronizing store, the remote API repositories, and the
// payment-event subscription that completes the checkout flow.
package storefront

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/catalog"
	"gofalre.io/storefront/event"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/order"
	"gofalre.io/storefront/remote"
	"gofalre.io/storefront/review"
)

type Service interface {
	AddToCart(ctx context.Context, line models.CartLine, delta int64) (cart.Summary, error)
	RemoveFromCart(ctx context.Context, line models.CartLine) (cart.Summary, error)
	SetQuantity(ctx context.Context, line models.CartLine, quantity int64) (cart.Summary, error)
	EmptyCart(ctx context.Context) error
	CartSummary() cart.Summary
	Cart() *cart.Store

	Checkout(ctx context.Context, addressID int64) (*models.Order, error)

	ListProducts(ctx context.Context) ([]*models.Product, error)
	BrowseProducts(ctx context.Context, filter catalog.Filter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error)
	ProductMeta(ctx context.Context) (*models.ProductMeta, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id models.ProductID) error

	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	ListAddresses(ctx context.Context) ([]*models.Address, error)
	CreateAddress(ctx context.Context, address *models.Address) error
	UpdateOrderStatus(ctx context.Context, orderID uint64, status enum.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID uint64) error
	OrderStats(ctx context.Context) (*models.OrderStats, error)

	ListReviews(ctx context.Context) ([]*models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, reviewID uint64) error
	ReviewStats(ctx context.Context) (*models.ReviewStats, error)

	Login(ctx context.Context, username, password string, role enum.Role) error
	Logout(ctx context.Context)
	Profile(ctx context.Context) (*models.Identity, error)
	SendContact(ctx context.Context, message *models.ContactMessage) error

	Close()
}

type service struct {
	cartStore *cart.Store
	mutator   *cart.Mutator
	catalog   catalog.Repository
	orders    order.Repository
	reviews   review.Repository
	auth      *auth.Store
	client    *remote.Client
	events    event.Repository

	eventManager *EventManager
	workerPool   *WorkerPool

	logger *zap.Logger
}

// NewService wires the storefront. The cart store is started here, and when a
// NATS connection is supplied the payment-event subscription is established;
// without one the storefront runs but only learns of payment outcomes by
// re-fetching orders.
func NewService(
	cartStore *cart.Store, mutator *cart.Mutator,
	catalogRepo catalog.Repository, orderRepo order.Repository, reviewRepo review.Repository,
	authStore *auth.Store, client *remote.Client, eventRepo event.Repository,
	natsConn *nats.Conn,
	logger *zap.Logger) Service {
	s := &service{
		cartStore: cartStore,
		mutator:   mutator,
		catalog:   catalogRepo,
		orders:    orderRepo,
		reviews:   reviewRepo,
		auth:      authStore,
		client:    client,
		events:    eventRepo,
		logger:    logger,
	}

	s.cartStore.Start(context.Background())

	// Handlers are always registered; without a NATS connection events can
	// still be fed through ProcessEvent directly.
	s.eventManager = NewEventManager(natsConn, logger)
	s.registerEventHandlers()

	if natsConn != nil {
		s.workerPool = NewWorkerPool(4, s, logger)

		if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
			logger.Error("Failed to subscribe to payment events", zap.Error(err))
		}
	}

	return s
}

func (s *service) Cart() *cart.Store {
	return s.cartStore
}

// CartSummary reads the store's current aggregates; no storage access.
func (s *service) CartSummary() cart.Summary {
	return s.cartStore.Summary()
}

// AddToCart merges the line into the cart. A zero delta means "use the
// line's own quantity, defaulting to one"; a negative delta decrements and
// removes the line when it reaches zero. The returned summary is the
// authoritative recomputation after the store resynchronized.
func (s *service) AddToCart(ctx context.Context, line models.CartLine, delta int64) (cart.Summary, error) {
	if _, err := s.mutator.Apply(ctx, line, delta, enum.CartModeAdd, s.cartStore); err != nil {
		return cart.Summary{}, err
	}
	return s.cartStore.Summary(), nil
}

// RemoveFromCart drops the whole line regardless of its quantity.
func (s *service) RemoveFromCart(ctx context.Context, line models.CartLine) (cart.Summary, error) {
	var current int64
	for _, existing := range s.cartStore.Lines() {
		if existing.Key() == line.Key() {
			current = existing.Quantity
			break
		}
	}
	if current == 0 {
		// Not in the cart; nothing to do.
		return s.cartStore.Summary(), nil
	}

	if _, err := s.mutator.Apply(ctx, line, -current, enum.CartModeAdd, s.cartStore); err != nil {
		return cart.Summary{}, err
	}
	return s.cartStore.Summary(), nil
}

// SetQuantity replaces the line's quantity with an absolute target. A target
// at or below zero removes the line; a target for a line not yet in the cart
// adds it.
func (s *service) SetQuantity(ctx context.Context, line models.CartLine, quantity int64) (cart.Summary, error) {
	if line.ProductID == "" {
		return cart.Summary{}, cart.ErrMissingProductID
	}

	if quantity <= 0 {
		return s.RemoveFromCart(ctx, line)
	}

	var current int64
	for _, existing := range s.cartStore.Lines() {
		if existing.Key() == line.Key() {
			current = existing.Quantity
			break
		}
	}
	if quantity == current {
		return s.cartStore.Summary(), nil
	}

	if _, err := s.mutator.Apply(ctx, line, quantity-current, enum.CartModeAdd, s.cartStore); err != nil {
		return cart.Summary{}, err
	}
	return s.cartStore.Summary(), nil
}

func (s *service) EmptyCart(ctx context.Context) error {
	_, err := s.mutator.Apply(ctx, models.CartLine{}, 0, enum.CartModeEmpty, s.cartStore)
	return err
}

// Checkout submits the current cart against a saved address and empties the
// cart once the order is accepted.
func (s *service) Checkout(ctx context.Context, addressID int64) (*models.Order, error) {
	created, err := s.orders.Checkout(ctx, addressID, s.cartStore.Lines())
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	if err = s.EmptyCart(ctx); err != nil {
		s.logger.Warn("Failed to empty cart after checkout", zap.Uint64("order_id", created.ID), zap.Error(err))
	}

	return created, nil
}

func (s *service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.catalog.List(ctx)
}

func (s *service) BrowseProducts(ctx context.Context, filter catalog.Filter) ([]*models.Product, error) {
	return s.catalog.ListFiltered(ctx, filter)
}

func (s *service) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	return s.catalog.Get(ctx, id)
}

func (s *service) ProductMeta(ctx context.Context) (*models.ProductMeta, error) {
	return s.catalog.Meta(ctx)
}

func (s *service) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.catalog.Create(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.catalog.Update(ctx, product)
}

func (s *service) DeleteProduct(ctx context.Context, id models.ProductID) error {
	return s.catalog.Delete(ctx, id)
}

func (s *service) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.orders.List(ctx)
}

func (s *service) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *service) ListAddresses(ctx context.Context) ([]*models.Address, error) {
	return s.orders.ListAddresses(ctx)
}

func (s *service) CreateAddress(ctx context.Context, address *models.Address) error {
	return s.orders.CreateAddress(ctx, address)
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uint64, status enum.OrderStatus) error {
	return s.orders.UpdateStatus(ctx, orderID, status)
}

func (s *service) DeleteOrder(ctx context.Context, orderID uint64) error {
	return s.orders.Delete(ctx, orderID)
}

func (s *service) OrderStats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.Stats(ctx)
}

func (s *service) ListReviews(ctx context.Context) ([]*models.Review, error) {
	return s.reviews.List(ctx)
}

func (s *service) CreateReview(ctx context.Context, review *models.Review) error {
	return s.reviews.Create(ctx, review)
}

func (s *service) UpdateReview(ctx context.Context, review *models.Review) error {
	return s.reviews.Update(ctx, review)
}

func (s *service) DeleteReview(ctx context.Context, reviewID uint64) error {
	return s.reviews.Delete(ctx, reviewID)
}

func (s *service) ReviewStats(ctx context.Context) (*models.ReviewStats, error) {
	return s.reviews.Stats(ctx)
}

// Login authenticates against the role's login endpoint and stores the
// issued credential. The server's view of the role wins over the requested
// one when they disagree.
func (s *service) Login(ctx context.Context, username, password string, role enum.Role) error {
	endpoint := "/auth/customer/login"
	if role == enum.RoleAdmin {
		endpoint = "/auth/admin/login"
	}

	var session models.Session
	err := s.client.Post(ctx, endpoint, models.Credentials{Username: username, Password: password}, &session)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	granted := session.User.Role
	if !granted.Valid() {
		granted = role
	}
	return s.auth.Login(ctx, session.Token, username, granted)
}

func (s *service) Logout(ctx context.Context) {
	s.auth.Logout(ctx)
}

func (s *service) Profile(ctx context.Context) (*models.Identity, error) {
	var identity models.Identity
	if err := s.client.Get(ctx, "/auth/profile", &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *service) SendContact(ctx context.Context, message *models.ContactMessage) error {
	return s.client.Post(ctx, "/contact", message, nil)
}

// Close stops the payment-event machinery and detaches the cart store.
func (s *service) Close() {
	if s.eventManager != nil {
		s.eventManager.Unsubscribe()
	}
	if s.workerPool != nil {
		s.workerPool.Shutdown()
	}
	s.cartStore.Close()
}
