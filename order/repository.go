// Package order is the checkout and order-history surface of the remote API.
// The cart itself never touches the network; checkout converts its lines into
// the API's order payload and the caller empties the cart on success.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"goflare.io/ember"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/remote"
)

const cacheTTL = 2 * time.Minute

var _ Repository = (*repository)(nil)

// CheckoutItem is one line of the checkout payload.
type CheckoutItem struct {
	ProductID models.ProductID `json:"product_id"`
	Quantity  int64            `json:"quantity"`
}

// CheckoutRequest is the POST /orders/ body.
type CheckoutRequest struct {
	AddressID int64          `json:"address_id"`
	Items     []CheckoutItem `json:"items"`
}

type Repository interface {
	Checkout(ctx context.Context, addressID int64, lines []models.CartLine) (*models.Order, error)
	List(ctx context.Context) ([]*models.Order, error)
	Get(ctx context.Context, orderID uint64) (*models.Order, error)

	ListAddresses(ctx context.Context) ([]*models.Address, error)
	CreateAddress(ctx context.Context, address *models.Address) error

	UpdateStatus(ctx context.Context, orderID uint64, status enum.OrderStatus) error
	Delete(ctx context.Context, orderID uint64) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}

type repository struct {
	client *remote.Client
	cache  *ember.Ember
	logger *zap.Logger
}

func NewRepository(client *remote.Client, cache *ember.Ember, logger *zap.Logger) Repository {
	return &repository{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Checkout submits the cart's lines against a saved address. Lines without a
// positive quantity are submitted as one, matching how they are displayed.
func (r *repository) Checkout(ctx context.Context, addressID int64, lines []models.CartLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	request := CheckoutRequest{
		AddressID: addressID,
		Items:     make([]CheckoutItem, 0, len(lines)),
	}
	for _, line := range lines {
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		request.Items = append(request.Items, CheckoutItem{
			ProductID: line.ProductID,
			Quantity:  quantity,
		})
	}

	var created models.Order
	if err := r.client.Post(ctx, "/orders/", request, &created); err != nil {
		r.logger.Error("Checkout failed", zap.Int64("address_id", addressID), zap.Error(err))
		return nil, err
	}

	r.invalidateOrdersCache(ctx)
	return &created, nil
}

func (r *repository) List(ctx context.Context) ([]*models.Order, error) {
	cacheKey := "orders"
	var orders []*models.Order

	found, err := r.cache.Get(ctx, cacheKey, &orders)
	if err != nil {
		r.logger.Warn("Failed to get orders from cache", zap.Error(err))
	}
	if found {
		return orders, nil
	}

	var raw json.RawMessage
	if err = r.client.Get(ctx, "/orders/", &raw); err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	orders = remote.UnwrapList[*models.Order](raw)

	if err = r.cache.Set(ctx, cacheKey, orders, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache orders", zap.Error(err))
	}

	return orders, nil
}

func (r *repository) Get(ctx context.Context, orderID uint64) (*models.Order, error) {
	var order models.Order
	if err := r.client.Get(ctx, fmt.Sprintf("/orders/%d", orderID), &order); err != nil {
		r.logger.Error("Failed to get order", zap.Uint64("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListAddresses(ctx context.Context) ([]*models.Address, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, "/orders/addresses", &raw); err != nil {
		r.logger.Error("Failed to list addresses", zap.Error(err))
		return nil, err
	}
	return remote.UnwrapList[*models.Address](raw), nil
}

func (r *repository) CreateAddress(ctx context.Context, address *models.Address) error {
	if err := r.client.Post(ctx, "/orders/addresses", address, address); err != nil {
		r.logger.Error("Failed to create address", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uint64, status enum.OrderStatus) error {
	body := map[string]enum.OrderStatus{"status": status}
	if err := r.client.Patch(ctx, fmt.Sprintf("/orders/%d/status", orderID), body, nil); err != nil {
		r.logger.Error("Failed to update order status",
			zap.Uint64("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}
	r.invalidateOrdersCache(ctx)
	return nil
}

func (r *repository) Delete(ctx context.Context, orderID uint64) error {
	if err := r.client.Delete(ctx, fmt.Sprintf("/orders/%d", orderID)); err != nil {
		r.logger.Error("Failed to delete order", zap.Uint64("order_id", orderID), zap.Error(err))
		return err
	}
	r.invalidateOrdersCache(ctx)
	return nil
}

func (r *repository) Stats(ctx context.Context) (*models.OrderStats, error) {
	var stats models.OrderStats
	if err := r.client.Get(ctx, "/orders/stats/summary", &stats); err != nil {
		r.logger.Error("Failed to get order stats", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

func (r *repository) invalidateOrdersCache(ctx context.Context) {
	if err := r.cache.Delete(ctx, "orders"); err != nil {
		r.logger.Warn("Failed to invalidate orders cache", zap.Error(err))
	}
}
