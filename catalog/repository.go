// Package catalog is the product surface of the remote API: browsing for the
// shop pages and CRUD for the admin screen.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"goflare.io/ember"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/remote"
)

// cacheTTL keeps product reads off the network briefly; admin mutations
// invalidate it so the table reflects edits immediately.
const cacheTTL = 5 * time.Minute

var _ Repository = (*repository)(nil)

// Filter narrows a product listing the way the shop page does: by type or
// category, style, and price range. Zero values leave a dimension open.
type Filter struct {
	Type     string
	Style    string
	MinPrice float64
	MaxPrice float64
}

type Repository interface {
	List(ctx context.Context) ([]*models.Product, error)
	ListFiltered(ctx context.Context, filter Filter) ([]*models.Product, error)
	Get(ctx context.Context, id models.ProductID) (*models.Product, error)
	Meta(ctx context.Context) (*models.ProductMeta, error)

	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id models.ProductID) error
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

func (r *repository) List(ctx context.Context) ([]*models.Product, error) {
	cacheKey := "products"
	var products []*models.Product

	found, err := r.cache.Get(ctx, cacheKey, &products)
	if err != nil {
		r.logger.Warn("Failed to get products from cache", zap.Error(err))
	}
	if found {
		return products, nil
	}

	var raw json.RawMessage
	if err = r.client.Get(ctx, "/products", &raw); err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	products = remote.UnwrapList[*models.Product](raw)

	if err = r.cache.Set(ctx, cacheKey, products, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache products", zap.Error(err))
	}

	return products, nil
}

// ListFiltered narrows the full listing locally; the API exposes no
// server-side filter.
func (r *repository) ListFiltered(ctx context.Context, filter Filter) ([]*models.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Product, 0, len(products))
	for _, product := range products {
		if product == nil || !matches(product, filter) {
			continue
		}
		matched = append(matched, product)
	}
	return matched, nil
}

func (r *repository) Get(ctx context.Context, id models.ProductID) (*models.Product, error) {
	cacheKey := fmt.Sprintf("product:%s", id)
	var product models.Product

	found, err := r.cache.Get(ctx, cacheKey, &product)
	if err != nil {
		r.logger.Warn("Failed to get product from cache", zap.Error(err))
	}
	if found {
		return &product, nil
	}

	if err = r.client.Get(ctx, "/products/"+string(id), &product); err != nil {
		r.logger.Error("Failed to get product", zap.String("product_id", string(id)), zap.Error(err))
		return nil, err
	}

	if err = r.cache.Set(ctx, cacheKey, product, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache product", zap.Error(err))
	}

	return &product, nil
}

// Meta fetches the flat browse vocabularies from the three meta endpoints.
func (r *repository) Meta(ctx context.Context) (*models.ProductMeta, error) {
	meta := &models.ProductMeta{}

	var categories struct {
		Categories []string `json:"categories"`
	}
	if err := r.client.Get(ctx, "/products/meta/categories", &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	meta.Categories = categories.Categories

	var types struct {
		Types []string `json:"types"`
	}
	if err := r.client.Get(ctx, "/products/meta/types", &types); err != nil {
		return nil, fmt.Errorf("fetch types: %w", err)
	}
	meta.Types = types.Types

	var styles struct {
		Styles []string `json:"styles"`
	}
	if err := r.client.Get(ctx, "/products/meta/styles", &styles); err != nil {
		return nil, fmt.Errorf("fetch styles: %w", err)
	}
	meta.Styles = styles.Styles

	return meta, nil
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.client.Post(ctx, "/products/", product, product); err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}
	r.invalidateListCache(ctx)
	return nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	if err := r.client.Put(ctx, "/products/"+string(product.ID), product, product); err != nil {
		r.logger.Error("Failed to update product", zap.String("product_id", string(product.ID)), zap.Error(err))
		return err
	}
	r.invalidateListCache(ctx)
	if err := r.cache.Delete(ctx, fmt.Sprintf("product:%s", product.ID)); err != nil {
		r.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id models.ProductID) error {
	if err := r.client.Delete(ctx, "/products/"+string(id)); err != nil {
		r.logger.Error("Failed to delete product", zap.String("product_id", string(id)), zap.Error(err))
		return err
	}
	r.invalidateListCache(ctx)
	if err := r.cache.Delete(ctx, fmt.Sprintf("product:%s", id)); err != nil {
		r.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	return nil
}

func (r *repository) invalidateListCache(ctx context.Context) {
	if err := r.cache.Delete(ctx, "products"); err != nil {
		r.logger.Warn("Failed to invalidate products cache", zap.Error(err))
	}
}

func matches(product *models.Product, filter Filter) bool {
	if filter.Type != "" && product.Type != filter.Type && product.Type2 != filter.Type {
		return false
	}
	if filter.Style != "" && product.Style != filter.Style && product.Style2 != filter.Style {
		return false
	}
	price := product.UnitPrice()
	if filter.MinPrice > 0 && price < filter.MinPrice {
		return false
	}
	if filter.MaxPrice > 0 && price > filter.MaxPrice {
		return false
	}
	return true
}
