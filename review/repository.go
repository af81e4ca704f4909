// Package review is the customer-review surface of the remote API.
package review

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

const cacheTTL = 5 * time.Minute

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context) ([]*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, reviewID uint64) error
	Stats(ctx context.Context) (*models.ReviewStats, error)
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

func (r *repository) List(ctx context.Context) ([]*models.Review, error) {
	cacheKey := "reviews"
	var reviews []*models.Review

	found, err := r.cache.Get(ctx, cacheKey, &reviews)
	if err != nil {
		r.logger.Warn("Failed to get reviews from cache", zap.Error(err))
	}
	if found {
		return reviews, nil
	}

	var raw json.RawMessage
	if err = r.client.Get(ctx, "/reviews/", &raw); err != nil {
		r.logger.Error("Failed to list reviews", zap.Error(err))
		return nil, err
	}
	reviews = remote.UnwrapList[*models.Review](raw)

	if err = r.cache.Set(ctx, cacheKey, reviews, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache reviews", zap.Error(err))
	}

	return reviews, nil
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	if err := r.client.Post(ctx, "/reviews/", review, review); err != nil {
		r.logger.Error("Failed to create review", zap.Error(err))
		return err
	}
	r.invalidateCache(ctx)
	return nil
}

func (r *repository) Update(ctx context.Context, review *models.Review) error {
	if err := r.client.Put(ctx, fmt.Sprintf("/reviews/%d", review.ID), review, review); err != nil {
		r.logger.Error("Failed to update review", zap.Uint64("review_id", review.ID), zap.Error(err))
		return err
	}
	r.invalidateCache(ctx)
	return nil
}

func (r *repository) Delete(ctx context.Context, reviewID uint64) error {
	if err := r.client.Delete(ctx, fmt.Sprintf("/reviews/%d", reviewID)); err != nil {
		r.logger.Error("Failed to delete review", zap.Uint64("review_id", reviewID), zap.Error(err))
		return err
	}
	r.invalidateCache(ctx)
	return nil
}

func (r *repository) Stats(ctx context.Context) (*models.ReviewStats, error) {
	var stats models.ReviewStats
	if err := r.client.Get(ctx, "/reviews/stats/summary", &stats); err != nil {
		r.logger.Error("Failed to get review stats", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

func (r *repository) invalidateCache(ctx context.Context) {
	if err := r.cache.Delete(ctx, "reviews"); err != nil {
		r.logger.Warn("Failed to invalidate reviews cache", zap.Error(err))
	}
}
