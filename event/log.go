package event

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/storage"
)

var _ Repository = (*repository)(nil)

// Repository records which payment events have been seen, persisted through
// the same storage layer as the cart so restarts do not replay handlers.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	MarkAsProcessed(ctx context.Context, id string) error
}

type repository struct {
	store  storage.Storage
	logger *zap.Logger
}

func NewRepository(store storage.Storage, logger *zap.Logger) (Repository, error) {
	return &repository{
		store:  store,
		logger: logger,
	}, nil
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err = r.store.Write(ctx, eventKey(event.ID), payload); err != nil {
		r.logger.Error("Failed to record event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	raw, err := r.store.Read(ctx, eventKey(id))
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err = json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkAsProcessed(ctx context.Context, id string) error {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	event.Processed = true
	event.UpdatedAt = time.Now()
	return r.Create(ctx, event)
}

func eventKey(id string) string {
	return "events:" + id
}
