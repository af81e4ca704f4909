package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelPrefix namespaces the change-notification channels so an unrelated
// consumer of the same Redis cannot trigger resyncs.
const channelPrefix = "storefront.kv."

var _ Storage = (*Redis)(nil)

// Redis persists entries as plain keys and fans out change notifications over
// pub/sub, which gives independent processes the same "another context wrote
// the cart" signal a browser tab gets from its storage event.
type Redis struct {
	client *redis.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger,
	}
}

func (s *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to read key", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (s *Redis) Write(ctx context.Context, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Publish(ctx, channelPrefix+key, "set")
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to write key", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Publish(ctx, channelPrefix+key, "del")
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete key", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *Redis) OnChange(key string, fn func()) (func(), error) {
	sub := s.client.Subscribe(context.Background(), channelPrefix+key)

	// Force the subscription onto the wire before returning, so a write that
	// happens right after registration is not missed.
	if _, err := sub.Receive(context.Background()); err != nil {
		_ = sub.Close()
		return nil, err
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		for range sub.Channel() {
			fn()
		}
	}()

	return func() {
		if err := sub.Close(); err != nil {
			s.logger.Warn("Failed to close subscription", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *Redis) Close() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return s.client.Close()
}
