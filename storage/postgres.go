package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"gofalre.io/storefront/driver"
)

// listenChannel is the single NOTIFY channel; the payload is the changed key.
const listenChannel = "storefront_kv"

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var _ Storage = (*Postgres)(nil)

// Postgres keeps entries in a two-column table. Writes and their pg_notify
// run in one transaction, so a listener that wakes up always finds the new
// value already committed.
type Postgres struct {
	conn   driver.PostgresPool
	tm     *driver.TransactionManager
	logger *zap.Logger

	cancelListen context.CancelFunc

	mu        sync.Mutex
	listening bool
	watches   map[string]map[int]func()
	nextID    int
}

func NewPostgres(ctx context.Context, conn driver.PostgresPool, logger *zap.Logger) (*Postgres, error) {
	if _, err := conn.Exec(ctx, createEntriesTable); err != nil {
		return nil, fmt.Errorf("create kv_entries: %w", err)
	}

	return &Postgres{
		conn:    conn,
		tm:      driver.NewTransactionManager(conn, logger),
		logger:  logger,
		watches: make(map[string]map[int]func()),
	}, nil
}

func (s *Postgres) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to read key", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (s *Postgres) Write(ctx context.Context, key string, value []byte) error {
	return s.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, value); err != nil {
			return fmt.Errorf("upsert %q: %w", key, err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, listenChannel, key); err != nil {
			return fmt.Errorf("notify %q: %w", key, err)
		}
		return nil
	})
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	return s.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, listenChannel, key); err != nil {
			return fmt.Errorf("notify %q: %w", key, err)
		}
		return nil
	})
}

func (s *Postgres) OnChange(key string, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureListenerLocked(); err != nil {
		return nil, err
	}

	if s.watches[key] == nil {
		s.watches[key] = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.watches[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watches[key], id)
	}, nil
}

func (s *Postgres) Close() error {
	s.mu.Lock()
	cancel := s.cancelListen
	s.cancelListen = nil
	s.listening = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// ensureListenerLocked starts the single LISTEN connection on first use.
func (s *Postgres) ensureListenerLocked() error {
	if s.listening {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	conn, err := s.conn.Acquire(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err = conn.Exec(ctx, `LISTEN `+listenChannel); err != nil {
		conn.Release()
		cancel()
		return fmt.Errorf("listen %s: %w", listenChannel, err)
	}

	s.cancelListen = cancel
	s.listening = true

	go func() {
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("Notification wait failed", zap.Error(err))
				}
				return
			}
			s.dispatch(notification.Payload)
		}
	}()

	return nil
}

func (s *Postgres) dispatch(key string) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.watches[key]))
	for _, fn := range s.watches[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
