// Package auth keeps the bearer credential and identity fields the storefront
// attaches to remote requests. It persists through the same storage layer as
// the cart and has no dependency on it.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/storage"
)

const (
	keyToken    = "token"
	keyEmail    = "userEmail"
	keyRole     = "userRole"
	keyUsername = "username"
)

// Store holds the signed-in user's credential and identity. A missing or
// unreadable entry simply means "not signed in".
type Store struct {
	store  storage.Storage
	logger *zap.Logger

	mu       sync.Mutex
	token    string
	identity models.Identity
}

func NewStore(ctx context.Context, store storage.Storage, logger *zap.Logger) *Store {
	s := &Store{
		store:  store,
		logger: logger,
	}
	s.restore(ctx)
	return s
}

// restore rebuilds the in-memory session from persisted fields. A session is
// only honored when both a token and some identity survive.
func (s *Store) restore(ctx context.Context) {
	token := s.read(ctx, keyToken)
	email := s.read(ctx, keyEmail)
	username := s.read(ctx, keyUsername)
	if token == "" || (email == "" && username == "") {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = models.Identity{
		Username: username,
		Email:    email,
		Role:     enum.Role(s.read(ctx, keyRole)),
	}
}

// Login persists the credential and identity. An identity containing "@" is
// also recorded as the account email.
func (s *Store) Login(ctx context.Context, token, identity string, role enum.Role) error {
	if !role.Valid() {
		role = enum.RoleCustomer
	}

	s.write(ctx, keyToken, token)
	s.write(ctx, keyRole, string(role))
	s.write(ctx, keyUsername, identity)

	email := ""
	if strings.Contains(identity, "@") {
		email = identity
		s.write(ctx, keyEmail, email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = models.Identity{
		Username: identity,
		Email:    email,
		Role:     role,
	}
	return nil
}

// Logout clears the persisted credential and identity fields.
func (s *Store) Logout(ctx context.Context) {
	for _, key := range []string{keyToken, keyEmail, keyRole, keyUsername} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to clear credential field", zap.String("key", key), zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = models.Identity{}
}

// LoggedIn reports whether a credential is held.
func (s *Store) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Identity returns the signed-in user's identity fields.
func (s *Store) Identity() models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// AuthHeaders builds the header set for an authenticated request: the bearer
// credential, plus a Content-Type when one is supplied.
func (s *Store) AuthHeaders(contentType string) http.Header {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	return headers
}

func (s *Store) read(ctx context.Context, key string) string {
	value, err := s.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to read credential field", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return string(value)
}

func (s *Store) write(ctx context.Context, key, value string) {
	if err := s.store.Write(ctx, key, []byte(value)); err != nil {
		s.logger.Warn("Failed to persist credential field", zap.String("key", key), zap.Error(err))
	}
}
