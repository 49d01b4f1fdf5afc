// Package cache adds a Redis read-aside layer on top of the Firestore store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// realStore is the full surface the decorator wraps.
type realStore interface {
	chat.Reader
	chat.TokenWriter
}

// CachedUserStore is a decorator that caches user lookups.
//
// Only GetUser is cached: it is hit up to three times per message event and
// token/name fields change rarely. GetChat and SumUnread always pass through
// to the source store, because badge totals must be recomputed from current
// store state on every invocation.
type CachedUserStore struct {
	realStore realStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedUserStore(store realStore, cache CacheClient, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{
		realStore: store,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATHS ---

func (s *CachedUserStore) GetUser(ctx context.Context, userID string) (*chat.UserRecord, error) {
	key := s.cacheKey(userID)

	var cached chat.UserRecord
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	fresh, err := s.realStore.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction. If Redis is down we just
	// serve from the source store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

// GetChat is a pass-through; chat documents are never cached.
func (s *CachedUserStore) GetChat(ctx context.Context, chatID string) (*chat.Chat, error) {
	return s.realStore.GetChat(ctx, chatID)
}

// SumUnread is a pass-through: every invocation recomputes from source state.
func (s *CachedUserStore) SumUnread(ctx context.Context, userID string) (int, error) {
	return s.realStore.SumUnread(ctx, userID)
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (s *CachedUserStore) SetFCMToken(ctx context.Context, userID string, token string) error {
	if err := s.realStore.SetFCMToken(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// ClearFCMToken must invalidate even though the DB write succeeded: a user
// disabling notifications expects them to stop immediately, not at TTL expiry.
func (s *CachedUserStore) ClearFCMToken(ctx context.Context, userID string) error {
	if err := s.realStore.ClearFCMToken(ctx, userID); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedUserStore) SetWebSubscription(ctx context.Context, userID string, sub notification.WebPushSubscription) error {
	if err := s.realStore.SetWebSubscription(ctx, userID, sub); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedUserStore) ClearWebSubscription(ctx context.Context, userID string) error {
	if err := s.realStore.ClearWebSubscription(ctx, userID); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// --- Helpers ---

func (s *CachedUserStore) invalidate(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, s.cacheKey(userID))
}

func (s *CachedUserStore) cacheKey(userID string) string {
	return fmt.Sprintf("notify:user:%s", userID)
}

var (
	_ chat.Reader      = (*CachedUserStore)(nil)
	_ chat.TokenWriter = (*CachedUserStore)(nil)
)
