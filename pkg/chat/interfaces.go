package chat

import (
	"context"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// Reader is the read-only view of the document store the pipelines run on.
type Reader interface {
	// GetChat fetches a chat by identifier. Returns ErrNotFound when the
	// document does not exist (e.g. deleted concurrently with a message write).
	GetChat(ctx context.Context, chatID string) (*Chat, error)

	// SumUnread recomputes the user's total unread count across every chat
	// they participate in, at the time of the query. Missing per-chat entries
	// count as 0. This is always a full recompute from source, never a delta.
	SumUnread(ctx context.Context, userID string) (int, error)

	// GetUser fetches the notification-relevant subset of a user document.
	// Returns ErrNotFound for a missing user.
	GetUser(ctx context.Context, userID string) (*UserRecord, error)
}

// TokenWriter manages the push-delivery fields on a user document. Only the
// registration API writes through this; the trigger pipelines never do.
type TokenWriter interface {
	SetFCMToken(ctx context.Context, userID string, token string) error
	ClearFCMToken(ctx context.Context, userID string) error
	SetWebSubscription(ctx context.Context, userID string, sub notification.WebPushSubscription) error
	ClearWebSubscription(ctx context.Context, userID string) error
}
