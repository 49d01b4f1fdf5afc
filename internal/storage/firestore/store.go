// Package firestore implements the document store access layer over the
// chats, chats/{id}/messages and users collections.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
)

const (
	chatsCollection = "chats"
	usersCollection = "users"

	fcmTokenField        = "fcmToken"
	webSubscriptionField = "webSubscription"
	participantsField    = "participants"
)

// Store implements chat.Reader and chat.TokenWriter using Google Cloud Firestore.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// GetChat fetches a chat document, mapping gRPC NotFound to chat.ErrNotFound.
func (s *Store) GetChat(ctx context.Context, chatID string) (*chat.Chat, error) {
	doc, err := s.client.Collection(chatsCollection).Doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch chat %s: %w", chatID, err)
	}

	var c chat.Chat
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to parse chat %s: %w", chatID, err)
	}
	c.ID = doc.Ref.ID
	return &c, nil
}

// SumUnread totals the user's unread count across every chat they participate
// in, as of this query. Corrupt rows are skipped rather than failing the sum.
func (s *Store) SumUnread(ctx context.Context, userID string) (int, error) {
	iter := s.client.Collection(chatsCollection).
		Where(participantsField, "array-contains", userID).
		Documents(ctx)
	defer iter.Stop()

	total := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to iterate chats for %s: %w", userID, err)
		}

		var c chat.Chat
		if err := doc.DataTo(&c); err != nil {
			continue
		}
		total += c.UnreadFor(userID)
	}
	return total, nil
}

// GetUser fetches the notification-relevant subset of a user document.
func (s *Store) GetUser(ctx context.Context, userID string) (*chat.UserRecord, error) {
	doc, err := s.userRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	var u chat.UserRecord
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to parse user %s: %w", userID, err)
	}
	return &u, nil
}

// --- Registration writes (chat.TokenWriter) ---

// SetFCMToken upserts the token field. MergeAll keeps the rest of the user
// document intact and tolerates a document that does not exist yet.
func (s *Store) SetFCMToken(ctx context.Context, userID string, token string) error {
	_, err := s.userRef(userID).Set(ctx, map[string]interface{}{
		fcmTokenField: token,
	}, firestore.MergeAll)
	return err
}

func (s *Store) ClearFCMToken(ctx context.Context, userID string) error {
	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: fcmTokenField, Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return nil // already gone; unregister is idempotent
	}
	return err
}

func (s *Store) SetWebSubscription(ctx context.Context, userID string, sub notification.WebPushSubscription) error {
	_, err := s.userRef(userID).Set(ctx, map[string]interface{}{
		webSubscriptionField: sub,
	}, firestore.MergeAll)
	return err
}

func (s *Store) ClearWebSubscription(ctx context.Context, userID string) error {
	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: webSubscriptionField, Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (s *Store) userRef(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

var (
	_ chat.Reader      = (*Store)(nil)
	_ chat.TokenWriter = (*Store)(nil)
)
