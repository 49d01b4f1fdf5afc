// Package chat contains the domain models for the TaskMutual chat collections
// and the read contracts the fan-out pipelines depend on.
//
// The documents themselves are owned by the client applications; this service
// only reads them. The one write surface (device registration) is segregated
// into TokenWriter so the trigger pipelines can be wired against Reader alone.
package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// ErrNotFound signals an expected-absence condition: the document does not
// exist. Callers treat this as a soft abort, not a failure.
var ErrNotFound = errors.New("chat: document not found")

// FallbackSenderName is used when a sender's user record is missing or carries
// no name fields. A notification is never dropped because the name is absent.
const FallbackSenderName = "Someone"

// Chat is a two-party conversation document from the "chats" collection.
type Chat struct {
	ID           string         `firestore:"-" json:"-"`
	Participants []string       `firestore:"participants" json:"participants"`
	LastMessage  string         `firestore:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastSenderID string         `firestore:"lastSenderId,omitempty" json:"lastSenderId,omitempty"`
	UpdatedAt    time.Time      `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UnreadCount  map[string]int `firestore:"unreadCount,omitempty" json:"unreadCount,omitempty"`
}

// Recipient resolves the participant who should be notified about a message
// from senderID. ok is false for any malformed chat: fewer or more than two
// participants, a list that does not contain the sender, or two identical
// participant entries.
func (c *Chat) Recipient(senderID string) (string, bool) {
	if len(c.Participants) != 2 {
		return "", false
	}
	senderPresent := false
	recipient := ""
	for _, p := range c.Participants {
		if p == senderID {
			senderPresent = true
		} else {
			recipient = p
		}
	}
	if !senderPresent || recipient == "" {
		return "", false
	}
	return recipient, true
}

// UnreadFor returns the per-user unread count, defaulting to 0 when the map or
// the entry is absent.
func (c *Chat) UnreadFor(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}

// Message is a document from the "chats/{chatId}/messages" subcollection.
// Messages are immutable once created.
type Message struct {
	SenderID  string    `firestore:"senderId" json:"senderId"`
	Text      string    `firestore:"text" json:"text"`
	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// UserRecord is the subset of the "users" document this service consumes.
// A nil/empty FCMToken means the user cannot receive pushes; that is an
// expected state, not an error.
type UserRecord struct {
	FirstName       string                            `firestore:"firstName,omitempty" json:"firstName,omitempty"`
	LastName        string                            `firestore:"lastName,omitempty" json:"lastName,omitempty"`
	FCMToken        string                            `firestore:"fcmToken,omitempty" json:"fcmToken,omitempty"`
	WebSubscription *notification.WebPushSubscription `firestore:"webSubscription,omitempty" json:"webSubscription,omitempty"`
}

// DisplayName joins the name fields with a single space. Empty segments are
// dropped rather than producing stray whitespace; a fully empty record yields
// an empty string and the caller applies FallbackSenderName.
func (u *UserRecord) DisplayName() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{u.FirstName, u.LastName} {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
