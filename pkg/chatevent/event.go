// Package chatevent defines the wire envelope for document-change events and
// the typed events the pipelines consume.
//
// The document store's change capture delivers one event per document
// create/update, at-least-once. The envelope carries the document path plus
// either the created value or the before/after images of an update.
package chatevent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
)

// MessageCreated is the typed form of a creation event at
// chats/{chatId}/messages/{messageId}.
type MessageCreated struct {
	ChatID    string
	MessageID string
	Message   chat.Message
}

// ChatUpdated is the typed form of an update event at chats/{chatId}.
// Both images are always populated; an update event missing either is invalid.
type ChatUpdated struct {
	ChatID string
	Before chat.Chat
	After  chat.Chat
}

// envelope mirrors the raw JSON of a change event. Value is set for creates;
// Before/After for updates.
type envelope struct {
	Path   string          `json:"path"`
	Value  json.RawMessage `json:"value,omitempty"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// ParseMessagePath validates a path against the pattern
// chats/{chatId}/messages/{messageId}.
func ParseMessagePath(path string) (chatID, messageID string, err error) {
	segs := strings.Split(path, "/")
	if len(segs) != 4 || segs[0] != "chats" || segs[2] != "messages" || segs[1] == "" || segs[3] == "" {
		return "", "", fmt.Errorf("path %q does not match chats/{chatId}/messages/{messageId}", path)
	}
	return segs[1], segs[3], nil
}

// ParseChatPath validates a path against the pattern chats/{chatId}.
func ParseChatPath(path string) (chatID string, err error) {
	segs := strings.Split(path, "/")
	if len(segs) != 2 || segs[0] != "chats" || segs[1] == "" {
		return "", fmt.Errorf("path %q does not match chats/{chatId}", path)
	}
	return segs[1], nil
}

// ParseMessageCreated decodes a creation event payload.
func ParseMessageCreated(payload []byte) (*MessageCreated, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}

	chatID, messageID, err := ParseMessagePath(env.Path)
	if err != nil {
		return nil, err
	}
	if len(env.Value) == 0 {
		return nil, fmt.Errorf("creation event for %q has no document value", env.Path)
	}

	event := &MessageCreated{ChatID: chatID, MessageID: messageID}
	if err := json.Unmarshal(env.Value, &event.Message); err != nil {
		return nil, fmt.Errorf("malformed message document in event for %q: %w", env.Path, err)
	}
	return event, nil
}

// ParseChatUpdated decodes an update event payload. Both the before and after
// images must be present.
func ParseChatUpdated(payload []byte) (*ChatUpdated, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}

	chatID, err := ParseChatPath(env.Path)
	if err != nil {
		return nil, err
	}
	if len(env.Before) == 0 || len(env.After) == 0 {
		return nil, fmt.Errorf("update event for %q is missing a document image", env.Path)
	}

	event := &ChatUpdated{ChatID: chatID}
	if err := json.Unmarshal(env.Before, &event.Before); err != nil {
		return nil, fmt.Errorf("malformed before image in event for %q: %w", env.Path, err)
	}
	if err := json.Unmarshal(env.After, &event.After); err != nil {
		return nil, fmt.Errorf("malformed after image in event for %q: %w", env.Path, err)
	}
	event.Before.ID = chatID
	event.After.ID = chatID
	return event, nil
}
