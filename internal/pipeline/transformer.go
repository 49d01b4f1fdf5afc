// Package pipeline contains the trigger logic of the service: the transformers
// that decode document-change events and the processors that fan out pushes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
)

// MessageCreatedTransformer decodes a message-creation event from its raw
// Pub/Sub payload and validates the chats/{chatId}/messages/{messageId} path.
//
// A failure returns skip=true so the StreamingService nacks the message and
// the platform's dead-letter policy takes over; malformed events never reach
// a processor.
func MessageCreatedTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*chatevent.MessageCreated, bool, error) {
	event, err := chatevent.ParseMessageCreated(msg.Payload)
	if err != nil {
		return nil, true, fmt.Errorf("failed to decode message-created event %s: %w", msg.ID, err)
	}
	return event, false, nil
}

// ChatUpdatedTransformer decodes a chat-update event, requiring both the
// before and after document images.
func ChatUpdatedTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*chatevent.ChatUpdated, bool, error) {
	event, err := chatevent.ParseChatUpdated(msg.Payload)
	if err != nil {
		return nil, true, fmt.Errorf("failed to decode chat-updated event %s: %w", msg.ID, err)
	}
	return event, false, nil
}
