package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// Push data payload types, consumed by the mobile client's tap handler.
const (
	PushTypeChatMessage = "chat_message"
	PushTypeBadgeUpdate = "badge_update"
)

// NewMessageProcessor creates the handler for new chat messages: resolve the
// recipient, resolve the sender's display name, and send one visible push.
//
// Every lookup failure is a soft abort: logged, zero pushes, nil return.
// Dispatch failures are logged and swallowed too. The processor always acks —
// a duplicate push on redelivery is a worse user experience than an occasional
// missed one, and the store is never written, so redundant runs are harmless.
func NewMessageProcessor(
	store chat.Reader,
	dispatcher dispatch.Dispatcher,
	webDispatcher dispatch.WebDispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[chatevent.MessageCreated] {

	return func(ctx context.Context, original messagepipeline.Message, event *chatevent.MessageCreated) error {
		procLogger := logger.With(
			"chat_id", event.ChatID,
			"message_id", event.MessageID,
			"sender_id", event.Message.SenderID,
			"pubsub_msg_id", original.ID,
		)

		// 1. Resolve the chat. A missing chat usually means it was deleted
		// while the message event was in flight.
		conversation, err := store.GetChat(ctx, event.ChatID)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				procLogger.Info("Chat no longer exists; dropping notification.")
			} else {
				procLogger.Error("Failed to fetch chat", "err", err)
			}
			return nil
		}

		// 2. Resolve the recipient from the two-party participant list.
		recipientID, ok := conversation.Recipient(event.Message.SenderID)
		if !ok {
			procLogger.Warn("Chat participants do not yield a recipient; dropping notification.",
				"participants", conversation.Participants)
			return nil
		}
		procLogger = procLogger.With("recipient_id", recipientID)

		// 3. Resolve the sender's display name, falling back to a placeholder.
		senderName := chat.FallbackSenderName
		sender, err := store.GetUser(ctx, event.Message.SenderID)
		switch {
		case err == nil:
			if name := sender.DisplayName(); name != "" {
				senderName = name
			}
		case errors.Is(err, chat.ErrNotFound):
			procLogger.Info("Sender record missing; using fallback name.")
		default:
			procLogger.Warn("Failed to fetch sender record; using fallback name.", "err", err)
		}

		// 4. Resolve the recipient's delivery targets.
		recipient, err := store.GetUser(ctx, recipientID)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				procLogger.Info("Recipient record missing; dropping notification.")
			} else {
				procLogger.Error("Failed to fetch recipient record", "err", err)
			}
			return nil
		}
		if recipient.FCMToken == "" && recipient.WebSubscription == nil {
			procLogger.Info("Recipient has no registered device; dropping notification.")
			return nil
		}

		// 5. Build and send the visible push.
		content := notification.NotificationContent{
			Title: senderName,
			Body:  event.Message.Text,
			Sound: "default",
		}
		data := map[string]string{
			"type":       PushTypeChatMessage,
			"chatId":     event.ChatID,
			"senderId":   event.Message.SenderID,
			"senderName": senderName,
		}

		if recipient.FCMToken != "" {
			receipt, err := dispatcher.DispatchAlert(ctx, recipient.FCMToken, content, data)
			switch {
			case errors.Is(err, dispatch.ErrTokenNotRegistered):
				procLogger.Info("Recipient token no longer registered.")
			case err != nil:
				procLogger.Error("Push dispatch failed", "err", err)
			default:
				procLogger.Info("Push dispatched", "receipt", receipt)
			}
		}

		if recipient.WebSubscription != nil {
			receipt, err := webDispatcher.DispatchAlert(ctx, *recipient.WebSubscription, content, data)
			switch {
			case errors.Is(err, dispatch.ErrTokenNotRegistered):
				procLogger.Info("Recipient web subscription expired.")
			case err != nil:
				procLogger.Error("Web push dispatch failed", "err", err)
			default:
				procLogger.Info("Web push dispatched", "receipt", receipt)
			}
		}

		return nil
	}
}
