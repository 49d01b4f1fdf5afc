package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// NewBadgeProcessor creates the handler for chat updates: for each participant
// whose per-chat unread count changed, recompute their total unread count
// across all chats and push it as a silent badge update.
//
// The total is always recomputed from the store at query time, never derived
// incrementally from the event. Concurrent invocations may race, but each one
// reports the true total it observed, so the badge converges to the correct
// value regardless of interleaving.
//
// Per-participant failures are isolated: one participant's missing token or
// failed push never blocks the other's update.
func NewBadgeProcessor(
	store chat.Reader,
	dispatcher dispatch.Dispatcher,
	webDispatcher dispatch.WebDispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[chatevent.ChatUpdated] {

	return func(ctx context.Context, original messagepipeline.Message, event *chatevent.ChatUpdated) error {
		procLogger := logger.With(
			"chat_id", event.ChatID,
			"pubsub_msg_id", original.ID,
		)

		for _, participant := range event.After.Participants {
			before := event.Before.UnreadFor(participant)
			after := event.After.UnreadFor(participant)
			if before == after {
				continue
			}

			pLogger := procLogger.With("participant_id", participant)

			total, err := store.SumUnread(ctx, participant)
			if err != nil {
				pLogger.Error("Failed to recompute unread total; skipping participant.", "err", err)
				continue
			}

			user, err := store.GetUser(ctx, participant)
			if err != nil {
				if errors.Is(err, chat.ErrNotFound) {
					pLogger.Info("Participant record missing; skipping badge update.")
				} else {
					pLogger.Error("Failed to fetch participant record; skipping badge update.", "err", err)
				}
				continue
			}
			if user.FCMToken == "" && user.WebSubscription == nil {
				pLogger.Info("Participant has no registered device; skipping badge update.")
				continue
			}

			data := map[string]string{
				"type":       PushTypeBadgeUpdate,
				"badgeCount": strconv.Itoa(total),
			}

			if user.FCMToken != "" {
				receipt, err := dispatcher.DispatchBadge(ctx, user.FCMToken, total, data)
				switch {
				case errors.Is(err, dispatch.ErrTokenNotRegistered):
					pLogger.Info("Participant token no longer registered.")
				case err != nil:
					pLogger.Error("Badge dispatch failed", "err", err)
				default:
					pLogger.Info("Badge dispatched", "badge", total, "receipt", receipt)
				}
			}

			if user.WebSubscription != nil {
				receipt, err := webDispatcher.DispatchBadge(ctx, *user.WebSubscription, total, data)
				switch {
				case errors.Is(err, dispatch.ErrTokenNotRegistered):
					pLogger.Info("Participant web subscription expired.")
				case err != nil:
					pLogger.Error("Web badge dispatch failed", "err", err)
				default:
					pLogger.Info("Web badge dispatched", "badge", total, "receipt", receipt)
				}
			}
		}

		return nil
	}
}
