// Package fcm provides the Firebase Cloud Messaging push gateway.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Dispatcher struct {
	client MessagingClient
	logger *slog.Logger
}

// NewDispatcher accepts the concrete client but stores it as the interface.
// Note: *messaging.Client automatically satisfies this interface.
func NewDispatcher(client MessagingClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.With("component", "FCMDispatcher"),
	}
}

// DispatchAlert sends a visible notification with the default sound and a
// badge increment of 1. The APNs section mirrors the top-level notification so
// iOS devices render the alert and bump the badge in one delivery.
func (d *Dispatcher) DispatchAlert(ctx context.Context, token string, content notification.NotificationContent, data map[string]string) (string, error) {
	badge := 1
	msg := &messaging.Message{
		Token: token,
		Data:  data,
		Notification: &messaging.Notification{
			Title: content.Title,
			Body:  content.Body,
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: content.Title,
						Body:  content.Body,
					},
					Badge:            &badge,
					Sound:            "default",
					ContentAvailable: true,
				},
			},
		},
	}
	return d.send(ctx, token, msg)
}

// DispatchBadge sends a silent push carrying only the absolute badge count.
// No notification block: nothing is rendered, only the icon badge changes.
func (d *Dispatcher) DispatchBadge(ctx context.Context, token string, badge int, data map[string]string) (string, error) {
	msg := &messaging.Message{
		Token: token,
		Data:  data,
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-push-type": "background",
				"apns-priority":  "5",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge:            &badge,
					ContentAvailable: true,
				},
			},
		},
	}
	return d.send(ctx, token, msg)
}

func (d *Dispatcher) send(ctx context.Context, token string, msg *messaging.Message) (string, error) {
	id, err := d.client.Send(ctx, msg)
	if err != nil {
		// Dead or malformed tokens are classified, not retried. The token
		// lives on the user document, which this service never writes; the
		// client refreshes it on next launch.
		if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err) {
			d.logger.Info("FCM rejected token", "err", err)
			return "", fmt.Errorf("%w: %s", dispatch.ErrTokenNotRegistered, err)
		}
		return "", fmt.Errorf("fcm transport failed: %w", err)
	}

	d.logger.Debug("FCM message sent", "message_id", id)
	return id, nil
}

var _ dispatch.Dispatcher = (*Dispatcher)(nil)
