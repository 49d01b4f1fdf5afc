// Package apns provides a direct Apple Push Notification Service gateway, an
// alternative to routing iOS pushes through FCM.
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

type Dispatcher struct {
	client APNSClient
	topic  string // The App Bundle ID (e.g. com.taskmutual.app)
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw string content of the .p8 file
	P8KeyContent string
}

// NewDispatcher creates a configured APNs dispatcher.
// It parses the P8 key immediately to fail fast on startup if credentials are bad.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	return &Dispatcher{
		client: apns2.NewTokenClient(tokenSource),
		topic:  cfg.BundleID,
		logger: logger.With("component", "APNSDispatcher"),
	}, nil
}

// DispatchAlert sends a visible notification with the default sound and a
// badge increment of 1.
func (d *Dispatcher) DispatchAlert(ctx context.Context, deviceToken string, content notification.NotificationContent, data map[string]string) (string, error) {
	sound := content.Sound
	if sound == "" {
		sound = "default"
	}
	builder := payload.NewPayload().
		AlertTitle(content.Title).
		AlertBody(content.Body).
		Sound(sound).
		Badge(1).
		ContentAvailable()
	for k, v := range data {
		builder.Custom(k, v)
	}

	return d.push(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       d.topic,
		Payload:     builder,
	})
}

// DispatchBadge sends a background push that only updates the icon badge.
func (d *Dispatcher) DispatchBadge(ctx context.Context, deviceToken string, badge int, data map[string]string) (string, error) {
	builder := payload.NewPayload().
		Badge(badge).
		ContentAvailable()
	for k, v := range data {
		builder.Custom(k, v)
	}

	return d.push(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       d.topic,
		Payload:     builder,
		PushType:    apns2.PushTypeBackground,
		Priority:    apns2.PriorityLow,
	})
}

func (d *Dispatcher) push(ctx context.Context, n *apns2.Notification) (string, error) {
	res, err := d.client.PushWithContext(ctx, n)
	if err != nil {
		return "", fmt.Errorf("apns transport failed: %w", err)
	}

	if res.Sent() {
		return res.ApnsID, nil
	}

	// Map APNs rejection reasons onto our dead-token classification.
	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return "", fmt.Errorf("%w: apns reason %s", dispatch.ErrTokenNotRegistered, res.Reason)
	default:
		// Other rejections (TopicDisallowed, PayloadEmpty) mean our
		// configuration is wrong, not that the token is dead.
		d.logger.Warn("APNs rejected notification", "reason", res.Reason, "status", res.StatusCode)
		return "", fmt.Errorf("apns rejected notification: %s", res.Reason)
	}
}

var _ dispatch.Dispatcher = (*Dispatcher)(nil)
