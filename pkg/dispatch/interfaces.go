// Package dispatch defines the contracts for the push gateways.
package dispatch

import (
	"context"
	"errors"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// ErrTokenNotRegistered reports that the gateway classified the device token
// as dead (unregistered, invalid, or gone). The caller logs it; the pipelines
// never write token cleanup back to the document store.
var ErrTokenNotRegistered = errors.New("dispatch: token not registered")

// Dispatcher is a gateway that delivers pushes to a single device token
// (e.g. Google's FCM, Apple's APNs).
type Dispatcher interface {
	// DispatchAlert sends a visible notification: title/body from content,
	// default sound, and a badge increment of 1 on the device.
	// The returned receipt is a gateway-specific delivery identifier.
	DispatchAlert(ctx context.Context, token string, content notification.NotificationContent, data map[string]string) (string, error)

	// DispatchBadge sends a silent, data-only push whose sole purpose is to
	// set the OS-level icon badge to the given absolute count.
	DispatchBadge(ctx context.Context, token string, badge int, data map[string]string) (string, error)
}

// WebDispatcher delivers the same two push shapes to a Web Push (VAPID)
// subscription instead of a device token.
type WebDispatcher interface {
	DispatchAlert(ctx context.Context, sub notification.WebPushSubscription, content notification.NotificationContent, data map[string]string) (string, error)
	DispatchBadge(ctx context.Context, sub notification.WebPushSubscription, badge int, data map[string]string) (string, error)
}
