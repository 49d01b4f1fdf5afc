// Package web provides the Web Push (VAPID) gateway.
package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// VapidConfig holds the VAPID signing keys for web push delivery.
type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type Dispatcher struct {
	subscriber string
	privateKey string
	publicKey  string
	logger     *slog.Logger
	httpClient *http.Client
}

func NewDispatcher(cfg VapidConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		subscriber: cfg.SubscriberEmail,
		logger:     logger.With("component", "WebPushDispatcher"),
		httpClient: &http.Client{},
	}
}

// DispatchAlert sends a visible notification to the browser subscription.
func (d *Dispatcher) DispatchAlert(ctx context.Context, sub notification.WebPushSubscription, content notification.NotificationContent, data map[string]string) (string, error) {
	payloadBytes, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{
			"title": content.Title,
			"body":  content.Body,
		},
		"data": data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return d.send(sub, payloadBytes)
}

// DispatchBadge sends a data-only payload carrying the absolute badge count.
// The service worker applies it via the Badging API; nothing is rendered.
func (d *Dispatcher) DispatchBadge(ctx context.Context, sub notification.WebPushSubscription, badge int, data map[string]string) (string, error) {
	payloadBytes, err := json.Marshal(map[string]interface{}{
		"badge": badge,
		"data":  data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return d.send(sub, payloadBytes)
}

func (d *Dispatcher) send(sub notification.WebPushSubscription, payloadBytes []byte) (string, error) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(sub.Keys.P256dh),
			Auth:   base64.RawURLEncoding.EncodeToString(sub.Keys.Auth),
		},
	}

	resp, err := webpush.SendNotification(payloadBytes, s, &webpush.Options{
		Subscriber:      d.subscriber,
		VAPIDPublicKey:  d.publicKey,
		VAPIDPrivateKey: d.privateKey,
		TTL:             60,
		HTTPClient:      d.httpClient,
	})
	if err != nil {
		return "", fmt.Errorf("webpush transport failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return "status:" + strconv.Itoa(resp.StatusCode), nil
	case http.StatusGone, http.StatusNotFound:
		// 410 Gone / 404 Not Found: the subscription is dead.
		return "", fmt.Errorf("%w: push service returned %d", dispatch.ErrTokenNotRegistered, resp.StatusCode)
	default:
		d.logger.Warn("WebPush rejected", "status", resp.StatusCode, "endpoint", sub.Endpoint)
		return "", fmt.Errorf("webpush rejected with status %d", resp.StatusCode)
	}
}

var _ dispatch.WebDispatcher = (*Dispatcher)(nil)
