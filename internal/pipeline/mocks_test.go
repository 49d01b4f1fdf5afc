package pipeline_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Typed Mocks ---

type mockReader struct {
	mock.Mock
}

func (m *mockReader) GetChat(ctx context.Context, chatID string) (*chat.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Chat), args.Error(1)
}

func (m *mockReader) SumUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockReader) GetUser(ctx context.Context, userID string) (*chat.UserRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.UserRecord), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) DispatchAlert(ctx context.Context, token string, content notification.NotificationContent, data map[string]string) (string, error) {
	args := m.Called(ctx, token, content, data)
	return args.String(0), args.Error(1)
}

func (m *mockDispatcher) DispatchBadge(ctx context.Context, token string, badge int, data map[string]string) (string, error) {
	args := m.Called(ctx, token, badge, data)
	return args.String(0), args.Error(1)
}

type mockWebDispatcher struct {
	mock.Mock
}

func (m *mockWebDispatcher) DispatchAlert(ctx context.Context, sub notification.WebPushSubscription, content notification.NotificationContent, data map[string]string) (string, error) {
	args := m.Called(ctx, sub, content, data)
	return args.String(0), args.Error(1)
}

func (m *mockWebDispatcher) DispatchBadge(ctx context.Context, sub notification.WebPushSubscription, badge int, data map[string]string) (string, error) {
	args := m.Called(ctx, sub, badge, data)
	return args.String(0), args.Error(1)
}
