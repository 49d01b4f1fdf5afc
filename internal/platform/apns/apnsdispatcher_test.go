package apns

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"
)

// MockAPNSClient definition repeated here for internal test visibility
type MockAPNSClient struct {
	mock.Mock
}

func (m *MockAPNSClient) PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	args := m.Called(n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apns2.Response), args.Error(1)
}

func newTestDispatcher(client APNSClient) *Dispatcher {
	return &Dispatcher{
		client: client,
		topic:  "com.taskmutual.app",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// payloadJSON renders the builder the same way the transport would.
func payloadJSON(t *testing.T, n *apns2.Notification) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(n.Payload)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func TestDispatchAlert_Internal(t *testing.T) {
	ctx := context.Background()
	content := notification.NotificationContent{Title: "Alice Archer", Body: "hello"}
	data := map[string]string{"chatId": "C1"}

	t.Run("Happy path", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		dispatcher := newTestDispatcher(mockClient)

		mockResponse := &apns2.Response{StatusCode: http.StatusOK, ApnsID: "apns-1"}
		mockClient.On("PushWithContext", mock.MatchedBy(func(n *apns2.Notification) bool {
			if n.DeviceToken != "token-1" || n.Topic != "com.taskmutual.app" {
				return false
			}
			aps := payloadJSON(t, n)["aps"].(map[string]interface{})
			return aps["badge"] == float64(1) && aps["sound"] == "default"
		})).Return(mockResponse, nil)

		receipt, err := dispatcher.DispatchAlert(ctx, "token-1", content, data)

		require.NoError(t, err)
		assert.Equal(t, "apns-1", receipt)
		mockClient.AssertExpectations(t)
	})

	t.Run("Bad device token is classified", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		dispatcher := newTestDispatcher(mockClient)

		mockResponse := &apns2.Response{
			StatusCode: http.StatusBadRequest,
			Reason:     apns2.ReasonBadDeviceToken,
		}
		mockClient.On("PushWithContext", mock.Anything).Return(mockResponse, nil)

		_, err := dispatcher.DispatchAlert(ctx, "bad-token", content, data)

		require.Error(t, err)
		assert.True(t, errors.Is(err, dispatch.ErrTokenNotRegistered))
	})

	t.Run("Transport failure propagates", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		dispatcher := newTestDispatcher(mockClient)

		mockClient.On("PushWithContext", mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := dispatcher.DispatchAlert(ctx, "token-1", content, data)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport failed")
	})
}

func TestDispatchBadge_Internal(t *testing.T) {
	ctx := context.Background()

	t.Run("Background push with absolute badge", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		dispatcher := newTestDispatcher(mockClient)

		mockResponse := &apns2.Response{StatusCode: http.StatusOK, ApnsID: "apns-2"}
		mockClient.On("PushWithContext", mock.MatchedBy(func(n *apns2.Notification) bool {
			if n.PushType != apns2.PushTypeBackground || n.Priority != apns2.PriorityLow {
				return false
			}
			aps := payloadJSON(t, n)["aps"].(map[string]interface{})
			_, hasAlert := aps["alert"]
			return !hasAlert && aps["badge"] == float64(7) && aps["content-available"] == float64(1)
		})).Return(mockResponse, nil)

		receipt, err := dispatcher.DispatchBadge(ctx, "token-1", 7, map[string]string{"badgeCount": "7"})

		require.NoError(t, err)
		assert.Equal(t, "apns-2", receipt)
		mockClient.AssertExpectations(t)
	})

	t.Run("Unregistered token is classified", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		dispatcher := newTestDispatcher(mockClient)

		mockResponse := &apns2.Response{
			StatusCode: http.StatusGone,
			Reason:     apns2.ReasonUnregistered,
		}
		mockClient.On("PushWithContext", mock.Anything).Return(mockResponse, nil)

		_, err := dispatcher.DispatchBadge(ctx, "dead-token", 1, nil)

		require.Error(t, err)
		assert.True(t, errors.Is(err, dispatch.ErrTokenNotRegistered))
	})
}
