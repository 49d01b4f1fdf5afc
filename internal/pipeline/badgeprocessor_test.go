package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskmutual/go-chat-notifier/internal/pipeline"
	"github.com/taskmutual/go-chat-notifier/pkg/chat"
	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
)

func chatUpdate(before, after map[string]int) *chatevent.ChatUpdated {
	return &chatevent.ChatUpdated{
		ChatID: "C1",
		Before: chat.Chat{ID: "C1", Participants: []string{"alice", "bob"}, UnreadCount: before},
		After:  chat.Chat{ID: "C1", Participants: []string{"alice", "bob"}, UnreadCount: after},
	}
}

func TestBadgeProcessor(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("Changed count triggers full recompute and silent push", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		// Bob read chat C1 (3 -> 0); his other chat C2 still has 5 unread.
		event := chatUpdate(map[string]int{"bob": 3}, map[string]int{"bob": 0})

		store.On("SumUnread", mock.Anything, "bob").Return(5, nil)
		store.On("GetUser", mock.Anything, "bob").Return(&chat.UserRecord{FCMToken: "tok-bob"}, nil)

		dispatcher.On("DispatchBadge", mock.Anything, "tok-bob", 5, map[string]string{
			"type":       pipeline.PushTypeBadgeUpdate,
			"badgeCount": "5",
		}).Return("receipt-1", nil)

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
		// Alice's count did not change: no lookup, no push for her.
		store.AssertNotCalled(t, "SumUnread", mock.Anything, "alice")
	})

	t.Run("Unchanged counts are skipped entirely", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		event := chatUpdate(map[string]int{"bob": 2}, map[string]int{"bob": 2})

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
		store.AssertNotCalled(t, "SumUnread")
		dispatcher.AssertNotCalled(t, "DispatchBadge")
	})

	t.Run("Missing map entries default to zero", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		// unreadCount absent before, {bob: 1} after: only bob changed.
		event := chatUpdate(nil, map[string]int{"bob": 1})

		store.On("SumUnread", mock.Anything, "bob").Return(1, nil)
		store.On("GetUser", mock.Anything, "bob").Return(&chat.UserRecord{FCMToken: "tok-bob"}, nil)
		dispatcher.On("DispatchBadge", mock.Anything, "tok-bob", 1, mock.Anything).Return("r", nil)

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
		store.AssertNotCalled(t, "SumUnread", mock.Anything, "alice")
	})

	t.Run("Participant without token is skipped without error", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		event := chatUpdate(map[string]int{"bob": 0}, map[string]int{"bob": 4})

		store.On("SumUnread", mock.Anything, "bob").Return(4, nil)
		store.On("GetUser", mock.Anything, "bob").Return(&chat.UserRecord{}, nil)

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
		dispatcher.AssertNotCalled(t, "DispatchBadge")
	})

	t.Run("One participant's failure does not block the other", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		// Both counts changed; alice's recompute fails, bob's must still run.
		event := chatUpdate(
			map[string]int{"alice": 0, "bob": 0},
			map[string]int{"alice": 1, "bob": 2},
		)

		store.On("SumUnread", mock.Anything, "alice").Return(0, errors.New("query failed"))
		store.On("SumUnread", mock.Anything, "bob").Return(2, nil)
		store.On("GetUser", mock.Anything, "bob").Return(&chat.UserRecord{FCMToken: "tok-bob"}, nil)
		dispatcher.On("DispatchBadge", mock.Anything, "tok-bob", 2, mock.Anything).Return("r", nil)

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("Badge push failure is isolated and swallowed", func(t *testing.T) {
		store := new(mockReader)
		dispatcher := new(mockDispatcher)
		webDispatcher := new(mockWebDispatcher)

		event := chatUpdate(map[string]int{"bob": 0}, map[string]int{"bob": 1})

		store.On("SumUnread", mock.Anything, "bob").Return(1, nil)
		store.On("GetUser", mock.Anything, "bob").Return(&chat.UserRecord{FCMToken: "tok-bob"}, nil)
		dispatcher.On("DispatchBadge", mock.Anything, "tok-bob", 1, mock.Anything).
			Return("", errors.New("gateway down"))

		processor := pipeline.NewBadgeProcessor(store, dispatcher, webDispatcher, logger)
		err := processor(ctx, messagepipeline.Message{}, event)

		require.NoError(t, err)
	})
}
