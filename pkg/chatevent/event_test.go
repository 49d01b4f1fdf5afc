package chatevent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmutual/go-chat-notifier/pkg/chatevent"
)

func TestParseMessagePath(t *testing.T) {
	testCases := []struct {
		name        string
		path        string
		expectError bool
		chatID      string
		messageID   string
	}{
		{"Valid path", "chats/C1/messages/M1", false, "C1", "M1"},
		{"Chat path only", "chats/C1", true, "", ""},
		{"Wrong root collection", "rooms/C1/messages/M1", true, "", ""},
		{"Wrong subcollection", "chats/C1/replies/M1", true, "", ""},
		{"Empty chat id", "chats//messages/M1", true, "", ""},
		{"Empty message id", "chats/C1/messages/", true, "", ""},
		{"Too many segments", "chats/C1/messages/M1/extra", true, "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chatID, messageID, err := chatevent.ParseMessagePath(tc.path)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.chatID, chatID)
			assert.Equal(t, tc.messageID, messageID)
		})
	}
}

func TestParseChatPath(t *testing.T) {
	chatID, err := chatevent.ParseChatPath("chats/C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", chatID)

	_, err = chatevent.ParseChatPath("chats/C1/messages/M1")
	assert.Error(t, err)

	_, err = chatevent.ParseChatPath("users/alice")
	assert.Error(t, err)
}

func TestParseMessageCreated(t *testing.T) {
	t.Run("Valid event", func(t *testing.T) {
		payload := []byte(`{
			"path": "chats/C1/messages/M1",
			"value": {"senderId": "alice", "text": "hello"}
		}`)

		event, err := chatevent.ParseMessageCreated(payload)
		require.NoError(t, err)
		assert.Equal(t, "C1", event.ChatID)
		assert.Equal(t, "M1", event.MessageID)
		assert.Equal(t, "alice", event.Message.SenderID)
		assert.Equal(t, "hello", event.Message.Text)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		_, err := chatevent.ParseMessageCreated([]byte(`{"this is not valid json"`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed event envelope")
	})

	t.Run("Missing document value", func(t *testing.T) {
		_, err := chatevent.ParseMessageCreated([]byte(`{"path": "chats/C1/messages/M1"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no document value")
	})

	t.Run("Path pattern mismatch", func(t *testing.T) {
		_, err := chatevent.ParseMessageCreated([]byte(`{"path": "chats/C1", "value": {}}`))
		assert.Error(t, err)
	})
}

func TestParseChatUpdated(t *testing.T) {
	t.Run("Valid event", func(t *testing.T) {
		payload := []byte(`{
			"path": "chats/C1",
			"before": {"participants": ["alice","bob"], "unreadCount": {"bob": 3}},
			"after":  {"participants": ["alice","bob"], "unreadCount": {"bob": 0}}
		}`)

		event, err := chatevent.ParseChatUpdated(payload)
		require.NoError(t, err)
		assert.Equal(t, "C1", event.ChatID)
		assert.Equal(t, "C1", event.Before.ID)
		assert.Equal(t, "C1", event.After.ID)
		assert.Equal(t, 3, event.Before.UnreadFor("bob"))
		assert.Equal(t, 0, event.After.UnreadFor("bob"))
	})

	t.Run("Missing before image", func(t *testing.T) {
		payload := []byte(`{"path": "chats/C1", "after": {"participants": ["alice","bob"]}}`)
		_, err := chatevent.ParseChatUpdated(payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing a document image")
	})

	t.Run("Missing after image", func(t *testing.T) {
		payload := []byte(`{"path": "chats/C1", "before": {"participants": ["alice","bob"]}}`)
		_, err := chatevent.ParseChatUpdated(payload)
		assert.Error(t, err)
	})

	t.Run("Message path rejected", func(t *testing.T) {
		payload := []byte(`{"path": "chats/C1/messages/M1", "before": {}, "after": {}}`)
		_, err := chatevent.ParseChatUpdated(payload)
		assert.Error(t, err)
	})
}
