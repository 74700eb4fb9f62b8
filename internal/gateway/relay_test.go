package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/identity"
	"github.com/teslo-shop/realtime-gateway/internal/realtime"
)

func chatMessages(transport *fakeTransport) []realtime.ChatMessage {
	var messages []realtime.ChatMessage
	for _, event := range transport.Events() {
		if event.Name != realtime.EventMessageFromServer {
			continue
		}
		messages = append(messages, event.Payload.(realtime.ChatMessage))
	}

	return messages
}

func newTestRelay(t *testing.T) (*Relay, *realtime.InMemoryRegistry) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	registry := realtime.NewInMemoryRegistry(logger)

	return NewRelay(logger, registry), registry
}

func TestRelay_Relay(t *testing.T) {
	ann := identity.Identity{UserId: "u1", FullName: "Ann", IsActive: true}
	ben := identity.Identity{UserId: "u2", FullName: "Ben", IsActive: true}

	t.Run("broadcasts to every connection including the sender", func(t *testing.T) {
		relay, registry := newTestRelay(t)
		sender := &fakeTransport{}
		other := &fakeTransport{}
		assert.NoError(t, registry.Register("c1", sender, ann))
		assert.NoError(t, registry.Register("c2", other, ben))

		relay.Relay("c1", NewMessage{Id: "1", Message: "hi"})

		expected := realtime.ChatMessage{FullName: "Ann", Message: "hi"}
		assert.Equal(t, []realtime.ChatMessage{expected}, chatMessages(sender))
		assert.Equal(t, []realtime.ChatMessage{expected}, chatMessages(other))
	})

	t.Run("replaces an empty message with the placeholder", func(t *testing.T) {
		relay, registry := newTestRelay(t)
		sender := &fakeTransport{}
		assert.NoError(t, registry.Register("c1", sender, ann))

		relay.Relay("c1", NewMessage{Id: "1", Message: ""})

		messages := chatMessages(sender)
		assert.Len(t, messages, 1)
		assert.Equal(t, realtime.NoMessagePlaceholder, messages[0].Message)
	})

	t.Run("uses a neutral name when the sender already disconnected", func(t *testing.T) {
		relay, registry := newTestRelay(t)
		other := &fakeTransport{}
		assert.NoError(t, registry.Register("c2", other, ben))

		relay.Relay("gone", NewMessage{Id: "1", Message: "hi"})

		messages := chatMessages(other)
		assert.Len(t, messages, 1)
		assert.Equal(t, unknownSender, messages[0].FullName)
		assert.Equal(t, "hi", messages[0].Message)
	})
}

func TestRelay_Announce(t *testing.T) {
	ann := identity.Identity{UserId: "u1", FullName: "Ann", IsActive: true}

	relay, registry := newTestRelay(t)
	transport := &fakeTransport{}
	assert.NoError(t, registry.Register("c1", transport, ann))

	event := relay.Announce("maintenance in 5 minutes")

	assert.Equal(t, realtime.EventMessageFromServer, event.Name)

	messages := chatMessages(transport)
	assert.Len(t, messages, 1)
	assert.Equal(t, serverSender, messages[0].FullName)
	assert.Equal(t, "maintenance in 5 minutes", messages[0].Message)
}

func TestNewMessage_Valid(t *testing.T) {
	assert.True(t, NewMessage{Id: "1", Message: "hi"}.Valid())
	assert.True(t, NewMessage{Id: "1"}.Valid())
	assert.False(t, NewMessage{Message: "hi"}.Valid())
}
