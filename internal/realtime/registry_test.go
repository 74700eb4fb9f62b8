package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/identity"
	"github.com/teslo-shop/realtime-gateway/internal/ierr"
)

type fakeTransport struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (t *fakeTransport) Send(event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("transport closed")
	}

	t.events = append(t.events, event)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

func (t *fakeTransport) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Event(nil), t.events...)
}

func ann() identity.Identity {
	return identity.Identity{UserId: "u1", FullName: "Ann", IsActive: true}
}

func ben() identity.Identity {
	return identity.Identity{UserId: "u2", FullName: "Ben", IsActive: true}
}

func TestInMemoryRegistry_Register(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("registers a connection", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		err := registry.Register("c1", &fakeTransport{}, ann())

		assert.NoError(t, err)
		assert.Equal(t, []string{"c1"}, registry.ConnectionIds())
	})

	t.Run("displaces previous connection for the same user", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := &fakeTransport{}
		second := &fakeTransport{}

		assert.NoError(t, registry.Register("c1", first, ann()))
		assert.NoError(t, registry.Register("c2", second, ann()))

		assert.True(t, first.Closed())
		assert.False(t, second.Closed())
		assert.Equal(t, []string{"c2"}, registry.ConnectionIds())

		_, err := registry.DisplayNameOf("c1")
		assert.Error(t, err)
	})

	t.Run("keeps connections of different users", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := &fakeTransport{}
		second := &fakeTransport{}

		assert.NoError(t, registry.Register("c1", first, ann()))
		assert.NoError(t, registry.Register("c2", second, ben()))

		assert.False(t, first.Closed())
		assert.ElementsMatch(t, []string{"c1", "c2"}, registry.ConnectionIds())
	})

	t.Run("rejects duplicate connection id", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		assert.NoError(t, registry.Register("c1", &fakeTransport{}, ann()))

		err := registry.Register("c1", &fakeTransport{}, ben())

		assert.Error(t, err)
		assert.IsType(t, ierr.Error{}, err)
		assert.Equal(t, ierr.ErrorCodeAlreadyExists, err.(ierr.Error).Code)
	})
}

func TestInMemoryRegistry_Remove(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("removes a connection", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		assert.NoError(t, registry.Register("c1", &fakeTransport{}, ann()))

		registry.Remove("c1")

		assert.Empty(t, registry.ConnectionIds())
	})

	t.Run("is idempotent", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		assert.NoError(t, registry.Register("c1", &fakeTransport{}, ann()))

		registry.Remove("c1")
		registry.Remove("c1")

		assert.Empty(t, registry.ConnectionIds())
	})

	t.Run("ignores unknown ids", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		registry.Remove("missing")

		assert.Empty(t, registry.ConnectionIds())
	})
}

func TestInMemoryRegistry_DisplayNameOf(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	registry := NewInMemoryRegistry(logger)
	assert.NoError(t, registry.Register("c1", &fakeTransport{}, ann()))

	t.Run("returns the display name", func(t *testing.T) {
		fullName, err := registry.DisplayNameOf("c1")

		assert.NoError(t, err)
		assert.Equal(t, "Ann", fullName)
	})

	t.Run("signals not found for unknown ids", func(t *testing.T) {
		fullName, err := registry.DisplayNameOf("missing")

		assert.Error(t, err)
		assert.Empty(t, fullName)
		assert.Equal(t, ierr.ErrorCodeNotFound, err.(ierr.Error).Code)
	})
}

func TestInMemoryRegistry_Broadcast(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("delivers to every registered connection", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := &fakeTransport{}
		second := &fakeTransport{}
		assert.NoError(t, registry.Register("c1", first, ann()))
		assert.NoError(t, registry.Register("c2", second, ben()))

		event := NewChatEvent("Ann", "hi")
		registry.Broadcast(event)

		assert.Equal(t, []Event{event}, first.Events())
		assert.Equal(t, []Event{event}, second.Events())
	})

	t.Run("a failing connection does not abort the rest", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		failing := &fakeTransport{}
		healthy := &fakeTransport{}
		assert.NoError(t, registry.Register("c1", failing, ann()))
		assert.NoError(t, registry.Register("c2", healthy, ben()))
		failing.Close()

		event := NewPresenceEvent([]string{"c1", "c2"})
		registry.Broadcast(event)

		assert.Empty(t, failing.Events())
		assert.Equal(t, []Event{event}, healthy.Events())
	})

	t.Run("broadcast to nobody is a no-op", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		registry.Broadcast(NewPresenceEvent([]string{}))
	})
}
