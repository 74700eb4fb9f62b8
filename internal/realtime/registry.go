package realtime

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/identity"
	"github.com/teslo-shop/realtime-gateway/internal/ierr"
)

// Transport is the write half of one live connection. The registry
// entry owns it exclusively for the entry's lifetime. Implementations
// must tolerate Close being called more than once, and from goroutines
// other than the connection's own.
type Transport interface {
	Send(event Event) error
	Close() error
}

type Connection struct {
	Id        string
	Transport Transport
	Identity  identity.Identity
}

type Registry interface {
	Register(connectionId string, transport Transport, id identity.Identity) error
	Remove(connectionId string)
	ConnectionIds() []string
	DisplayNameOf(connectionId string) (string, error)
	Broadcast(event Event)
}

type InMemoryRegistry struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[string]Connection
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:      logger,
		connections: make(map[string]Connection),
	}
}

// Register inserts a connection, displacing any live connection that
// belongs to the same user: the prior entry is closed and removed
// before Register returns, so at most one entry per user id is ever
// observable. The physical close of the displaced transport is
// fire-and-forget. A duplicate connection id is a caller bug.
func (r *InMemoryRegistry) Register(connectionId string, transport Transport, id identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connectionId]; ok {
		return ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("connection id already registered"))
	}

	for previousId, previous := range r.connections {
		if previous.Identity.UserId != id.UserId {
			continue
		}

		r.logger.Info("displacing previous connection for user",
			zap.String("userId", id.UserId),
			zap.String("previousConnectionId", previousId),
			zap.String("connectionId", connectionId))

		if err := previous.Transport.Close(); err != nil {
			r.logger.Warn("failed to close displaced connection",
				zap.String("connectionId", previousId),
				zap.Error(err))
		}

		delete(r.connections, previousId)
		break
	}

	r.connections[connectionId] = Connection{
		Id:        connectionId,
		Transport: transport,
		Identity:  id,
	}

	return nil
}

// Remove is idempotent: removing an absent id is a no-op.
func (r *InMemoryRegistry) Remove(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, connectionId)
}

// ConnectionIds returns a snapshot of the currently registered ids.
func (r *InMemoryRegistry) ConnectionIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionIds := make([]string, 0, len(r.connections))
	for connectionId := range r.connections {
		connectionIds = append(connectionIds, connectionId)
	}

	return connectionIds
}

func (r *InMemoryRegistry) DisplayNameOf(connectionId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connection, ok := r.connections[connectionId]
	if !ok {
		return "", ierr.New(ierr.ErrorCodeNotFound, errors.New("connection not registered"))
	}

	return connection.Identity.FullName, nil
}

// Broadcast fans an event out to every registered connection,
// best-effort: a failed send to one connection never aborts delivery
// to the rest.
func (r *InMemoryRegistry) Broadcast(event Event) {
	r.mu.RLock()

	connections := make([]Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		connections = append(connections, connection)
	}

	r.mu.RUnlock()

	for _, connection := range connections {
		if err := connection.Transport.Send(event); err != nil {
			r.logger.Warn("dropping event for connection",
				zap.String("connectionId", connection.Id),
				zap.String("event", event.Name),
				zap.Error(err))
		}
	}
}
