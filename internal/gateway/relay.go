package gateway

import (
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/realtime"
)

// NewMessage is an inbound chat frame that already passed shape
// validation at the framing boundary: Id is non-empty, Message may be
// empty (the relay substitutes a placeholder for display).
type NewMessage struct {
	Id      string `json:"id"`
	Message string `json:"message"`
}

func (m NewMessage) Valid() bool {
	return m.Id != ""
}

const (
	unknownSender = "Someone"
	serverSender  = "server"
)

type Relay struct {
	logger   *zap.Logger
	registry realtime.Registry
}

func NewRelay(
	logger *zap.Logger,
	registry realtime.Registry,
) *Relay {
	return &Relay{
		logger:   logger,
		registry: registry,
	}
}

// Relay fans an accepted chat frame out to every registered
// connection, the sender included.
func (r *Relay) Relay(senderConnectionId string, message NewMessage) {
	fullName, err := r.registry.DisplayNameOf(senderConnectionId)
	if err != nil {
		// The sender disconnected between send and dispatch. Not an
		// error: the message still goes out under a neutral name.
		r.logger.Debug("sender no longer registered",
			zap.String("connectionId", senderConnectionId))

		fullName = unknownSender
	}

	r.registry.Broadcast(realtime.NewChatEvent(fullName, message.Message))
}

// Announce broadcasts a server-originated chat message. Used by the
// REST broadcast hook.
func (r *Relay) Announce(message string) realtime.Event {
	event := realtime.NewChatEvent(serverSender, message)
	r.registry.Broadcast(event)

	return event
}
