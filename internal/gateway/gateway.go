package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/auth"
	"github.com/teslo-shop/realtime-gateway/internal/identity"
	"github.com/teslo-shop/realtime-gateway/internal/ierr"
	"github.com/teslo-shop/realtime-gateway/internal/realtime"
)

// Lifecycle states of a connection. CLOSED is implicit: the handlers
// return an error and the caller tears the transport down.
type state string

const (
	statePendingAuth   state = "pending_auth"
	stateAuthenticated state = "authenticated"
	stateRegistered    state = "registered"
)

type Gateway struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator
	directory     identity.Directory
	registry      realtime.Registry
	authTimeout   time.Duration
}

func NewGateway(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	directory identity.Directory,
	registry realtime.Registry,
	authTimeout time.Duration,
) *Gateway {
	return &Gateway{
		logger:        logger,
		authenticator: authenticator,
		directory:     directory,
		registry:      registry,
		authTimeout:   authTimeout,
	}
}

// HandleConnect walks a freshly accepted connection through
// authentication, identity resolution and registration, then announces
// the updated presence snapshot to every registered connection, the
// new one included. A non-nil error means the caller must force-close
// the transport: the peer gets no error frame, whatever the reason.
func (g *Gateway) HandleConnect(ctx context.Context, connectionId string, transport realtime.Transport, credential string) error {
	logger := g.logger.With(zap.String("connectionId", connectionId))
	logger.Debug("connection accepted", zap.String("state", string(statePendingAuth)))

	ctx, cancel := context.WithTimeout(ctx, g.authTimeout)
	defer cancel()

	if credential == "" {
		return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing credential"))
	}

	userId, err := g.authenticator.VerifyToken(credential)
	if err != nil {
		return err
	}

	resolved, err := g.directory.Lookup(ctx, userId)
	if errors.Is(err, identity.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unknown user: "+userId))
	}
	if err != nil {
		// Transient directory failures are not retried; the peer sees
		// the same silent closure as a bad token.
		return ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	if !resolved.IsActive {
		return ierr.New(ierr.ErrorCodePermissionDenied, errors.New("user is not active"))
	}

	logger.Debug("connection authenticated",
		zap.String("state", string(stateAuthenticated)),
		zap.String("userId", resolved.UserId))

	if err := g.registry.Register(connectionId, transport, resolved); err != nil {
		return err
	}

	logger.Info("connection registered",
		zap.String("state", string(stateRegistered)),
		zap.String("userId", resolved.UserId))

	g.broadcastPresence()

	return nil
}

// HandleDisconnect runs for every dying transport, whether it ever
// registered or was displaced by a newer connection for the same user.
func (g *Gateway) HandleDisconnect(connectionId string) {
	g.registry.Remove(connectionId)

	g.logger.Info("connection closed", zap.String("connectionId", connectionId))

	g.broadcastPresence()
}

func (g *Gateway) broadcastPresence() {
	g.registry.Broadcast(realtime.NewPresenceEvent(g.registry.ConnectionIds()))
}
