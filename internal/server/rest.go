package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/auth"
	"github.com/teslo-shop/realtime-gateway/internal/gateway"
	"github.com/teslo-shop/realtime-gateway/internal/realtime"
)

type ConnectionsResponse struct {
	Count         int      `json:"count"`
	ConnectionIds []string `json:"connectionIds"`
}

type BroadcastRequest struct {
	Message string `json:"message"`
}

// RESTServer exposes the gateway's outward hooks to the rest of the
// backend: the connection count and a server-originated broadcast.
type RESTServer struct {
	logger        *zap.Logger
	registry      realtime.Registry
	relay         *gateway.Relay
	authenticator *auth.Authenticator
}

func NewRESTServer(
	logger *zap.Logger,
	registry realtime.Registry,
	relay *gateway.Relay,
	authenticator *auth.Authenticator,
) *RESTServer {
	return &RESTServer{
		logger:        logger,
		registry:      registry,
		relay:         relay,
		authenticator: authenticator,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/connections", s.authorized(s.handleConnections)).Methods("GET")
	router.HandleFunc("/broadcast", s.authorized(s.handleBroadcast)).Methods("POST")
}

func (s *RESTServer) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		if err := s.authenticator.VerifyAPIKey(apiKey); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

func (s *RESTServer) handleConnections(w http.ResponseWriter, r *http.Request) {
	connectionIds := s.registry.ConnectionIds()

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(ConnectionsResponse{
		Count:         len(connectionIds),
		ConnectionIds: connectionIds,
	})
	if err != nil {
		s.logger.Error("failed to encode connections response", zap.Error(err))
	}
}

func (s *RESTServer) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var broadcastRequest BroadcastRequest

	err := json.NewDecoder(r.Body).Decode(&broadcastRequest)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event := s.relay.Announce(broadcastRequest.Message)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event); err != nil {
		s.logger.Error("failed to encode broadcast response", zap.Error(err))
	}
}
