package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/gateway"
	"github.com/teslo-shop/realtime-gateway/internal/realtime"
)

const (
	readLimit      = 4096
	sendBufferSize = 16
	writeTimeout   = 10 * time.Second
)

// credentialHeader carries the signed token on the upgrade request.
const credentialHeader = "Authentication"

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader

	gateway *gateway.Gateway
	relay   *gateway.Relay
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	presenceGateway *gateway.Gateway,
	relay *gateway.Relay,
) *WebSocketServer {
	return &WebSocketServer{
		logger:   logger,
		upgrader: upgrader,
		gateway:  presenceGateway,
		relay:    relay,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws", s.handle)
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws.SetReadLimit(readLimit)

	connectionId := gonanoid.Must()
	connection := newWSTransport(ws)
	go connection.writePump()

	credential := r.Header.Get(credentialHeader)

	if err := s.gateway.HandleConnect(r.Context(), connectionId, connection, credential); err != nil {
		s.logger.Info("connection rejected",
			zap.String("connectionId", connectionId),
			zap.Error(err))

		connection.Close()
		return
	}

	s.readLoop(connectionId, connection)
}

type inboundFrame struct {
	Event string           `json:"event"`
	Data  *json.RawMessage `json:"data,omitempty"`
}

// readLoop is the single dispatch point for one connection: each frame
// is handled to completion, in order, until the transport dies. Exit
// runs the disconnect path, which also covers connections displaced by
// a later registration for the same user.
func (s *WebSocketServer) readLoop(connectionId string, connection *wsTransport) {
	defer func() {
		connection.Close()
		s.gateway.HandleDisconnect(connectionId)
	}()

	for {
		var frame inboundFrame
		if err := connection.ws.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Event {
		case realtime.EventMessageFromClient:
			var message gateway.NewMessage
			if frame.Data == nil || json.Unmarshal(*frame.Data, &message) != nil || !message.Valid() {
				s.logger.Debug("dropping malformed chat frame",
					zap.String("connectionId", connectionId))
				continue
			}

			s.relay.Relay(connectionId, message)
		default:
			s.logger.Debug("dropping unknown event",
				zap.String("connectionId", connectionId),
				zap.String("event", frame.Event))
		}
	}
}

// wsTransport adapts a gorilla connection to realtime.Transport. All
// writes go through a buffered channel drained by a single write pump,
// so Send is safe from any goroutine and never blocks on a slow peer.
type wsTransport struct {
	ws   *websocket.Conn
	send chan realtime.Event
	done chan struct{}
	once sync.Once
}

func newWSTransport(ws *websocket.Conn) *wsTransport {
	return &wsTransport{
		ws:   ws,
		send: make(chan realtime.Event, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Send queues an event for the write pump. A full buffer means the
// peer cannot keep up and the event is dropped; delivery is
// at-most-once.
func (t *wsTransport) Send(event realtime.Event) error {
	select {
	case <-t.done:
		return net.ErrClosed
	default:
	}

	select {
	case t.send <- event:
		return nil
	case <-t.done:
		return net.ErrClosed
	default:
		return errors.New("send buffer full")
	}
}

// Close is idempotent and safe to call from the registry while the
// read loop is still blocked in ReadJSON: closing the underlying
// socket fails that read, which drives the normal disconnect path.
func (t *wsTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
	})

	return t.ws.Close()
}

func (t *wsTransport) writePump() {
	for {
		select {
		case <-t.done:
			t.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case event := <-t.send:
			t.ws.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := t.ws.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
