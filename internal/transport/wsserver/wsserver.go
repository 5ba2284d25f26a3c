// Package wsserver supplies a concrete framed transport: an http.Handler
// that upgrades incoming connections with gorilla/websocket, decodes
// subscribe/unsubscribe client messages, dispatches them to a
// subscription.Manager, and serializes the Manager's outgoing messages
// back over the socket as JSON.
package wsserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fedmkt/internal/subscription"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The fan-out is meant to serve any client able to speak the
	// documented JSON protocol; origin checking is left to a fronting
	// proxy rather than duplicated here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections to WebSocket and wires each one to
// a subscription.Manager.
type Handler struct {
	manager *subscription.Manager
}

// New builds a Handler bound to manager.
func New(manager *subscription.Manager) *Handler {
	return &Handler{manager: manager}
}

// clientMessage is the envelope used to discriminate subscribe from
// unsubscribe frames before decoding the rest of the payload. This
// server expects callers to set "type" to "subscribe" or "unsubscribe".
// Fields are listed flat (rather than embedding both request types)
// since SubscribeRequest and UnsubscribeRequest share the stream_type/symbols
// tags and embedding both would make those tags ambiguous to
// encoding/json.
type clientMessage struct {
	Type       string                  `json:"type"`
	StreamType subscription.StreamType `json:"stream_type"`
	Symbols    []string                `json:"symbols"`
	AssetKind  string                  `json:"asset_kind"`
	Market     string                  `json:"market"`
	IntervalMs int                     `json:"interval_ms"`
	DataType   string                  `json:"data_type"`
	Params     map[string]any          `json:"params,omitempty"`
}

func (m clientMessage) asSubscribeRequest() subscription.SubscribeRequest {
	return subscription.SubscribeRequest{
		StreamType: m.StreamType, Symbols: m.Symbols, AssetKind: m.AssetKind,
		Market: m.Market, IntervalMs: m.IntervalMs, DataType: m.DataType, Params: m.Params,
	}
}

func (m clientMessage) asUnsubscribeRequest() subscription.UnsubscribeRequest {
	return subscription.UnsubscribeRequest{StreamType: m.StreamType, Symbols: m.Symbols}
}

// writeTimeout bounds one outgoing frame. A slow client fails the write
// and loses that tick's message rather than stalling the stream and
// heartbeat goroutines behind the write mutex.
const writeTimeout = 10 * time.Second

// conn wraps a *websocket.Conn with the write mutex gorilla/websocket
// requires for concurrent writers (the Manager's stream and heartbeat
// goroutines both write to the same socket).
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) Send(message any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(message)
}

// ServeHTTP upgrades the request, registers the connection with the
// Manager, and blocks reading client frames until the socket closes or
// errors, at which point it disconnects the Manager's state for this
// connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("wsserver: upgrade failed")
		return
	}
	defer wsConn.Close()

	c := &conn{ws: wsConn}
	connectionID := h.manager.Connect(c)
	defer h.manager.Disconnect(connectionID)

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(connectionID, c, raw)
	}
}

func (h *Handler) dispatch(connectionID string, c *conn, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = c.Send(subscription.ErrorMessage{ErrorCode: "INVALID_JSON", Message: err.Error()})
		return
	}

	switch msg.Type {
	case "subscribe":
		ack, err := h.manager.Subscribe(connectionID, msg.asSubscribeRequest())
		if err != nil {
			_ = c.Send(subscription.ErrorMessage{ErrorCode: "SUBSCRIPTION_INVALID", Message: err.Error()})
			return
		}
		_ = c.Send(ack)
	case "unsubscribe":
		if err := h.manager.Unsubscribe(connectionID, msg.asUnsubscribeRequest()); err != nil {
			_ = c.Send(subscription.ErrorMessage{ErrorCode: "SUBSCRIPTION_INVALID", Message: err.Error()})
		}
	default:
		_ = c.Send(subscription.ErrorMessage{ErrorCode: "INVALID_MESSAGE_TYPE", Message: "unrecognized message type: " + msg.Type})
	}
}
