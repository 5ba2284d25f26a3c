package wsserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fedmkt/internal/arbitration"
	"github.com/sawpanic/fedmkt/internal/registry"
	"github.com/sawpanic/fedmkt/internal/subscription"
)

func TestClientMessage_DecodesSubscribeFrame(t *testing.T) {
	raw := []byte(`{
		"type": "subscribe",
		"stream_type": "price",
		"symbols": ["AAPL", "MSFT"],
		"asset_kind": "equity",
		"market": "US",
		"interval_ms": 500,
		"data_type": "price"
	}`)

	var msg clientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "subscribe", msg.Type)

	req := msg.asSubscribeRequest()
	assert.Equal(t, subscription.StreamPrice, req.StreamType)
	assert.Equal(t, []string{"AAPL", "MSFT"}, req.Symbols)
	assert.Equal(t, 500, req.IntervalMs)
}

func TestClientMessage_DecodesUnsubscribeFrame(t *testing.T) {
	raw := []byte(`{"type": "unsubscribe", "stream_type": "price", "symbols": ["AAPL"]}`)

	var msg clientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))

	req := msg.asUnsubscribeRequest()
	assert.Equal(t, subscription.StreamPrice, req.StreamType)
	assert.Equal(t, []string{"AAPL"}, req.Symbols)
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	manager := subscription.New(arbitration.New(registry.New()))
	server := httptest.NewServer(New(manager))
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return server, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readError(t *testing.T, ws *websocket.Conn) subscription.ErrorMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg subscription.ErrorMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestDispatch_MalformedJSON_SendsInvalidJSONCode(t *testing.T) {
	_, wsURL := newTestServer(t)
	ws := dial(t, wsURL)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{not json`)))

	msg := readError(t, ws)
	assert.Equal(t, "INVALID_JSON", msg.ErrorCode)
}

func TestDispatch_UnknownMessageType_SendsInvalidMessageTypeCode(t *testing.T) {
	_, wsURL := newTestServer(t)
	ws := dial(t, wsURL)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "bogus"}))

	msg := readError(t, ws)
	assert.Equal(t, "INVALID_MESSAGE_TYPE", msg.ErrorCode)
}

func TestDispatch_InvalidSubscribeRequest_SendsSubscriptionInvalidCode(t *testing.T) {
	_, wsURL := newTestServer(t)
	ws := dial(t, wsURL)

	require.NoError(t, ws.WriteJSON(clientMessage{
		Type:       "subscribe",
		StreamType: subscription.StreamPrice,
		Symbols:    []string{"AAPL"},
		IntervalMs: 1, // below minIntervalMs
	}))

	msg := readError(t, ws)
	assert.Equal(t, "SUBSCRIPTION_INVALID", msg.ErrorCode)
}
