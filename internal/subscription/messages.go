package subscription

import "time"

// StreamType names the kind of update a subscription produces.
type StreamType string

const (
	StreamPrice      StreamType = "price"
	StreamOHLCV      StreamType = "ohlcv"
	StreamQuote      StreamType = "quote"
	StreamTrades     StreamType = "trades"
	StreamMultiAsset StreamType = "multi_asset"
)

// SubscribeRequest is the client->server `subscribe` message.
type SubscribeRequest struct {
	StreamType StreamType     `json:"stream_type"`
	Symbols    []string       `json:"symbols"`
	AssetKind  string         `json:"asset_kind"`
	Market     string         `json:"market"`
	IntervalMs int            `json:"interval_ms"`
	DataType   string         `json:"data_type"`
	Params     map[string]any `json:"params,omitempty"`
}

// UnsubscribeRequest is the client->server `unsubscribe` message. A nil
// or empty Symbols cancels every subscription of StreamType on the
// connection.
type UnsubscribeRequest struct {
	StreamType StreamType `json:"stream_type"`
	Symbols    []string   `json:"symbols,omitempty"`
}

// SubscriptionAck is the server->client acknowledgement sent in response
// to a successful subscribe.
type SubscriptionAck struct {
	StreamType     StreamType `json:"stream_type"`
	Symbols        []string   `json:"symbols"`
	SubscriptionID string     `json:"subscription_id"`
	IntervalMs     int        `json:"interval_ms"`
	Timestamp      time.Time  `json:"timestamp"`
}

// DataMessage is the server->client `data` message: one batched emission
// per stream tick, covering every symbol whose fetch succeeded on that
// tick. A tick on which no symbol succeeds sends no message.
type DataMessage struct {
	StreamType     StreamType `json:"stream_type"`
	SubscriptionID string     `json:"subscription_id"`
	Data           []any      `json:"data"`
	Timestamp      time.Time  `json:"timestamp"`
}

// HeartbeatMessage is emitted every 30s per connection.
type HeartbeatMessage struct {
	Timestamp           time.Time `json:"timestamp"`
	ActiveSubscriptions int       `json:"active_subscriptions"`
}

// ErrorMessage is the server->client `error` message.
type ErrorMessage struct {
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceUpdate is one entry of a `data` message's list for stream_type
// "price".
type PriceUpdate struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        *float64  `json:"volume,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Provider      string    `json:"provider"`
	Confidence    float64   `json:"confidence"`
}

// OHLCVUpdate is one entry of a `data` message's list for stream_type
// "ohlcv".
type OHLCVUpdate struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	IsClosed  bool    `json:"is_closed"`
}

// QuoteUpdate is one entry of a `data` message's list for stream_type
// "quote". The engine does not surface a quote data type directly; this
// is synthesized from a price response's bid/ask fields when present.
type QuoteUpdate struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidSize   *float64  `json:"bid_size,omitempty"`
	AskSize   *float64  `json:"ask_size,omitempty"`
	Spread    float64   `json:"spread"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeUpdate is one entry of a `data` message's list for stream_type
// "trades".
type TradeUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
	TradeID   *string   `json:"trade_id,omitempty"`
	Side      *string   `json:"side,omitempty"`
}
