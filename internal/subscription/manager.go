// Package subscription implements the real-time fan-out: a Manager
// holds every live connection's subscriptions, polls the arbitration
// engine on each subscription's own interval, and batches results into
// outbound messages.
package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fedmkt/internal/arbitration"
	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/telemetry"
)

const heartbeatInterval = 30 * time.Second

const (
	minSymbols    = 1
	maxSymbols    = 50
	minIntervalMs = 100
	maxIntervalMs = 60000
)

// Transport is the outbound channel a Subscription writes messages to.
// The Manager never owns a Transport's lifecycle beyond calling Send; a
// concrete implementation (internal/transport/wsserver) owns the socket.
type Transport interface {
	Send(message any) error
}

type connection struct {
	id              string
	handle          Transport
	subscriptions   map[string]*Subscription
	heartbeatCancel context.CancelFunc
}

// Subscription is a live per-connection stream, mutated by
// add/remove-symbol unsubscribe calls and destroyed on full cancel or
// disconnect.
type Subscription struct {
	ID           string
	ConnectionID string
	StreamType   StreamType
	Symbols      []string
	AssetKind    core.AssetKind
	Market       core.Market
	DataType     core.DataType
	IntervalMs   int
	CreatedAt    time.Time
	LastUpdate   time.Time
	cancel       context.CancelFunc
}

// Manager is one instance per process. All mutable state (connections,
// subscriptions, symbol index) sits behind one mutex.
type Manager struct {
	mu                 sync.Mutex
	connections        map[string]*connection
	symbolIndex        map[string]map[string]struct{} // symbol -> subscription ids
	engine             *arbitration.Engine
	totalSubscriptions int
	heartbeatEvery     time.Duration
}

// New wires a Manager to the Engine it polls on every stream tick.
func New(engine *arbitration.Engine) *Manager {
	return &Manager{
		connections:    make(map[string]*connection),
		symbolIndex:    make(map[string]map[string]struct{}),
		engine:         engine,
		heartbeatEvery: heartbeatInterval,
	}
}

// Connect registers a new transport handle, assigns it a connection id,
// and starts its heartbeat loop.
func (m *Manager) Connect(handle Transport) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.connections[id] = &connection{
		id:              id,
		handle:          handle,
		subscriptions:   make(map[string]*Subscription),
		heartbeatCancel: cancel,
	}
	m.mu.Unlock()

	go m.runHeartbeat(ctx, id, handle)
	return id
}

func (m *Manager) runHeartbeat(ctx context.Context, connectionID string, handle Transport) {
	ticker := time.NewTicker(m.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			conn, ok := m.connections[connectionID]
			count := 0
			if ok {
				count = len(conn.subscriptions)
			}
			m.mu.Unlock()
			if !ok {
				return
			}
			if err := handle.Send(HeartbeatMessage{Timestamp: time.Now(), ActiveSubscriptions: count}); err != nil {
				log.Warn().Err(err).Str("connection_id", connectionID).Msg("heartbeat send failed")
			}
		}
	}
}

// Subscribe validates and creates a Subscription, starting its poll
// goroutine. Rejects more than maxSymbols symbols or an out-of-range
// interval_ms with a "subscription-invalid" error.
func (m *Manager) Subscribe(connectionID string, req SubscribeRequest) (SubscriptionAck, error) {
	if len(req.Symbols) < minSymbols || len(req.Symbols) > maxSymbols {
		return SubscriptionAck{}, fmt.Errorf("subscription-invalid: symbols must number between %d and %d, got %d",
			minSymbols, maxSymbols, len(req.Symbols))
	}
	if req.IntervalMs < minIntervalMs || req.IntervalMs > maxIntervalMs {
		return SubscriptionAck{}, fmt.Errorf("subscription-invalid: interval_ms must be between %d and %d, got %d",
			minIntervalMs, maxIntervalMs, req.IntervalMs)
	}

	m.mu.Lock()
	conn, ok := m.connections[connectionID]
	if !ok {
		m.mu.Unlock()
		return SubscriptionAck{}, fmt.Errorf("subscription-invalid: unknown connection %q", connectionID)
	}

	subID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ID:           subID,
		ConnectionID: connectionID,
		StreamType:   req.StreamType,
		Symbols:      append([]string(nil), req.Symbols...),
		AssetKind:    core.AssetKind(req.AssetKind),
		Market:       core.Market(req.Market),
		DataType:     core.DataType(req.DataType),
		IntervalMs:   req.IntervalMs,
		CreatedAt:    time.Now(),
		cancel:       cancel,
	}
	conn.subscriptions[subID] = sub
	for _, symbol := range sub.Symbols {
		m.indexSymbol(symbol, subID)
	}
	m.totalSubscriptions++
	telemetry.Default.SetActiveSubscriptions(m.totalSubscriptions)
	m.mu.Unlock()

	go m.runStream(ctx, conn.handle, sub)

	return SubscriptionAck{
		StreamType:     sub.StreamType,
		Symbols:        sub.Symbols,
		SubscriptionID: sub.ID,
		IntervalMs:     sub.IntervalMs,
		Timestamp:      time.Now(),
	}, nil
}

func (m *Manager) indexSymbol(symbol, subID string) {
	set, ok := m.symbolIndex[symbol]
	if !ok {
		set = make(map[string]struct{})
		m.symbolIndex[symbol] = set
	}
	set[subID] = struct{}{}
}

func (m *Manager) deindexSymbol(symbol, subID string) {
	set, ok := m.symbolIndex[symbol]
	if !ok {
		return
	}
	delete(set, subID)
	if len(set) == 0 {
		delete(m.symbolIndex, symbol)
	}
}

// Unsubscribe cancels every subscription of req.StreamType on the
// connection when no symbols are given; otherwise it narrows each
// matching subscription's symbol set and cancels it once that set is
// empty.
func (m *Manager) Unsubscribe(connectionID string, req UnsubscribeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connectionID]
	if !ok {
		return fmt.Errorf("subscription-invalid: unknown connection %q", connectionID)
	}

	for subID, sub := range conn.subscriptions {
		if sub.StreamType != req.StreamType {
			continue
		}
		if len(req.Symbols) == 0 {
			m.cancelSubscriptionLocked(conn, subID, sub)
			continue
		}
		sub.Symbols = removeSymbols(sub.Symbols, req.Symbols)
		for _, symbol := range req.Symbols {
			m.deindexSymbol(symbol, subID)
		}
		if len(sub.Symbols) == 0 {
			m.cancelSubscriptionLocked(conn, subID, sub)
		}
	}
	return nil
}

func (m *Manager) cancelSubscriptionLocked(conn *connection, subID string, sub *Subscription) {
	sub.cancel()
	for _, symbol := range sub.Symbols {
		m.deindexSymbol(symbol, subID)
	}
	delete(conn.subscriptions, subID)
	m.totalSubscriptions--
	telemetry.Default.SetActiveSubscriptions(m.totalSubscriptions)
}

func removeSymbols(current, remove []string) []string {
	removeSet := make(map[string]struct{}, len(remove))
	for _, s := range remove {
		removeSet[s] = struct{}{}
	}
	kept := make([]string, 0, len(current))
	for _, s := range current {
		if _, drop := removeSet[s]; !drop {
			kept = append(kept, s)
		}
	}
	return kept
}

// Disconnect cancels every stream task and the heartbeat task for the
// connection and releases its state.
func (m *Manager) Disconnect(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connectionID]
	if !ok {
		return
	}
	conn.heartbeatCancel()
	for subID, sub := range conn.subscriptions {
		sub.cancel()
		for _, symbol := range sub.Symbols {
			m.deindexSymbol(symbol, subID)
		}
		m.totalSubscriptions--
	}
	telemetry.Default.SetActiveSubscriptions(m.totalSubscriptions)
	delete(m.connections, connectionID)
}
