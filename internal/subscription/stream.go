package subscription

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
)

// streamMaxStalenessSeconds is the max_staleness_seconds every stream
// tick passes to arbitration. A provider whose last update is this old
// or older gets a zero freshness sub-score; it is still ranked on its
// other sub-scores rather than excluded.
const streamMaxStalenessSeconds = 300

const streamRegion = ""

// runStream is the per-subscription poll loop: on every tick it
// arbitrates and fetches one response per symbol, projects each into
// the stream's update shape, and emits a single batched data message.
// Errors inside one tick are logged and swallowed — the loop continues
// at the next tick, never propagating a failure into cancellation. The
// sleep between ticks is interruptible via ctx.Done() so
// Unsubscribe/Disconnect can cut it short within one tick.
func (m *Manager) runStream(ctx context.Context, handle Transport, sub *Subscription) {
	ticker := time.NewTicker(time.Duration(sub.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, handle, sub)
		}
	}
}

func (m *Manager) tick(ctx context.Context, handle Transport, sub *Subscription) {
	m.mu.Lock()
	symbols := append([]string(nil), sub.Symbols...)
	m.mu.Unlock()
	if len(symbols) == 0 {
		return
	}

	updates := make([]any, 0, len(symbols))
	for _, symbol := range symbols {
		asset := core.NewAsset(symbol, sub.AssetKind, sub.Market)
		plan, err := m.engine.ArbitrateRequest(ctx, asset, sub.DataType, streamRegion, streamMaxStalenessSeconds)
		if err != nil {
			log.Warn().Err(err).Str("subscription_id", sub.ID).Str("symbol", symbol).Msg("stream tick: arbitration failed")
			continue
		}
		resp, err := m.engine.ExecuteWithFallback(ctx, plan, asset, sub.DataType)
		if err != nil {
			log.Warn().Err(err).Str("subscription_id", sub.ID).Str("symbol", symbol).Msg("stream tick: fetch failed")
			continue
		}
		update := projectUpdate(sub.StreamType, symbol, resp)
		if update != nil {
			updates = append(updates, update)
		}
	}

	m.mu.Lock()
	sub.LastUpdate = time.Now()
	m.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	msg := DataMessage{
		StreamType:     sub.StreamType,
		SubscriptionID: sub.ID,
		Data:           updates,
		Timestamp:      time.Now(),
	}
	if err := handle.Send(msg); err != nil {
		log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("stream tick: send failed")
	}
}

// projectUpdate maps a provider response onto the wire shape its stream
// type calls for. Quote updates are synthesized from a price response's
// optional bid/ask fields; a response lacking them yields no update for
// that tick rather than a fabricated spread.
func projectUpdate(streamType StreamType, symbol string, resp core.Response) any {
	switch streamType {
	case StreamPrice:
		return PriceUpdate{
			Symbol:        symbol,
			Price:         asFloat(resp.Data["price"]),
			Change:        asFloat(resp.Data["change"]),
			ChangePercent: asFloat(resp.Data["change_percent"]),
			Volume:        optionalFloat(resp.Data["volume"]),
			Timestamp:     resp.Timestamp,
			Provider:      resp.Provider,
			Confidence:    resp.Confidence,
		}
	case StreamOHLCV:
		candles, _ := resp.Data["candles"].([]schema.Candle)
		if len(candles) == 0 {
			return nil
		}
		latest := candles[0]
		for _, c := range candles {
			if c.Timestamp > latest.Timestamp {
				latest = c
			}
		}
		return OHLCVUpdate{
			Symbol: symbol, Timestamp: latest.Timestamp,
			Open: latest.Open, High: latest.High, Low: latest.Low, Close: latest.Close,
			Volume: latest.Volume, IsClosed: latest.IsClosed,
		}
	case StreamQuote:
		bid, hasBid := resp.Data["bid"]
		ask, hasAsk := resp.Data["ask"]
		if !hasBid || !hasAsk {
			return nil
		}
		bidF, askF := asFloat(bid), asFloat(ask)
		return QuoteUpdate{
			Symbol: symbol, Bid: bidF, Ask: askF,
			BidSize: optionalFloat(resp.Data["bid_size"]), AskSize: optionalFloat(resp.Data["ask_size"]),
			Spread: askF - bidF, Timestamp: resp.Timestamp,
		}
	case StreamTrades:
		price, hasPrice := resp.Data["price"]
		qty, hasQty := resp.Data["quantity"]
		if !hasPrice || !hasQty {
			return nil
		}
		return TradeUpdate{
			Symbol: symbol, Price: asFloat(price), Quantity: asFloat(qty),
			Timestamp: resp.Timestamp, TradeID: optionalString(resp.Data["trade_id"]), Side: optionalString(resp.Data["side"]),
		}
	default:
		return PriceUpdate{
			Symbol: symbol, Price: asFloat(resp.Data["price"]),
			Timestamp: resp.Timestamp, Provider: resp.Provider, Confidence: resp.Confidence,
		}
	}
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func optionalFloat(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
