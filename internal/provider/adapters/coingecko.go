package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sawpanic/fedmkt/internal/core"
	"github.com/sawpanic/fedmkt/internal/provider"
	"github.com/sawpanic/fedmkt/internal/provider/httpbase"
	"github.com/sawpanic/fedmkt/internal/provider/schema"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// symbolToCoinID hardcodes the CoinGecko id for a handful of majors;
// anything else falls through to a lower-cased symbol.
var symbolToCoinID = map[string]string{
	"BTC": "bitcoin", "ETH": "ethereum", "USDT": "tether", "BNB": "binancecoin",
	"SOL": "solana", "ADA": "cardano", "XRP": "ripple", "DOGE": "dogecoin",
	"DOT": "polkadot", "MATIC": "matic-network",
}

// CoinGecko is a keyless price/OHLCV adapter for crypto assets.
type CoinGecko struct {
	*base
	http *httpbase.Client
}

func NewCoinGecko(cfg provider.Config) (provider.Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "coingecko"
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 50
	}
	return &CoinGecko{
		base: newBase(cfg, 1.0, 0.99),
		http: httpbase.New(cfg.Name, coingeckoBaseURL, cfg.Timeout(), cfg.RateLimitPerMinute),
	}, nil
}

func (c *CoinGecko) Name() string { return c.cfg.Name }

func (c *CoinGecko) Initialize(ctx context.Context) error { c.state.MarkInitialized(); return nil }
func (c *CoinGecko) Shutdown(ctx context.Context) error   { c.state.MarkShutdown(); return nil }

func (c *CoinGecko) SupportsAsset(asset core.Asset) bool { return asset.Kind == core.AssetCrypto }

func coinID(symbol string) string {
	upper := strings.ToUpper(symbol)
	if id, ok := symbolToCoinID[upper]; ok {
		return id
	}
	for _, suffix := range []string{"USDT", "BUSD", "USD"} {
		if strings.HasSuffix(upper, suffix) && len(upper) > len(suffix) {
			if id, ok := symbolToCoinID[strings.TrimSuffix(upper, suffix)]; ok {
				return id
			}
		}
	}
	return strings.ToLower(upper)
}

type coingeckoSimplePrice map[string]struct {
	USD          float64 `json:"usd"`
	USDMarketCap float64 `json:"usd_market_cap"`
	USD24hVol    float64 `json:"usd_24h_vol"`
	USD24hChange float64 `json:"usd_24h_change"`
}

func (c *CoinGecko) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	c.state.RecordRequest()
	id := coinID(asset.Symbol)
	path := fmt.Sprintf("/simple/price?ids=%s&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true", id)

	var parsed coingeckoSimplePrice
	if err := c.http.Get(ctx, path, &parsed); err != nil {
		c.state.RecordError()
		return core.Response{}, err
	}
	coin, ok := parsed[id]
	if !ok {
		c.state.RecordError()
		return core.Response{}, core.NewProviderError(c.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no price data available for %s", asset.Symbol))
	}

	data := map[string]any{
		"price":      coin.USD,
		"market_cap": coin.USDMarketCap,
		"volume_24h": coin.USD24hVol,
		"change_24h": coin.USD24hChange,
	}
	return core.Response{
		Provider: c.cfg.Name, Asset: asset, DataType: core.DataPrice,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataPrice, data), IsFresh: true, Confidence: 0.96,
		Metadata: map[string]any{"source": "coingecko", "coin_id": id},
	}, nil
}

type coingeckoOHLCBar [5]float64 // [ts_ms, open, high, low, close]

func (c *CoinGecko) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	c.state.RecordRequest()
	if limit <= 0 {
		limit = 100
	}
	id := coinID(asset.Symbol)
	days := limit
	if days > 365 {
		days = 365
	}
	path := fmt.Sprintf("/coins/%s/ohlc?vs_currency=usd&days=%d", id, days)

	var bars []coingeckoOHLCBar
	if err := c.http.Get(ctx, path, &bars); err != nil {
		c.state.RecordError()
		return core.Response{}, err
	}
	if len(bars) > limit {
		bars = bars[:limit]
	}

	candles := make([]schema.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, schema.Candle{
			Timestamp: int64(bar[0] / 1000),
			Open:      bar[1], High: bar[2], Low: bar[3], Close: bar[4],
			Exchange: "coingecko",
		})
	}

	data := map[string]any{"candles": candles, "timeframe": timeframe}
	return core.Response{
		Provider: c.cfg.Name, Asset: asset, DataType: core.DataOHLCV,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataOHLCV, data), IsFresh: true, Confidence: 0.96,
		Metadata: map[string]any{"source": "coingecko", "coin_id": id},
	}, nil
}

type coingeckoMarketData struct {
	MarketCap         map[string]float64 `json:"market_cap"`
	TotalVolume       map[string]float64 `json:"total_volume"`
	CurrentPrice      map[string]float64 `json:"current_price"`
	ATH               map[string]float64 `json:"ath"`
	ATL               map[string]float64 `json:"atl"`
	CirculatingSupply float64            `json:"circulating_supply"`
	TotalSupply       float64            `json:"total_supply"`
	MaxSupply         float64            `json:"max_supply"`
}

type coingeckoCoin struct {
	ID            string                          `json:"id"`
	Symbol        string                          `json:"symbol"`
	Name          string                          `json:"name"`
	Description   struct{ En string `json:"en"` } `json:"description"`
	GenesisDate   string                          `json:"genesis_date"`
	MarketCapRank int                             `json:"market_cap_rank"`
	MarketData    coingeckoMarketData             `json:"market_data"`
}

func (c *CoinGecko) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	c.state.RecordRequest()
	id := coinID(asset.Symbol)
	path := fmt.Sprintf("/coins/%s?localization=false&tickers=false&market_data=true&community_data=true&developer_data=true", id)

	var coin coingeckoCoin
	if err := c.http.Get(ctx, path, &coin); err != nil {
		c.state.RecordError()
		return core.Response{}, err
	}
	if coin.ID == "" {
		c.state.RecordError()
		return core.Response{}, core.NewProviderError(c.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no fundamental data available for %s", asset.Symbol))
	}

	data := map[string]any{
		"symbol":             strings.ToUpper(coin.Symbol),
		"name":               coin.Name,
		"description":        coin.Description.En,
		"genesis_date":       coin.GenesisDate,
		"market_cap_rank":    coin.MarketCapRank,
		"market_cap":         coin.MarketData.MarketCap["usd"],
		"total_volume":       coin.MarketData.TotalVolume["usd"],
		"current_price":      coin.MarketData.CurrentPrice["usd"],
		"ath":                coin.MarketData.ATH["usd"],
		"atl":                coin.MarketData.ATL["usd"],
		"circulating_supply": coin.MarketData.CirculatingSupply,
		"total_supply":       coin.MarketData.TotalSupply,
		"max_supply":         coin.MarketData.MaxSupply,
	}
	return core.Response{
		Provider: c.cfg.Name, Asset: asset, DataType: core.DataFundamentals,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataFundamentals, data), IsFresh: true, Confidence: 0.95,
		Metadata: map[string]any{"source": "coingecko", "coin_id": id},
	}, nil
}
func (c *CoinGecko) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	return unsupported()
}
func (c *CoinGecko) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (c *CoinGecko) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (c *CoinGecko) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
