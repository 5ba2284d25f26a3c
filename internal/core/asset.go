// Package core holds the value types shared by the provider framework,
// the arbitration engine, and the subscription manager: the subject of a
// query (Asset), the shape of an answer (Response), and the bookkeeping
// types (Health, Score, Plan) that connect them.
package core

import "strings"

// AssetKind enumerates the instrument classes the engine can be asked about.
type AssetKind string

const (
	AssetEquity    AssetKind = "equity"
	AssetCrypto    AssetKind = "crypto"
	AssetForex     AssetKind = "forex"
	AssetCommodity AssetKind = "commodity"
	AssetIndex     AssetKind = "index"
	AssetETF       AssetKind = "etf"
	AssetOption    AssetKind = "option"
	AssetFuture    AssetKind = "future"
)

// Market tags the region a request or asset belongs to.
type Market string

const (
	MarketUS     Market = "US"
	MarketUK     Market = "UK"
	MarketEU     Market = "EU"
	MarketJP     Market = "JP"
	MarketCN     Market = "CN"
	MarketHK     Market = "HK"
	MarketCrypto Market = "CRYPTO"
	MarketGlobal Market = "GLOBAL"
)

// Asset identifies the subject of a query. Construct it only through
// NewAsset so the symbol-normalization invariant always holds.
type Asset struct {
	Symbol   string
	Kind     AssetKind
	Market   Market
	Exchange string
	Pair     string
	Currency string
	Name     string
}

// NewAsset builds an Asset, trimming and upper-casing symbol per spec.
func NewAsset(symbol string, kind AssetKind, market Market) Asset {
	return Asset{
		Symbol: normalizeSymbol(symbol),
		Kind:   kind,
		Market: market,
	}
}

// WithExchange, WithPair, WithCurrency, WithName return a copy of the
// asset with the optional field set; Asset is otherwise immutable.
func (a Asset) WithExchange(exchange string) Asset { a.Exchange = exchange; return a }
func (a Asset) WithPair(pair string) Asset         { a.Pair = pair; return a }
func (a Asset) WithCurrency(currency string) Asset { a.Currency = currency; return a }
func (a Asset) WithName(name string) Asset         { a.Name = name; return a }

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
