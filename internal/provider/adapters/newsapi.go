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

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPI serves news and sentiment data; its literal adapter name
// "newsapi" is what the arbitration engine's domain bonus matches on.
type NewsAPI struct {
	*base
	http *httpbase.Client
}

func NewNewsAPI(cfg provider.Config) (provider.Adapter, error) {
	if !cfg.HasCredentials() {
		return nil, core.NewProviderError("newsapi", core.KindConfig, 0, fmt.Errorf("newsapi requires an API key"))
	}
	cfg.Name = "newsapi"
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 20
	}
	return &NewsAPI{
		base: newBase(cfg, 1.0, 0.98),
		http: httpbase.New(cfg.Name, newsAPIBaseURL, cfg.Timeout(), cfg.RateLimitPerMinute),
	}, nil
}

func (n *NewsAPI) Name() string { return n.cfg.Name }

func (n *NewsAPI) Initialize(ctx context.Context) error { n.state.MarkInitialized(); return nil }
func (n *NewsAPI) Shutdown(ctx context.Context) error   { n.state.MarkShutdown(); return nil }

func (n *NewsAPI) SupportsAsset(asset core.Asset) bool { return true }

type newsAPIArticle struct {
	Title       string                              `json:"title"`
	Description string                              `json:"description"`
	URL         string                              `json:"url"`
	Source      struct{ Name string `json:"name"` } `json:"source"`
	PublishedAt string                              `json:"publishedAt"`
}

var newsAPIPositiveWords = []string{
	"gain", "rise", "surge", "profit", "growth", "bull", "rally", "soar",
	"jump", "beat", "optimistic", "positive", "strong",
}

var newsAPINegativeWords = []string{
	"loss", "fall", "drop", "crash", "decline", "bear", "plunge", "miss",
	"weak", "pessimistic", "negative", "concern", "risk",
}

// extractSentiment is a keyword-count sentiment proxy over an article's
// title and description, scored from -1.0 (negative) to 1.0 (positive).
func extractSentiment(title, description string) float64 {
	text := strings.ToLower(title + " " + description)

	positive := 0
	for _, word := range newsAPIPositiveWords {
		if strings.Contains(text, word) {
			positive++
		}
	}
	negative := 0
	for _, word := range newsAPINegativeWords {
		if strings.Contains(text, word) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return 0.0
	}
	score := float64(positive-negative) / float64(total)
	if score > 1.0 {
		return 1.0
	}
	if score < -1.0 {
		return -1.0
	}
	return score
}

type newsAPIEverything struct {
	Articles []newsAPIArticle `json:"articles"`
}

func (n *NewsAPI) fetchArticles(ctx context.Context, asset core.Asset, limit int) ([]schema.Article, error) {
	if limit <= 0 {
		limit = 10
	}
	query := asset.Symbol
	if asset.Name != "" {
		query = asset.Name
	}
	path := fmt.Sprintf("/everything?q=%s&pageSize=%d&sortBy=publishedAt&apiKey=%s", query, limit, n.cfg.APIKey)

	var parsed newsAPIEverything
	if err := n.http.Get(ctx, path, &parsed); err != nil {
		return nil, err
	}

	articles := make([]schema.Article, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		publishedAt, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, schema.Article{
			Title:     a.Title,
			Summary:   a.Description,
			URL:       a.URL,
			Source:    a.Source.Name,
			Sentiment: extractSentiment(a.Title, a.Description),
			Published: publishedAt.Unix(),
		})
	}
	return articles, nil
}

func (n *NewsAPI) FetchNews(ctx context.Context, asset core.Asset, limit int) (core.Response, error) {
	n.state.RecordRequest()
	articles, err := n.fetchArticles(ctx, asset, limit)
	if err != nil {
		n.state.RecordError()
		return core.Response{}, err
	}
	data := map[string]any{"articles": articles}
	return core.Response{
		Provider: n.cfg.Name, Asset: asset, DataType: core.DataNews,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataNews, data), IsFresh: true, Confidence: 0.85,
	}, nil
}

// FetchSentiment derives a scalar score from the same article set
// FetchNews returns, averaging each article's keyword-based
// extractSentiment score.
func (n *NewsAPI) FetchSentiment(ctx context.Context, asset core.Asset) (core.Response, error) {
	n.state.RecordRequest()
	articles, err := n.fetchArticles(ctx, asset, 20)
	if err != nil {
		n.state.RecordError()
		return core.Response{}, err
	}
	if len(articles) == 0 {
		n.state.RecordError()
		return core.Response{}, core.NewProviderError(n.cfg.Name, core.KindStructural, 0,
			fmt.Errorf("no articles available to score sentiment for %s", asset.Symbol))
	}

	var sum float64
	for _, a := range articles {
		sum += a.Sentiment
	}
	score := sum / float64(len(articles))

	data := map[string]any{"score": score, "article_count": len(articles)}
	return core.Response{
		Provider: n.cfg.Name, Asset: asset, DataType: core.DataSentiment,
		Data: data, Timestamp: time.Now(),
		IsValid: schema.Validate(core.DataSentiment, data), IsFresh: true, Confidence: 0.6,
	}, nil
}

func (n *NewsAPI) FetchPrice(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (n *NewsAPI) FetchOHLCV(ctx context.Context, asset core.Asset, timeframe string, limit int) (core.Response, error) {
	return unsupported()
}
func (n *NewsAPI) FetchFundamentals(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (n *NewsAPI) FetchTechnical(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
func (n *NewsAPI) FetchMacro(ctx context.Context, asset core.Asset) (core.Response, error) {
	return unsupported()
}
