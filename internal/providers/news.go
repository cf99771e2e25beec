package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"newscast/internal/config"
	"newscast/internal/production"
	"newscast/internal/providers/httpjson"
	"newscast/internal/services"
)

// HTTPNews fetches stories from a JSON news endpoint: GET {base}/news?date=&q=&limit=.
type HTTPNews struct {
	client *httpjson.Client
	limit  int
}

// NewHTTPNews builds a news source from configuration.
func NewHTTPNews(cfg *config.Config, opts ...httpjson.Option) *HTTPNews {
	client := httpjson.NewClient(httpjson.Config{
		Name:           "news",
		BaseURL:        cfg.News.BaseURL,
		APIKey:         cfg.News.APIKey,
		TimeoutSeconds: cfg.Pipeline.GenerationTimeoutSeconds,
	}, opts...)
	return &HTTPNews{client: client, limit: cfg.Pipeline.MaxNewsItems * 4}
}

type newsResponse struct {
	Items []production.NewsItem `json:"items"`
}

// FetchNews implements NewsSource. Items without an id or headline are discarded.
func (n *HTTPNews) FetchNews(ctx context.Context, date, criteria string) ([]production.NewsItem, error) {
	query := url.Values{}
	query.Set("date", date)
	if strings.TrimSpace(criteria) != "" {
		query.Set("q", strings.TrimSpace(criteria))
	}
	if n.limit > 0 {
		query.Set("limit", strconv.Itoa(n.limit))
	}
	var resp newsResponse
	if err := n.client.Get(ctx, "news", query, &resp); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "news", "fetch", "news request failed", err)
	}
	items := make([]production.NewsItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Headline) == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "news", "fetch", "no stories for "+date, nil)
	}
	return items, nil
}
