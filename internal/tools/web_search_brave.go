package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// braveSearchRatePerSecond caps requests against Brave's API to stay well
// clear of its free-tier rate limit.
const braveSearchRatePerSecond = 1

// braveSearchProvider queries Brave's web search API.
type braveSearchProvider struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func newBraveSearchProvider(apiKey string) *braveSearchProvider {
	return &braveSearchProvider{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: time.Duration(searchTimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(braveSearchRatePerSecond), 1),
	}
}

func (p *braveSearchProvider) Name() string { return "brave" }

func (p *braveSearchProvider) Search(ctx context.Context, params searchParams) ([]searchResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("brave: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.buildURL(params), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("brave: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave: API returned %d: %s", resp.StatusCode, truncateStr(string(body), 200))
	}

	return parseBraveResponse(body)
}

func (p *braveSearchProvider) buildURL(params searchParams) string {
	q := url.Values{}
	q.Set("q", params.Query)
	q.Set("count", fmt.Sprintf("%d", params.Count))

	if params.Country != "" {
		q.Set("country", params.Country)
	}
	if params.SearchLang != "" {
		q.Set("search_lang", params.SearchLang)
	}
	if params.UILang != "" {
		q.Set("ui_lang", params.UILang)
	}
	if f := normalizeFreshness(params.Freshness); f != "" {
		q.Set("freshness", f)
	}

	return braveSearchEndpoint + "?" + q.Encode()
}

func parseBraveResponse(body []byte) ([]searchResult, error) {
	var decoded struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("brave: parse response: %w", err)
	}

	results := make([]searchResult, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		results = append(results, searchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return results, nil
}
