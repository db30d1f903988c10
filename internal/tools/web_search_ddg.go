package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// duckDuckGoRatePerSecond throttles scraping of DDG's HTML endpoint, which
// has no published API quota and blocks aggressive clients outright.
const duckDuckGoRatePerSecond = 0.5

// duckDuckGoSearchProvider scrapes DuckDuckGo's HTML-only search endpoint.
// There is no official API for this; it parses the same markup a browser
// without JavaScript would see.
type duckDuckGoSearchProvider struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newDuckDuckGoSearchProvider() *duckDuckGoSearchProvider {
	return &duckDuckGoSearchProvider{
		client:  &http.Client{Timeout: time.Duration(searchTimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(duckDuckGoRatePerSecond), 1),
	}
}

func (p *duckDuckGoSearchProvider) Name() string { return "duckduckgo" }

func (p *duckDuckGoSearchProvider) Search(ctx context.Context, params searchParams) ([]searchResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("duckduckgo: rate limit wait: %w", err)
	}

	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(params.Query))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: build request: %w", err)
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read response: %w", err)
	}

	return parseDuckDuckGoResults(string(body), params.Count), nil
}

// ddgResultPattern and ddgSnippetPattern (with the package's htmlTagPattern)
// extract plain-text results from DDG's server-rendered HTML; there is no
// JSON to decode.
var (
	ddgResultPattern  = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
)

func parseDuckDuckGoResults(html string, count int) []searchResult {
	linkMatches := ddgResultPattern.FindAllStringSubmatch(html, count+5)
	if len(linkMatches) == 0 {
		return nil
	}
	snippetMatches := ddgSnippetPattern.FindAllStringSubmatch(html, count+5)

	results := make([]searchResult, 0, count)
	for i := 0; i < len(linkMatches) && i < count; i++ {
		title := cleanDDGText(linkMatches[i][2])
		link := resolveDDGRedirect(linkMatches[i][1])

		desc := ""
		if i < len(snippetMatches) {
			desc = cleanDDGText(snippetMatches[i][1])
		}

		results = append(results, searchResult{Title: title, URL: link, Description: desc})
	}
	return results
}

func cleanDDGText(raw string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(raw, ""))
}

// resolveDDGRedirect unwraps DDG's outbound redirect links (/l/?uddg=...)
// to the real destination URL.
func resolveDDGRedirect(rawURL string) string {
	if !strings.Contains(rawURL, "uddg=") {
		return rawURL
	}
	unescaped, err := url.QueryUnescape(rawURL)
	if err != nil {
		return rawURL
	}
	idx := strings.Index(unescaped, "uddg=")
	if idx == -1 {
		return rawURL
	}
	extracted := unescaped[idx+len("uddg="):]
	if ampIdx := strings.Index(extracted, "&"); ampIdx != -1 {
		extracted = extracted[:ampIdx]
	}
	return extracted
}
