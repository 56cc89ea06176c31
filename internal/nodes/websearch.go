package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"api/internal/engine"
)

const (
	providerSerpAPI = "serpapi"
	providerBrave   = "brave"

	fetchContentLimit = 8000
)

// SearchResult is one hit returned by a web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"`
}

// WebSearch queries an external search provider and optionally fetches each
// hit's page, converted to markdown so downstream nodes get clean text.
type WebSearch struct {
	baseNode
	provider     string
	apiKey       string
	numResults   int
	fetchContent bool
	client       *http.Client

	serpURL  string
	braveURL string
}

func NewWebSearch(name string, config map[string]any, serpAPIKey, braveAPIKey string) *WebSearch {
	provider := strConfig(config, "provider", providerSerpAPI)
	apiKey := serpAPIKey
	if provider == providerBrave {
		apiKey = braveAPIKey
	}
	return &WebSearch{
		baseNode:     baseNode{name: name},
		provider:     provider,
		apiKey:       apiKey,
		numResults:   intConfig(config, "num_results", 5, 1, 20),
		fetchContent: boolConfig(config, "fetch_content", false),
		client:       &http.Client{Timeout: 30 * time.Second},
		serpURL:      "https://serpapi.com/search",
		braveURL:     "https://api.search.brave.com/res/v1/web/search",
	}
}

func (slf *WebSearch) Type() engine.NodeType { return engine.NodeTypeWebSearch }
func (slf *WebSearch) Inputs() []string      { return []string{"query"} }
func (slf *WebSearch) Outputs() []string     { return []string{"search_results"} }

func (slf *WebSearch) Process(ctx context.Context, args map[string]any) engine.Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return engine.Fail("no search query provided")
	}
	if slf.apiKey == "" {
		return engine.Fail("no API key configured for provider %q", slf.provider)
	}

	var results []SearchResult
	var err error
	switch slf.provider {
	case providerSerpAPI:
		results, err = slf.searchSerpAPI(ctx, query)
	case providerBrave:
		results, err = slf.searchBrave(ctx, query)
	default:
		return engine.Fail("unknown search provider %q", slf.provider)
	}
	if err != nil {
		return engine.Fail("search failed: %v", err)
	}

	if slf.fetchContent {
		for i := range results {
			// Page fetches are best-effort; a dead link costs its content,
			// not the node.
			if content, fetchErr := slf.fetchPage(ctx, results[i].URL); fetchErr == nil {
				results[i].Content = content
			}
		}
	}

	return engine.Succeed(
		map[string]any{"search_results": results},
		map[string]any{"provider": slf.provider, "results": len(results)},
	)
}

func (slf *WebSearch) searchSerpAPI(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s?engine=google&q=%s&num=%s&api_key=%s",
		slf.serpURL, url.QueryEscape(query), strconv.Itoa(slf.numResults), url.QueryEscape(slf.apiKey))

	var raw struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := slf.getJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(raw.OrganicResults))
	for _, hit := range raw.OrganicResults {
		results = append(results, SearchResult{Title: hit.Title, URL: hit.Link, Snippet: hit.Snippet})
		if len(results) == slf.numResults {
			break
		}
	}
	return results, nil
}

func (slf *WebSearch) searchBrave(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s&count=%s",
		slf.braveURL, url.QueryEscape(query), strconv.Itoa(slf.numResults))

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": slf.apiKey,
	}
	if err := slf.getJSON(ctx, endpoint, headers, &raw); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(raw.Web.Results))
	for _, hit := range raw.Web.Results {
		results = append(results, SearchResult{Title: hit.Title, URL: hit.URL, Snippet: hit.Description})
		if len(results) == slf.numResults {
			break
		}
	}
	return results, nil
}

func (slf *WebSearch) getJSON(ctx context.Context, endpoint string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := slf.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	return json.Unmarshal(body, out)
}

// fetchPage downloads a result page and converts the HTML to markdown,
// truncated so one long article cannot flood the namespace.
func (slf *WebSearch) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := slf.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(markdown), fetchContentLimit), nil
}
