package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearch_SerpAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang workflows", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("num"))
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))

		json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]any{
				{"title": "First", "link": "https://one.example", "snippet": "one"},
				{"title": "Second", "link": "https://two.example", "snippet": "two"},
				{"title": "Third", "link": "https://three.example", "snippet": "three"},
			},
		})
	}))
	defer server.Close()

	node := NewWebSearch("Search", map[string]any{"num_results": 2}, "serp-key", "")
	node.serpURL = server.URL

	result := node.Process(context.Background(), map[string]any{"query": "golang workflows"})
	require.True(t, result.Success, result.Error)

	results := result.Values["search_results"].([]SearchResult)
	require.Len(t, results, 2, "results are capped at num_results")
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "https://one.example", results[0].URL)
	assert.Empty(t, results[0].Content)
}

func TestWebSearch_Brave(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]any{
					{"title": "Hit", "url": "https://hit.example", "description": "desc"},
				},
			},
		})
	}))
	defer server.Close()

	node := NewWebSearch("Search", map[string]any{"provider": "brave"}, "", "brave-key")
	node.braveURL = server.URL

	result := node.Process(context.Background(), map[string]any{"query": "anything"})
	require.True(t, result.Success, result.Error)

	results := result.Values["search_results"].([]SearchResult)
	require.Len(t, results, 1)
	assert.Equal(t, "Hit", results[0].Title)
	assert.Equal(t, "desc", results[0].Snippet)
}

func TestWebSearch_FetchContentConvertsHTML(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>"))
	}))
	defer page.Close()

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]any{
				{"title": "Page", "link": page.URL, "snippet": "s"},
			},
		})
	}))
	defer search.Close()

	node := NewWebSearch("Search", map[string]any{"fetch_content": true}, "serp-key", "")
	node.serpURL = search.URL

	result := node.Process(context.Background(), map[string]any{"query": "q"})
	require.True(t, result.Success, result.Error)

	results := result.Values["search_results"].([]SearchResult)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "# Title")
	assert.Contains(t, results[0].Content, "**bold**")
}

func TestWebSearch_MissingQuery(t *testing.T) {
	node := NewWebSearch("Search", nil, "serp-key", "")
	result := node.Process(context.Background(), map[string]any{})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no search query")
}

func TestWebSearch_MissingAPIKey(t *testing.T) {
	node := NewWebSearch("Search", map[string]any{"provider": "brave"}, "serp-key", "")
	result := node.Process(context.Background(), map[string]any{"query": "q"})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no API key")
}

func TestWebSearch_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	node := NewWebSearch("Search", nil, "serp-key", "")
	node.serpURL = server.URL

	result := node.Process(context.Background(), map[string]any{"query": "q"})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "429")
}
