package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api/internal/engine"
)

type staticRetriever struct {
	docs []engine.Document
	err  error

	gotQuery string
	gotK     int
}

func (slf *staticRetriever) Retrieve(_ context.Context, query string, k int) ([]engine.Document, error) {
	slf.gotQuery = query
	slf.gotK = k
	return slf.docs, slf.err
}

// chatServer fakes the chat-completions endpoint and records the last request.
func chatServer(t *testing.T, reply string) (*httptest.Server, *chatCompletionRequest) {
	t.Helper()
	var last chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&last))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, &last
}

func qaDocs() []engine.Document {
	return []engine.Document{
		{PageContent: "The capital of France is Paris.", Metadata: map[string]any{"page": 3}},
		{PageContent: "France is in Europe.", Metadata: map[string]any{"page": 7}},
	}
}

func TestQAChain_AnswersWithSources(t *testing.T) {
	server, last := chatServer(t, "Paris is the capital.")
	client := NewOpenAIClient("test-key", server.URL)

	retriever := &staticRetriever{docs: qaDocs()}
	qa := NewQAChain("QA", client, nil)

	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever: engine.Retriever(retriever),
		engine.KeyQuestion:  "What is the capital of France?",
	})
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "Paris is the capital.", result.Values[engine.KeyAnswer])
	assert.Equal(t, []string{"Page 3", "Page 7"}, result.Values["sources"])

	assert.Equal(t, "What is the capital of France?", retriever.gotQuery)
	assert.Equal(t, qaTopK, retriever.gotK)

	require.Len(t, last.Messages, 2)
	assert.Equal(t, "system", last.Messages[0].Role)
	assert.Contains(t, last.Messages[0].Content, "The capital of France is Paris.")
	assert.Equal(t, qaMaxTokens, last.MaxTokens)
}

func TestQAChain_CustomPromptSitsAboveSeparator(t *testing.T) {
	server, last := chatServer(t, "Oui.")
	client := NewOpenAIClient("test-key", server.URL)

	qa := NewQAChain("QA", client, nil)
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever:    engine.Retriever(&staticRetriever{docs: qaDocs()}),
		engine.KeyQuestion:     "Where is Paris?",
		engine.KeyCustomPrompt: "Answer in French.",
	})
	require.True(t, result.Success, result.Error)

	system := last.Messages[0].Content
	assert.True(t, strings.HasPrefix(system, "Answer in French.\n-----\n"),
		"custom prompt sits above the separator, got: %s", system)
}

func TestQAChain_StructuredModeParsesRepairedJSON(t *testing.T) {
	// Trailing comma and single quotes: the kind of almost-JSON models emit.
	server, _ := chatServer(t, `{'answer': 'Paris', 'citations': [1,],}`)
	client := NewOpenAIClient("test-key", server.URL)

	qa := NewQAChain("QA", client, map[string]any{"structured": true})
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever: engine.Retriever(&staticRetriever{docs: qaDocs()}),
		engine.KeyQuestion:  "Capital of France?",
	})
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "Paris", result.Values[engine.KeyAnswer])
	assert.Equal(t, []string{"Page 3"}, result.Values["sources"])
}

func TestQAChain_StructuredModeFallsBackOnGarbage(t *testing.T) {
	server, _ := chatServer(t, "Just a plain sentence.")
	client := NewOpenAIClient("test-key", server.URL)

	qa := NewQAChain("QA", client, map[string]any{"structured": true})
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever: engine.Retriever(&staticRetriever{docs: qaDocs()}),
		engine.KeyQuestion:  "Capital of France?",
	})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Just a plain sentence.", result.Values[engine.KeyAnswer])
}

func TestQAChain_MissingQuestion(t *testing.T) {
	qa := NewQAChain("QA", NewOpenAIClient("k", "http://unused"), nil)
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever: engine.Retriever(&staticRetriever{docs: qaDocs()}),
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no question")
}

func TestQAChain_MissingRetriever(t *testing.T) {
	qa := NewQAChain("QA", NewOpenAIClient("k", "http://unused"), nil)
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyQuestion: "Anything?",
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no retriever")
}

func TestQAChain_RetrievalError(t *testing.T) {
	qa := NewQAChain("QA", NewOpenAIClient("k", "http://unused"), nil)
	result := qa.Process(context.Background(), map[string]any{
		engine.KeyRetriever: engine.Retriever(&staticRetriever{err: fmt.Errorf("index gone")}),
		engine.KeyQuestion:  "Anything?",
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "index gone")
}
