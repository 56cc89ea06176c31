package nodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api/internal/engine"
)

// fakeEmbedder maps known texts to fixed vectors and counts calls.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	batches [][]string
}

func (slf *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	slf.calls++
	slf.batches = append(slf.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := slf.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("quota exceeded")
}

func TestMemoryVectorStore_RetrievesByCosineSimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"cats are mammals": {1, 0, 0},
		"rust is a metal":  {0, 1, 0},
		"dogs are mammals": {0.9, 0.1, 0},
		"about cats":       {1, 0.05, 0},
	}}

	store := NewMemoryVectorStore(embedder)
	require.NoError(t, store.AddDocuments(context.Background(), []engine.Document{
		{PageContent: "cats are mammals"},
		{PageContent: "rust is a metal"},
		{PageContent: "dogs are mammals"},
	}))
	require.Equal(t, 3, store.Len())

	retriever := store.AsRetriever()
	docs, err := retriever.Retrieve(context.Background(), "about cats", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "cats are mammals", docs[0].PageContent)
	assert.Equal(t, "dogs are mammals", docs[1].PageContent)
}

func TestMemoryVectorStore_EmbedsInBatches(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := NewMemoryVectorStore(embedder)

	docs := make([]engine.Document, 150)
	for i := range docs {
		docs[i] = engine.Document{PageContent: fmt.Sprintf("chunk %d", i)}
	}
	require.NoError(t, store.AddDocuments(context.Background(), docs))

	require.Equal(t, 3, embedder.calls)
	assert.Len(t, embedder.batches[0], 64)
	assert.Len(t, embedder.batches[1], 64)
	assert.Len(t, embedder.batches[2], 22)
	assert.Equal(t, 150, store.Len())
}

func TestMemoryVectorStore_KLargerThanIndex(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := NewMemoryVectorStore(embedder)
	require.NoError(t, store.AddDocuments(context.Background(), []engine.Document{
		{PageContent: "only one"},
	}))

	docs, err := store.AsRetriever().Retrieve(context.Background(), "anything", 6)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestVectorStoreNode_PrefersChunksOverDocuments(t *testing.T) {
	embedder := &fakeEmbedder{}
	node := NewVectorStoreNode("Store", embedder)

	result := node.Process(context.Background(), map[string]any{
		engine.KeyDocuments: []engine.Document{{PageContent: "whole page"}},
		engine.KeyChunks: []engine.Document{
			{PageContent: "chunk a"},
			{PageContent: "chunk b"},
		},
	})
	require.True(t, result.Success, result.Error)

	store, ok := result.Values[engine.KeyVectorStore].(*MemoryVectorStore)
	require.True(t, ok)
	assert.Equal(t, 2, store.Len(), "chunks take precedence over raw documents")

	_, ok = result.Values[engine.KeyRetriever].(engine.Retriever)
	assert.True(t, ok)

	var provider engine.RetrieverProvider = store
	assert.NotNil(t, provider.AsRetriever())
}

func TestVectorStoreNode_NoInput(t *testing.T) {
	node := NewVectorStoreNode("Store", &fakeEmbedder{})
	result := node.Process(context.Background(), map[string]any{})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no documents or chunks")
}

func TestVectorStoreNode_EmbeddingFailure(t *testing.T) {
	node := NewVectorStoreNode("Store", failingEmbedder{})
	result := node.Process(context.Background(), map[string]any{
		engine.KeyChunks: []engine.Document{{PageContent: "x"}},
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "quota exceeded")
}
