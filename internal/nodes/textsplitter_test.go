package nodes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api/internal/engine"
)

func TestTextSplitter_ShortDocumentSingleChunk(t *testing.T) {
	splitter := NewTextSplitter("Splitter", map[string]any{"chunk_size": 1000, "chunk_overlap": 0})

	result := splitter.Process(context.Background(), map[string]any{
		engine.KeyDocuments: []engine.Document{{PageContent: "short text", Metadata: map[string]any{"page": 1}}},
	})
	require.True(t, result.Success, result.Error)

	chunks := result.Values[engine.KeyChunks].([]engine.Document)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].PageContent)
	assert.Equal(t, 1, chunks[0].Metadata["page"])
	assert.Equal(t, 0, chunks[0].Metadata["chunk"])
}

func TestTextSplitter_RespectsChunkSize(t *testing.T) {
	splitter := NewTextSplitter("Splitter", map[string]any{"chunk_size": 100, "chunk_overlap": 20})

	paragraphs := make([]string, 20)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 15)
	}
	text := strings.Join(paragraphs, "\n\n")

	result := splitter.Process(context.Background(), map[string]any{
		engine.KeyDocuments: []engine.Document{{PageContent: text}},
	})
	require.True(t, result.Success, result.Error)

	chunks := result.Values[engine.KeyChunks].([]engine.Document)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqualf(t, len(chunk.PageContent), 100, "chunk %d exceeds configured size", i)
		assert.NotEmpty(t, chunk.PageContent)
	}
}

func TestTextSplitter_HardCutsUnbrokenText(t *testing.T) {
	splitter := NewTextSplitter("Splitter", map[string]any{"chunk_size": 100, "chunk_overlap": 10})
	text := strings.Repeat("a", 450)

	result := splitter.Process(context.Background(), map[string]any{
		engine.KeyDocuments: []engine.Document{{PageContent: text}},
	})
	require.True(t, result.Success, result.Error)

	chunks := result.Values[engine.KeyChunks].([]engine.Document)
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].PageContent)
	for i := 1; i < len(chunks); i++ {
		// Each successive chunk repeats the 10-char overlap.
		rebuilt.WriteString(chunks[i].PageContent[10:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestTextSplitter_ConfigClamping(t *testing.T) {
	splitter := NewTextSplitter("Splitter", map[string]any{"chunk_size": float64(50), "chunk_overlap": float64(5000)})
	assert.Equal(t, 100, splitter.chunkSize, "below-minimum size clamps up")
	assert.Less(t, splitter.chunkOverlap, splitter.chunkSize, "overlap never reaches chunk size")
}

func TestTextSplitter_NoDocuments(t *testing.T) {
	splitter := NewTextSplitter("Splitter", nil)

	result := splitter.Process(context.Background(), map[string]any{})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "no documents")
}

func TestAsDocuments_DecodedJSONShape(t *testing.T) {
	docs := asDocuments([]any{
		map[string]any{"page_content": "hello", "metadata": map[string]any{"page": float64(2)}},
		"not a document",
	})
	require.Len(t, docs, 1)
	assert.Equal(t, "hello", docs[0].PageContent)
	assert.Equal(t, float64(2), docs[0].Metadata["page"])
}
