package nodes

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"api/internal/engine"
	"api/pkg"
)

// Embedder turns texts into vectors. The vector store and the embeddings node
// both depend on this rather than on a concrete client, so tests can plug in
// a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const embeddingCacheTTL = 7 * 24 * time.Hour

// OpenAIEmbedder embeds through the OpenAI embeddings endpoint, with an
// optional Redis cache in front keyed by sha256(model|text). Identical texts
// across runs then cost one API call total.
type OpenAIEmbedder struct {
	client *OpenAIClient
	model  string
	cached bool
}

func NewOpenAIEmbedder(client *OpenAIClient, model string, cached bool) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model, cached: cached}
}

func (slf *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if cached, ok := slf.cacheGet(text); ok {
			vectors[i] = cached
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	input := make([]string, len(missing))
	for j, i := range missing {
		input[j] = texts[i]
	}

	fresh, err := slf.client.Embed(ctx, slf.model, input)
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		vectors[i] = fresh[j]
		slf.cacheSet(texts[i], fresh[j])
	}
	return vectors, nil
}

func (slf *OpenAIEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", slf.model, text)))
	return fmt.Sprintf("embedding:%x", sum)
}

func (slf *OpenAIEmbedder) cacheGet(text string) ([]float32, bool) {
	if !slf.cached {
		return nil, false
	}
	var vector []float32
	if err := pkg.RedisGet(slf.cacheKey(text), &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (slf *OpenAIEmbedder) cacheSet(text string, vector []float32) {
	if !slf.cached {
		return
	}
	// Cache writes are best-effort; an unreachable Redis must not fail a run.
	_ = pkg.RedisSet(slf.cacheKey(text), vector, embeddingCacheTTL)
}

// EmbeddingsNode embeds a single text from the namespace. It exists for
// workflows that want raw vectors out; the vector store embeds its own
// documents internally.
type EmbeddingsNode struct {
	baseNode
	embedder Embedder
}

func NewEmbeddingsNode(name string, embedder Embedder) *EmbeddingsNode {
	return &EmbeddingsNode{baseNode: baseNode{name: name}, embedder: embedder}
}

func (slf *EmbeddingsNode) Type() engine.NodeType { return engine.NodeTypeEmbeddings }
func (slf *EmbeddingsNode) Inputs() []string      { return []string{"text"} }
func (slf *EmbeddingsNode) Outputs() []string     { return []string{"embedding"} }

func (slf *EmbeddingsNode) Process(ctx context.Context, args map[string]any) engine.Result {
	text, _ := args["text"].(string)
	if text == "" {
		return engine.Fail("no text to embed")
	}

	vectors, err := slf.embedder.Embed(ctx, []string{text})
	if err != nil {
		return engine.Fail("embedding failed: %v", err)
	}

	return engine.Succeed(
		map[string]any{"embedding": vectors[0]},
		map[string]any{"dimensions": len(vectors[0])},
	)
}
