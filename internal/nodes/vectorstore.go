package nodes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"api/internal/engine"
)

// embedBatchSize bounds how many texts go into one embeddings request.
const embedBatchSize = 64

// MemoryVectorStore is an in-memory cosine-similarity index over embedded
// documents. It is the value published under the vector_store port and hands
// out retrievers for downstream qa_chain nodes.
type MemoryVectorStore struct {
	embedder Embedder

	mu      sync.RWMutex
	docs    []engine.Document
	vectors [][]float32
}

func NewMemoryVectorStore(embedder Embedder) *MemoryVectorStore {
	return &MemoryVectorStore{embedder: embedder}
}

// AddDocuments embeds and indexes documents in batches.
func (slf *MemoryVectorStore) AddDocuments(ctx context.Context, docs []engine.Document) error {
	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.PageContent
		}
		vectors, err := slf.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch starting at %d: %w", start, err)
		}

		slf.mu.Lock()
		slf.docs = append(slf.docs, batch...)
		slf.vectors = append(slf.vectors, vectors...)
		slf.mu.Unlock()
	}
	return nil
}

// Len reports how many documents are indexed.
func (slf *MemoryVectorStore) Len() int {
	slf.mu.RLock()
	defer slf.mu.RUnlock()
	return len(slf.docs)
}

// AsRetriever satisfies the capability contract the executor probes when a
// qa_chain node has no retriever bound.
func (slf *MemoryVectorStore) AsRetriever() engine.Retriever {
	return &storeRetriever{store: slf}
}

type storeRetriever struct {
	store *MemoryVectorStore
}

func (slf *storeRetriever) Retrieve(ctx context.Context, query string, k int) ([]engine.Document, error) {
	vectors, err := slf.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return slf.store.search(vectors[0], k), nil
}

func (slf *MemoryVectorStore) search(query []float32, k int) []engine.Document {
	slf.mu.RLock()
	defer slf.mu.RUnlock()

	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, 0, len(slf.vectors))
	for i, vector := range slf.vectors {
		scores = append(scores, scored{index: i, score: cosineSimilarity(query, vector)})
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	result := make([]engine.Document, 0, k)
	for _, s := range scores[:k] {
		result = append(result, slf.docs[s.index])
	}
	return result
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorStoreNode builds a MemoryVectorStore from incoming chunks (preferred)
// or raw documents and publishes both the store handle and a retriever.
type VectorStoreNode struct {
	baseNode
	embedder Embedder
}

func NewVectorStoreNode(name string, embedder Embedder) *VectorStoreNode {
	return &VectorStoreNode{baseNode: baseNode{name: name}, embedder: embedder}
}

func (slf *VectorStoreNode) Type() engine.NodeType { return engine.NodeTypeVectorStore }

func (slf *VectorStoreNode) Inputs() []string {
	return []string{engine.KeyDocuments, engine.KeyChunks}
}

func (slf *VectorStoreNode) Outputs() []string {
	return []string{engine.KeyVectorStore, engine.KeyRetriever}
}

func (slf *VectorStoreNode) Process(ctx context.Context, args map[string]any) engine.Result {
	docs := asDocuments(args[engine.KeyChunks])
	if len(docs) == 0 {
		docs = asDocuments(args[engine.KeyDocuments])
	}
	if len(docs) == 0 {
		return engine.Fail("no documents or chunks to index")
	}

	store := NewMemoryVectorStore(slf.embedder)
	if err := store.AddDocuments(ctx, docs); err != nil {
		return engine.Fail("indexing failed: %v", err)
	}

	return engine.Succeed(
		map[string]any{
			engine.KeyVectorStore: store,
			engine.KeyRetriever:   store.AsRetriever(),
		},
		map[string]any{"indexed": store.Len()},
	)
}
