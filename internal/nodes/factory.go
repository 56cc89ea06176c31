package nodes

import (
	"fmt"

	"api"
	"api/internal/engine"
)

// Factory builds node instances from their persisted type and config blob,
// sharing one OpenAI client and the Redis embedding cache across all nodes of
// a workflow.
type Factory struct {
	openAI      *OpenAIClient
	serpAPIKey  string
	braveAPIKey string
}

func NewFactory() *Factory {
	cfg := api.GetConfig()
	return &Factory{
		openAI:      NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL),
		serpAPIKey:  cfg.Search.SerpAPIKey,
		braveAPIKey: cfg.Search.BraveAPIKey,
	}
}

func (slf *Factory) embedder(config map[string]any) Embedder {
	model := strConfig(config, "embedding_model", "text-embedding-3-small")
	return NewOpenAIEmbedder(slf.openAI, model, api.Redis != nil)
}

// Build instantiates a node for the given role. Unknown types are rejected so
// a stale frontend cannot smuggle unsupported nodes into a workflow.
func (slf *Factory) Build(nodeType engine.NodeType, name string, config map[string]any) (engine.Node, error) {
	if name == "" {
		name = string(nodeType)
	}
	switch nodeType {
	case engine.NodeTypePDFLoader:
		return NewPDFLoader(name), nil
	case engine.NodeTypeTextSplitter:
		return NewTextSplitter(name, config), nil
	case engine.NodeTypeEmbeddings:
		return NewEmbeddingsNode(name, slf.embedder(config)), nil
	case engine.NodeTypeVectorStore:
		return NewVectorStoreNode(name, slf.embedder(config)), nil
	case engine.NodeTypeQAChain:
		return NewQAChain(name, slf.openAI, config), nil
	case engine.NodeTypeWebSearch:
		return NewWebSearch(name, config, slf.serpAPIKey, slf.braveAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported node type %q", nodeType)
	}
}
