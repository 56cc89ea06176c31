package nodes

import (
	"api/internal/engine"
	"api/pkg"
)

// ConfigField describes one editable setting in a node's config panel.
type ConfigField struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Type    string   `json:"type"` // "int", "string", "bool", "select"
	Default any      `json:"default,omitempty"`
	Min     *int     `json:"min,omitempty"`
	Max     *int     `json:"max,omitempty"`
	Options []string `json:"options,omitempty"`
}

// NodeSchema is the frontend-facing description of a node role: its ports and
// configurable fields.
type NodeSchema struct {
	Type        engine.NodeType `json:"type"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Inputs      []string        `json:"inputs"`
	Outputs     []string        `json:"outputs"`
	Config      []ConfigField   `json:"config"`
}

// Schemas lists every supported node role for the palette endpoint.
func Schemas() []NodeSchema {
	return []NodeSchema{
		{
			Type:        engine.NodeTypePDFLoader,
			Label:       "PDF Loader",
			Description: "Extracts text from an uploaded PDF, one document per page.",
			Inputs:      []string{engine.KeyFileContent},
			Outputs:     []string{engine.KeyDocuments},
		},
		{
			Type:        engine.NodeTypeTextSplitter,
			Label:       "Text Splitter",
			Description: "Cuts documents into overlapping chunks sized for embedding.",
			Inputs:      []string{engine.KeyDocuments},
			Outputs:     []string{engine.KeyChunks},
			Config: []ConfigField{
				{Name: "chunk_size", Label: "Chunk size", Type: "int", Default: 1000, Min: pkg.ToPtr(100), Max: pkg.ToPtr(10000)},
				{Name: "chunk_overlap", Label: "Chunk overlap", Type: "int", Default: 200, Min: pkg.ToPtr(0), Max: pkg.ToPtr(1000)},
			},
		},
		{
			Type:        engine.NodeTypeEmbeddings,
			Label:       "Embeddings",
			Description: "Embeds a text into a vector.",
			Inputs:      []string{"text"},
			Outputs:     []string{"embedding"},
			Config: []ConfigField{
				{Name: "embedding_model", Label: "Embedding model", Type: "string", Default: "text-embedding-3-small"},
			},
		},
		{
			Type:        engine.NodeTypeVectorStore,
			Label:       "Vector Store",
			Description: "Indexes chunks in an in-memory similarity store and exposes a retriever.",
			Inputs:      []string{engine.KeyDocuments, engine.KeyChunks},
			Outputs:     []string{engine.KeyVectorStore, engine.KeyRetriever},
			Config: []ConfigField{
				{Name: "embedding_model", Label: "Embedding model", Type: "string", Default: "text-embedding-3-small"},
			},
		},
		{
			Type:        engine.NodeTypeQAChain,
			Label:       "QA Chain",
			Description: "Answers a question from retrieved context.",
			Inputs:      []string{engine.KeyRetriever, engine.KeyQuestion, engine.KeyCustomPrompt},
			Outputs:     []string{engine.KeyAnswer, "sources"},
			Config: []ConfigField{
				{Name: "model", Label: "Model", Type: "string", Default: "gpt-4o-mini"},
				{Name: "structured", Label: "Structured citations", Type: "bool", Default: false},
			},
		},
		{
			Type:        engine.NodeTypeWebSearch,
			Label:       "Web Search",
			Description: "Searches the web and optionally fetches page content as markdown.",
			Inputs:      []string{"query"},
			Outputs:     []string{"search_results"},
			Config: []ConfigField{
				{Name: "provider", Label: "Provider", Type: "select", Default: providerSerpAPI, Options: []string{providerSerpAPI, providerBrave}},
				{Name: "num_results", Label: "Results", Type: "int", Default: 5, Min: pkg.ToPtr(1), Max: pkg.ToPtr(20)},
				{Name: "fetch_content", Label: "Fetch page content", Type: "bool", Default: false},
			},
		},
	}
}
