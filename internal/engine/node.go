package engine

import (
	"context"
	"fmt"
)

type NodeType string

const (
	NodeTypePDFLoader    NodeType = "pdf_loader"
	NodeTypeTextSplitter NodeType = "text_splitter"
	NodeTypeEmbeddings   NodeType = "embeddings"
	NodeTypeVectorStore  NodeType = "vector_store"
	NodeTypeQAChain      NodeType = "qa_chain"
	NodeTypeWebSearch    NodeType = "web_search"
)

// Well-known keys in the shared result namespace. The executor only ever
// inspects these; every other key is opaque port plumbing.
const (
	KeyFileContent  = "file_content"
	KeyQuestion     = "question"
	KeyCustomPrompt = "custom_prompt"
	KeyDocuments    = "documents"
	KeyChunks       = "chunks"
	KeyRetriever    = "retriever"
	KeyVectorStore  = "vector_store"
	KeyAnswer       = "answer"
)

// Node is a processing unit with named input/output ports.
// Process receives its effective inputs keyed by port name and must never
// panic on its own behalf; failures are reported through the Result variant.
// The executor still guards against panics from misbehaving implementations.
type Node interface {
	Type() NodeType
	Name() string
	Inputs() []string
	Outputs() []string
	Process(ctx context.Context, args map[string]any) Result
}

// Result is the discriminated outcome of one node invocation: either a set
// of named output values plus metadata, or an error message.
type Result struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Values   map[string]any `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Succeed builds a success result with output values keyed by port name.
func Succeed(values map[string]any, metadata map[string]any) Result {
	return Result{Success: true, Values: values, Metadata: metadata}
}

// Fail builds a failure result with a formatted error message.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Document is a unit of text flowing between nodes (a PDF page, a chunk).
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Retriever is the capability contract a qa_chain node needs: given a query,
// return the k most relevant documents.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// RetrieverProvider is implemented by values (typically a vector store
// handle) that can hand out a Retriever. The executor uses this as an
// explicit capability check instead of probing attributes at runtime.
type RetrieverProvider interface {
	AsRetriever() Retriever
}
