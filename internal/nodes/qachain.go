package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"api/internal/engine"
)

const (
	qaTopK      = 6
	qaMaxTokens = 800

	qaBasePrompt = `You are a helpful assistant answering questions about a document.
Use only the context below. If the context does not contain the answer, say you do not know.`

	qaStructuredInstruction = `Respond with a JSON object of the shape {"answer": "...", "citations": [1, 2]} where citations are the numbers of the context passages you used.`
)

// QAChain answers a question against retrieved context. In structured mode
// the model is asked for JSON and the reply is repaired before decoding, since
// models routinely emit almost-JSON.
type QAChain struct {
	baseNode
	client     *OpenAIClient
	model      string
	structured bool
}

func NewQAChain(name string, client *OpenAIClient, config map[string]any) *QAChain {
	return &QAChain{
		baseNode:   baseNode{name: name},
		client:     client,
		model:      strConfig(config, "model", "gpt-4o-mini"),
		structured: boolConfig(config, "structured", false),
	}
}

func (slf *QAChain) Type() engine.NodeType { return engine.NodeTypeQAChain }

func (slf *QAChain) Inputs() []string {
	return []string{engine.KeyRetriever, engine.KeyQuestion, engine.KeyCustomPrompt}
}

func (slf *QAChain) Outputs() []string {
	return []string{engine.KeyAnswer, "sources"}
}

func (slf *QAChain) Process(ctx context.Context, args map[string]any) engine.Result {
	question, _ := args[engine.KeyQuestion].(string)
	if strings.TrimSpace(question) == "" {
		return engine.Fail("no question provided")
	}

	retriever, ok := args[engine.KeyRetriever].(engine.Retriever)
	if !ok {
		return engine.Fail("no retriever available; connect a vector store")
	}

	docs, err := retriever.Retrieve(ctx, question, qaTopK)
	if err != nil {
		return engine.Fail("retrieval failed: %v", err)
	}
	if len(docs) == 0 {
		return engine.Fail("retriever returned no context")
	}

	customPrompt, _ := args[engine.KeyCustomPrompt].(string)
	system := slf.systemPrompt(customPrompt, docs)

	reply, err := slf.client.ChatCompletion(ctx, slf.model, []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}, qaMaxTokens, 0)
	if err != nil {
		return engine.Fail("chat completion failed: %v", err)
	}

	answer := strings.TrimSpace(reply)
	sources := sourceLabels(docs)

	if slf.structured {
		parsed, citations, parseErr := parseStructuredAnswer(reply, docs)
		if parseErr == nil {
			answer = parsed
			if len(citations) > 0 {
				sources = citations
			}
		}
	}

	if answer == "" {
		return engine.Fail("model returned an empty answer")
	}

	return engine.Succeed(
		map[string]any{engine.KeyAnswer: answer, "sources": sources},
		map[string]any{"model": slf.model, "context_chunks": len(docs)},
	)
}

// systemPrompt assembles the instruction block: the user's custom prompt, when
// set, sits above a separator so it visibly frames the canned instructions.
func (slf *QAChain) systemPrompt(customPrompt string, docs []engine.Document) string {
	var b strings.Builder
	if custom := strings.TrimSpace(customPrompt); custom != "" {
		b.WriteString(custom)
		b.WriteString("\n-----\n")
	}
	b.WriteString(qaBasePrompt)
	if slf.structured {
		b.WriteString("\n")
		b.WriteString(qaStructuredInstruction)
	}
	b.WriteString("\n\nContext:\n")
	for i, doc := range docs {
		b.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, doc.PageContent))
	}
	return b.String()
}

type structuredAnswer struct {
	Answer    string `json:"answer"`
	Citations []int  `json:"citations"`
}

// parseStructuredAnswer repairs and decodes the model's JSON reply, mapping
// citation indices back onto source labels.
func parseStructuredAnswer(reply string, docs []engine.Document) (string, []string, error) {
	repaired, err := jsonrepair.JSONRepair(reply)
	if err != nil {
		return "", nil, err
	}

	var parsed structuredAnswer
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return "", nil, fmt.Errorf("structured reply has no answer field")
	}

	labels := sourceLabels(docs)
	var citations []string
	for _, n := range parsed.Citations {
		if n >= 1 && n <= len(labels) {
			citations = append(citations, labels[n-1])
		}
	}
	return strings.TrimSpace(parsed.Answer), citations, nil
}

// sourceLabels renders human-readable provenance, preferring page numbers
// carried through the loader's metadata.
func sourceLabels(docs []engine.Document) []string {
	labels := make([]string, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, doc := range docs {
		label := fmt.Sprintf("Chunk %d", i+1)
		if page, ok := pageNumber(doc.Metadata); ok {
			label = fmt.Sprintf("Page %d", page)
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	return labels
}

func pageNumber(meta map[string]any) (int, bool) {
	switch v := meta["page"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
