package nodes

import (
	"context"
	"strings"

	"api/internal/engine"
)

// splitSeparators is the preference order for recursive splitting: paragraph
// break, line break, word boundary, then hard character cut.
var splitSeparators = []string{"\n\n", "\n", " ", ""}

// TextSplitter cuts documents into overlapping chunks sized for embedding.
type TextSplitter struct {
	baseNode
	chunkSize    int
	chunkOverlap int
}

func NewTextSplitter(name string, config map[string]any) *TextSplitter {
	size := intConfig(config, "chunk_size", 1000, 100, 10000)
	overlap := intConfig(config, "chunk_overlap", 200, 0, 1000)
	if overlap >= size {
		overlap = size / 2
	}
	return &TextSplitter{
		baseNode:     baseNode{name: name},
		chunkSize:    size,
		chunkOverlap: overlap,
	}
}

func (slf *TextSplitter) Type() engine.NodeType { return engine.NodeTypeTextSplitter }
func (slf *TextSplitter) Inputs() []string      { return []string{engine.KeyDocuments} }
func (slf *TextSplitter) Outputs() []string     { return []string{engine.KeyChunks} }

func (slf *TextSplitter) Process(_ context.Context, args map[string]any) engine.Result {
	docs := asDocuments(args[engine.KeyDocuments])
	if len(docs) == 0 {
		return engine.Fail("no documents to split")
	}

	var chunks []engine.Document
	for _, doc := range docs {
		for i, piece := range slf.split(doc.PageContent) {
			meta := map[string]any{"chunk": i}
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, engine.Document{PageContent: piece, Metadata: meta})
		}
	}

	if len(chunks) == 0 {
		return engine.Fail("documents contain no text to split")
	}

	return engine.Succeed(
		map[string]any{engine.KeyChunks: chunks},
		map[string]any{"chunks": len(chunks), "chunk_size": slf.chunkSize, "chunk_overlap": slf.chunkOverlap},
	)
}

// split recursively cuts text along the separator hierarchy, merging adjacent
// pieces back together up to chunkSize with chunkOverlap of carry-over.
func (slf *TextSplitter) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= slf.chunkSize {
		return []string{text}
	}
	return slf.splitWith(text, 0)
}

func (slf *TextSplitter) splitWith(text string, sepIndex int) []string {
	if sepIndex >= len(splitSeparators) || splitSeparators[sepIndex] == "" {
		return slf.hardCut(text)
	}
	sep := splitSeparators[sepIndex]

	var chunks []string
	var fitting []string
	flushFitting := func() {
		if len(fitting) > 0 {
			chunks = append(chunks, slf.merge(fitting, sep)...)
			fitting = nil
		}
	}

	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(part) <= slf.chunkSize {
			fitting = append(fitting, part)
			continue
		}
		// Oversized part: finish the pending run, then descend to the next
		// finer separator for this part alone.
		flushFitting()
		chunks = append(chunks, slf.splitWith(part, sepIndex+1)...)
	}
	flushFitting()
	return chunks
}

// merge greedily packs fitting pieces into chunks no longer than chunkSize,
// seeding each new chunk with the tail of the previous one for context
// continuity. The overlap tail is dropped when it would push a chunk over the
// size limit.
func (slf *TextSplitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var current strings.Builder

	overlapTail := func(chunk string) string {
		if slf.chunkOverlap == 0 || chunk == "" {
			return ""
		}
		if len(chunk) > slf.chunkOverlap {
			return chunk[len(chunk)-slf.chunkOverlap:]
		}
		return chunk
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(sep)+len(piece) > slf.chunkSize {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			if tail := overlapTail(chunk); tail != "" && len(tail)+len(sep)+len(piece) <= slf.chunkSize {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (slf *TextSplitter) hardCut(text string) []string {
	step := slf.chunkSize - slf.chunkOverlap
	if step <= 0 {
		step = slf.chunkSize
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + slf.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
