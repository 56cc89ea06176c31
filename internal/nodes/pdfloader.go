package nodes

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/ledongthuc/pdf"

	"api/internal/engine"
)

// PDFLoader extracts one document per PDF page from raw file bytes handed in
// under the file_content port.
type PDFLoader struct {
	baseNode
}

func NewPDFLoader(name string) *PDFLoader {
	return &PDFLoader{baseNode{name: name}}
}

func (slf *PDFLoader) Type() engine.NodeType { return engine.NodeTypePDFLoader }
func (slf *PDFLoader) Inputs() []string      { return []string{engine.KeyFileContent} }
func (slf *PDFLoader) Outputs() []string     { return []string{engine.KeyDocuments} }

func (slf *PDFLoader) Process(_ context.Context, args map[string]any) engine.Result {
	content := fileBytes(args[engine.KeyFileContent])
	if len(content) == 0 {
		return engine.Fail("no file content provided")
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return engine.Fail("failed to parse PDF: %v", err)
	}

	total := reader.NumPage()
	docs := make([]engine.Document, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, engine.Document{
			PageContent: text,
			Metadata: map[string]any{
				"page":        i,
				"total_pages": total,
			},
		})
	}

	if len(docs) == 0 {
		return engine.Fail("PDF contains no extractable text")
	}

	return engine.Succeed(
		map[string]any{engine.KeyDocuments: docs},
		map[string]any{"pages": total, "documents": len(docs)},
	)
}

// fileBytes accepts raw bytes or a base64 string, which is how uploads arrive
// over the JSON API.
func fileBytes(value any) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return []byte(v)
		}
		return decoded
	default:
		return nil
	}
}
