package nodes

import (
	"api/internal/engine"
)

// baseNode carries the display name shared by every node implementation.
type baseNode struct {
	name string
}

func (slf baseNode) Name() string { return slf.name }

// intConfig reads an integer config value, accepting the float64 numbers that
// come out of decoded JSON, and clamps it into [min, max]. Missing or
// malformed values fall back to the default.
func intConfig(config map[string]any, key string, def, min, max int) int {
	value := def
	switch v := config[key].(type) {
	case int:
		value = v
	case int64:
		value = int(v)
	case float64:
		value = int(v)
	}
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return value
}

func strConfig(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolConfig(config map[string]any, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}

// asDocuments normalizes a namespace value into a document slice. Values
// arrive either as the engine's native type or, after a round-trip through
// persistence, as decoded JSON.
func asDocuments(value any) []engine.Document {
	switch v := value.(type) {
	case []engine.Document:
		return v
	case []any:
		docs := make([]engine.Document, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			doc := engine.Document{}
			if content, ok := m["page_content"].(string); ok {
				doc.PageContent = content
			}
			if meta, ok := m["metadata"].(map[string]any); ok {
				doc.Metadata = meta
			}
			docs = append(docs, doc)
		}
		return docs
	default:
		return nil
	}
}
