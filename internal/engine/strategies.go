package engine

// roleRule describes how a node role extracts its effective inputs from the
// shared namespace before connection bindings are layered on top. Adding a
// role means adding an entry here, not editing the executor's control flow.
type roleRule struct {
	// seed pulls role-specific keys out of the namespace. Connection
	// bindings applied afterwards take precedence over seeded values.
	seed func(results map[string]any) map[string]any

	// requireAny lists ports of which at least one must be bound after the
	// merge; when none is, the node is not invoked and its status becomes
	// an input-resolution error. Empty means the node copes on its own.
	requireAny []string

	// finalize runs after connection bindings, for derivations that need
	// the merged view (e.g. deriving a retriever from a vector store).
	finalize func(args map[string]any, results map[string]any)
}

func pickKeys(results map[string]any, keys ...string) map[string]any {
	picked := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := results[key]; ok {
			picked[key] = value
		}
	}
	return picked
}

var roleRules = map[NodeType]roleRule{
	NodeTypePDFLoader: {
		// The raw upload travels under file_content in the initial mapping.
		// The loader itself reports empty or unparseable bytes.
		seed: func(results map[string]any) map[string]any {
			return pickKeys(results, KeyFileContent)
		},
	},
	NodeTypeTextSplitter: {
		seed: func(results map[string]any) map[string]any {
			return pickKeys(results, KeyDocuments)
		},
		requireAny: []string{KeyDocuments},
	},
	NodeTypeVectorStore: {
		// Accepts either raw documents or splitter chunks, from a
		// connection or straight from the namespace.
		seed: func(results map[string]any) map[string]any {
			return pickKeys(results, KeyDocuments, KeyChunks)
		},
		requireAny: []string{KeyDocuments, KeyChunks},
	},
	NodeTypeQAChain: {
		seed: func(results map[string]any) map[string]any {
			return pickKeys(results, KeyQuestion, KeyCustomPrompt)
		},
		// No retriever bound directly: derive one from a vector store
		// handle in the namespace, through the explicit capability check.
		finalize: func(args map[string]any, results map[string]any) {
			if _, ok := args[KeyRetriever].(Retriever); ok {
				return
			}
			if provider, ok := results[KeyVectorStore].(RetrieverProvider); ok {
				args[KeyRetriever] = provider.AsRetriever()
			}
		},
	},
}
