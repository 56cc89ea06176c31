package engine

// RunContext is the shared result namespace for one execution: a single
// mapping from output-port name to last-produced value. It is seeded with
// the caller's initial values and mutated by an explicit merge step after
// each node completes.
//
// Keys are port names, not node ids. When two nodes produce the same output
// port during one run, the later-executed node overwrites the earlier value.
// Last-writer-wins is the documented contract, not an accident.
type RunContext struct {
	results map[string]any
}

func newRunContext(initial map[string]any, customPrompt string) *RunContext {
	results := make(map[string]any, len(initial)+1)
	for k, v := range initial {
		results[k] = v
	}
	if customPrompt != "" {
		if _, ok := results[KeyCustomPrompt]; !ok {
			results[KeyCustomPrompt] = customPrompt
		}
	}
	return &RunContext{results: results}
}

// merge writes every declared output port present in a successful result
// into the namespace, overwriting prior values under the same port name.
func (slf *RunContext) merge(node Node, result Result) {
	if !result.Success {
		return
	}
	for _, port := range node.Outputs() {
		if value, ok := result.Values[port]; ok {
			slf.results[port] = value
		}
	}
}

// Results exposes the namespace; it is handed back to the caller once the
// run completes.
func (slf *RunContext) Results() map[string]any {
	return slf.results
}
