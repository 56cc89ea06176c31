package engine

const (
	colorWhite uint8 = iota // not visited
	colorGrey               // on the traversal stack
	colorBlack              // done
)

// CalculateExecutionOrder computes a dependency-respecting linear order over
// the node set: for every connection the source node precedes the target
// node. Nodes are visited in insertion order so ties are deterministic, and
// unconnected nodes keep their insertion-order slot.
//
// The traversal is an explicit stack-based depth-first walk with three-color
// marking: revisiting a grey node means the connections form a cycle, which
// is reported as a CycleError instead of recursing unbounded. O(V+E).
//
// The result is cached on the workflow but recomputed on every run to pick
// up graph mutations.
func (slf *Workflow) CalculateExecutionOrder() ([]string, error) {
	// Incoming edges: target id -> source ids, in connection order.
	deps := make(map[string][]string, len(slf.nodes))
	for _, conn := range slf.connections {
		deps[conn.TargetNode] = append(deps[conn.TargetNode], conn.SourceNode)
	}

	colors := make(map[string]uint8, len(slf.nodes))
	order := make([]string, 0, len(slf.nodes))

	type frame struct {
		id   string
		next int // index of the next dependency to visit
	}

	for _, root := range slf.nodeOrder {
		if colors[root] != colorWhite {
			continue
		}
		stack := []frame{{id: root}}
		colors[root] = colorGrey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			sources := deps[top.id]

			if top.next < len(sources) {
				src := sources[top.next]
				top.next++
				if _, ok := slf.nodes[src]; !ok {
					continue
				}
				switch colors[src] {
				case colorWhite:
					colors[src] = colorGrey
					stack = append(stack, frame{id: src})
				case colorGrey:
					// Everything still grey on the stack is implicated.
					implicated := make([]string, 0, len(stack))
					for _, f := range stack {
						implicated = append(implicated, f.id)
					}
					return nil, &CycleError{Nodes: implicated}
				}
				continue
			}

			colors[top.id] = colorBlack
			order = append(order, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	slf.execOrder = order
	return order, nil
}
