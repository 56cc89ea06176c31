package engine

import (
	"fmt"
	"strings"
)

// Status is the last known execution state of a node.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Position is opaque canvas metadata, stored and passed through untouched.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection is a directed binding from one node's output port to another
// node's input port. It holds node ids only and does not own its endpoints.
type Connection struct {
	ID           string `json:"id"`
	SourceNode   string `json:"source_node"`
	SourceOutput string `json:"source_output"`
	TargetNode   string `json:"target_node"`
	TargetInput  string `json:"target_input"`
}

// NodeEntry is what the workflow tracks per registered node: the instance
// itself plus its last execution status, raw result and canvas position.
type NodeEntry struct {
	Instance Node
	Status   Status
	Result   Result
	Position Position
	Config   map[string]any
}

// Workflow owns a set of nodes, the connections between them and the cached
// execution order. It is not safe for concurrent use: the service layer
// serializes runs per workflow.
type Workflow struct {
	nodes        map[string]*NodeEntry
	nodeOrder    []string // insertion order, keeps execution order deterministic
	connections  []Connection
	execOrder    []string // last calculated execution order
	customPrompt string
}

func NewWorkflow(customPrompt string) *Workflow {
	return &Workflow{
		nodes:        make(map[string]*NodeEntry),
		customPrompt: strings.TrimSpace(customPrompt),
	}
}

func (slf *Workflow) CustomPrompt() string {
	return slf.customPrompt
}

// AddNode registers a node under the given id. Adding a node invalidates the
// cached execution order.
func (slf *Workflow) AddNode(id string, node Node) {
	if _, exists := slf.nodes[id]; !exists {
		slf.nodeOrder = append(slf.nodeOrder, id)
	}
	slf.nodes[id] = &NodeEntry{
		Instance: node,
		Status:   StatusPending,
	}
	slf.execOrder = nil
}

// Node returns the entry for a node id.
func (slf *Workflow) Node(id string) (*NodeEntry, bool) {
	entry, ok := slf.nodes[id]
	return entry, ok
}

// NodeIDs returns all node ids in insertion order.
func (slf *Workflow) NodeIDs() []string {
	ids := make([]string, len(slf.nodeOrder))
	copy(ids, slf.nodeOrder)
	return ids
}

// Connections returns the connection list in creation order.
func (slf *Workflow) Connections() []Connection {
	conns := make([]Connection, len(slf.connections))
	copy(conns, slf.connections)
	return conns
}

// Connect validates both endpoints and appends the connection. A connection
// referencing a node id not present in the workflow is rejected.
func (slf *Workflow) Connect(conn Connection) error {
	if _, ok := slf.nodes[conn.SourceNode]; !ok {
		return fmt.Errorf("source node %q: %w", conn.SourceNode, ErrUnknownNode)
	}
	if _, ok := slf.nodes[conn.TargetNode]; !ok {
		return fmt.Errorf("target node %q: %w", conn.TargetNode, ErrUnknownNode)
	}
	slf.connections = append(slf.connections, conn)
	slf.execOrder = nil
	return nil
}

// RemoveNode deletes a node and cascades: every connection touching the id
// is removed and the id is dropped from the cached execution order.
func (slf *Workflow) RemoveNode(id string) bool {
	if _, ok := slf.nodes[id]; !ok {
		return false
	}
	delete(slf.nodes, id)

	kept := slf.connections[:0]
	for _, conn := range slf.connections {
		if conn.SourceNode != id && conn.TargetNode != id {
			kept = append(kept, conn)
		}
	}
	slf.connections = kept

	for i, nid := range slf.nodeOrder {
		if nid == id {
			slf.nodeOrder = append(slf.nodeOrder[:i], slf.nodeOrder[i+1:]...)
			break
		}
	}
	for i, nid := range slf.execOrder {
		if nid == id {
			slf.execOrder = append(slf.execOrder[:i], slf.execOrder[i+1:]...)
			break
		}
	}
	return true
}

// SetNodePosition stores canvas coordinates for a node. Unknown ids are a
// no-op, mirroring how position updates race with node removal in the UI.
func (slf *Workflow) SetNodePosition(id string, x, y float64) {
	if entry, ok := slf.nodes[id]; ok {
		entry.Position = Position{X: x, Y: y}
	}
}

// SetNodeConfig stores the raw config blob for a node.
func (slf *Workflow) SetNodeConfig(id string, config map[string]any) {
	if entry, ok := slf.nodes[id]; ok {
		entry.Config = config
	}
}

// ExecutionOrder returns the most recently calculated execution order.
func (slf *Workflow) ExecutionOrder() []string {
	order := make([]string, len(slf.execOrder))
	copy(order, slf.execOrder)
	return order
}

// NodeErrors collects "name: message" lines for every node whose last run
// ended in error, for aggregate failure reporting.
func (slf *Workflow) NodeErrors() []string {
	var msgs []string
	for _, id := range slf.nodeOrder {
		entry := slf.nodes[id]
		if entry.Status != StatusError {
			continue
		}
		msg := entry.Result.Error
		if msg == "" {
			msg = "unknown error"
		}
		name := id
		if entry.Instance != nil && entry.Instance.Name() != "" {
			name = entry.Instance.Name()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", name, msg))
	}
	return msgs
}
