package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Executor runs one workflow execution end-to-end: it recomputes the
// execution order, resolves each node's effective inputs, invokes the node,
// merges its outputs into the shared namespace and records per-node status.
//
// A node failure never aborts the run; every node in order gets its chance,
// so independent branches still produce results and diagnostics stay usable.
// The executor has no notion of overall success: the caller inspects the
// returned namespace for the terminal key it expects.
type Executor struct {
	workflow *Workflow
	logger   zerolog.Logger
	progress ProgressFunc
}

func NewExecutor(workflow *Workflow, logger zerolog.Logger) *Executor {
	return &Executor{workflow: workflow, logger: logger}
}

// WithProgress sets an optional per-node progress callback.
func (slf *Executor) WithProgress(fn ProgressFunc) *Executor {
	slf.progress = fn
	return slf
}

// Run executes every node in dependency order, seeded with the caller's
// initial values. It returns the final shared namespace. The only errors
// returned are graph-structure errors (a cycle), raised before any node
// runs; node failures are recorded on their entries instead.
func (slf *Executor) Run(ctx context.Context, initial map[string]any) (map[string]any, error) {
	order, err := slf.workflow.CalculateExecutionOrder()
	if err != nil {
		return nil, err
	}

	run := newRunContext(initial, slf.workflow.customPrompt)
	slf.logger.Debug().Strs("order", order).Msg("Calculated execution order")

	for _, id := range order {
		entry, ok := slf.workflow.Node(id)
		if !ok {
			continue
		}
		node := entry.Instance
		slf.report(Progress{NodeID: id, NodeName: node.Name(), Status: StatusRunning})

		args, resolveErr := slf.resolveInputs(id, node, run)
		if resolveErr != nil {
			entry.Status = StatusError
			entry.Result = Fail("%s", resolveErr.Error())
			slf.logger.Warn().Str("nodeId", id).Str("type", string(node.Type())).Err(resolveErr).Msg("Input resolution failed")
			slf.report(Progress{NodeID: id, NodeName: node.Name(), Status: StatusFailed, Message: resolveErr.Error()})
			continue
		}

		result := invoke(ctx, node, args)
		entry.Result = result

		if result.Success {
			run.merge(node, result)
			entry.Status = StatusSuccess
			slf.report(Progress{NodeID: id, NodeName: node.Name(), Status: StatusCompleted})
		} else {
			entry.Status = StatusError
			slf.logger.Warn().Str("nodeId", id).Str("type", string(node.Type())).Str("error", result.Error).Msg("Node execution failed")
			slf.report(Progress{NodeID: id, NodeName: node.Name(), Status: StatusFailed, Message: result.Error})
		}
	}

	return run.Results(), nil
}

// resolveInputs builds the node's effective input set: role-specific
// extraction from the namespace first, then connection bindings on top
// (bindings win), then the role's finalize hook, then filtering down to the
// node's declared input ports.
func (slf *Executor) resolveInputs(id string, node Node, run *RunContext) (map[string]any, error) {
	rule, hasRule := roleRules[node.Type()]

	args := make(map[string]any)
	switch {
	case hasRule && rule.seed != nil:
		for key, value := range rule.seed(run.results) {
			args[key] = value
		}
	case !hasRule:
		// Roles without a dedicated rule pick up whatever the namespace
		// already holds under their declared input ports.
		for _, port := range node.Inputs() {
			if value, ok := run.results[port]; ok {
				args[port] = value
			}
		}
	}

	for _, conn := range slf.workflow.connections {
		if conn.TargetNode != id {
			continue
		}
		if value, ok := run.results[conn.SourceOutput]; ok {
			args[conn.TargetInput] = value
		} else {
			// The producing node failed or did not run yet; keep going,
			// the node is invoked short of this input.
			slf.logger.Warn().
				Str("nodeId", id).
				Str("sourceNode", conn.SourceNode).
				Str("sourceOutput", conn.SourceOutput).
				Msg("Source output not present in shared results")
		}
	}

	if hasRule && rule.finalize != nil {
		rule.finalize(args, run.results)
	}

	declared := node.Inputs()
	filtered := make(map[string]any, len(args))
	for _, port := range declared {
		if value, ok := args[port]; ok {
			filtered[port] = value
		}
	}

	required := rule.requireAny
	if !hasRule {
		required = declared
	}
	if len(required) > 0 && !anyBound(filtered, required) {
		return nil, fmt.Errorf("node %q needs one of %v, got %v", id, required, boundKeys(filtered))
	}
	return filtered, nil
}

// invoke calls the node's processing operation, converting a panic into a
// failure result so a misbehaving node cannot take down the run.
func invoke(ctx context.Context, node Node, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Fail("node %s panicked: %v", node.Name(), r)
		}
	}()
	return node.Process(ctx, args)
}

func (slf *Executor) report(p Progress) {
	if slf.progress != nil {
		slf.progress(p)
	}
}

func anyBound(args map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := args[key]; ok {
			return true
		}
	}
	return false
}

func boundKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
