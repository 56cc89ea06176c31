package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownNode marks a connection endpoint that does not exist in the
// workflow. It is a graph-structure error: reported at creation time, never
// during a run.
var ErrUnknownNode = errors.New("unknown node")

// CycleError is returned by order calculation when the connections form a
// cycle. Nodes holds the ids still in progress when the cycle was detected,
// so at least one of them sits on the cycle.
type CycleError struct {
	Nodes []string
}

func (slf *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among nodes: %s", strings.Join(slf.Nodes, ", "))
}
