package engine

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// Progress-only statuses; node entries themselves only ever hold
// pending/success/error.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress is a per-node execution update pushed to the frontend.
type Progress struct {
	NodeID   string `json:"nodeId"`
	NodeName string `json:"nodeName"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
}

// ProgressFunc is a function that reports progress for a node.
type ProgressFunc func(Progress)

// ProgressReporter sends progress updates via NATS.
type ProgressReporter struct {
	conn    *nats.Conn
	subject string
	noop    bool
}

// NewProgressReporter creates a new NATS-based progress reporter.
// Best-effort: if the NATS connection fails, returns a no-op reporter
// (never fails the run).
func NewProgressReporter(natsURL, tenantID, workflowID string) *ProgressReporter {
	subject := fmt.Sprintf("tenant.%s.workflow.%s.progress", tenantID, workflowID)

	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Printf("WARNING: NATS connection failed (%s), progress reporting disabled: %v", natsURL, err)
		return &ProgressReporter{noop: true, subject: subject}
	}

	return &ProgressReporter{
		conn:    nc,
		subject: subject,
	}
}

// Close drains and closes the NATS connection.
func (slf *ProgressReporter) Close() {
	if slf.noop || slf.conn == nil {
		return
	}
	if err := slf.conn.Drain(); err != nil {
		log.Printf("NATS drain error: %v", err)
	}
}

// ReportFunc returns a ProgressFunc that publishes updates to NATS.
func (slf *ProgressReporter) ReportFunc() ProgressFunc {
	if slf.noop {
		return func(p Progress) {
			log.Printf("progress (no-op): node=%s status=%s", p.NodeID, p.Status)
		}
	}

	return func(p Progress) {
		data, err := json.Marshal(p)
		if err != nil {
			log.Printf("progress marshal error: %v", err)
			return
		}
		if err := slf.conn.Publish(slf.subject, data); err != nil {
			log.Printf("progress publish error: %v", err)
		}
	}
}
