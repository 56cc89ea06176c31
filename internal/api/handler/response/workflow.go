package response

import "time"

type WorkflowSummaryDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CustomPrompt string    `json:"customPrompt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type WorkflowDetailDTO struct {
	WorkflowSummaryDTO
	Nodes       []WorkflowNodeDTO       `json:"nodes"`
	Connections []WorkflowConnectionDTO `json:"connections"`
}

type WorkflowNodeDTO struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Xpos   float64        `json:"xpos"`
	Ypos   float64        `json:"ypos"`
	Config map[string]any `json:"config"`
}

type WorkflowConnectionDTO struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"sourceNodeId"`
	SourceOutput string `json:"sourceOutput"`
	TargetNodeID string `json:"targetNodeId"`
	TargetInput  string `json:"targetInput"`
}

type ExecutionResponseDTO struct {
	Success        bool           `json:"success"`
	Results        map[string]any `json:"results"`
	ExecutionOrder []string       `json:"executionOrder"`
	NodeStatuses   []NodeStatusDTO `json:"nodeStatuses"`
}

type NodeStatusDTO struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
