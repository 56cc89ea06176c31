package request

type CreateWorkflowDTO struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	CustomPrompt string `json:"customPrompt"`
}

type AddNodeDTO struct {
	Type   string         `json:"type" validate:"required"`
	Name   string         `json:"name"`
	Xpos   float64        `json:"xpos"`
	Ypos   float64        `json:"ypos"`
	Config map[string]any `json:"config"`
}

type UpdateNodeConfigDTO struct {
	Config map[string]any `json:"config" validate:"required"`
}

type UpdateNodePositionDTO struct {
	Xpos float64 `json:"xpos"`
	Ypos float64 `json:"ypos"`
}

type AddConnectionDTO struct {
	SourceNodeID string `json:"sourceNodeId" validate:"required"`
	SourceOutput string `json:"sourceOutput" validate:"required"`
	TargetNodeID string `json:"targetNodeId" validate:"required"`
	TargetInput  string `json:"targetInput" validate:"required"`
}
