package mapper

import (
	"api/internal/api/handler/response"
	"api/internal/api/models"
)

type WorkflowMapper struct{}

func (WorkflowMapper) EntityToSummary(workflow models.Workflow) response.WorkflowSummaryDTO {
	return response.WorkflowSummaryDTO{
		ID:           workflow.ID,
		Name:         workflow.Name,
		Description:  workflow.Description,
		CustomPrompt: workflow.CustomPrompt,
		CreatedAt:    workflow.CreatedAt,
		UpdatedAt:    workflow.UpdatedAt,
	}
}

func (slf WorkflowMapper) EntityToDetail(workflow models.Workflow) response.WorkflowDetailDTO {
	detail := response.WorkflowDetailDTO{
		WorkflowSummaryDTO: slf.EntityToSummary(workflow),
		Nodes:              make([]response.WorkflowNodeDTO, 0, len(workflow.Nodes)),
		Connections:        make([]response.WorkflowConnectionDTO, 0, len(workflow.Connections)),
	}
	for _, node := range workflow.Nodes {
		detail.Nodes = append(detail.Nodes, slf.NodeToDTO(node))
	}
	for _, conn := range workflow.Connections {
		detail.Connections = append(detail.Connections, response.WorkflowConnectionDTO{
			ID:           conn.ID,
			SourceNodeID: conn.SourceNodeID,
			SourceOutput: conn.SourceOutput,
			TargetNodeID: conn.TargetNodeID,
			TargetInput:  conn.TargetInput,
		})
	}
	return detail
}

func (WorkflowMapper) NodeToDTO(node models.Node) response.WorkflowNodeDTO {
	config, err := node.GetConfig()
	if err != nil {
		config = map[string]any{}
	}
	return response.WorkflowNodeDTO{
		ID:     node.ID,
		Type:   string(node.Type),
		Name:   node.Name,
		Xpos:   node.Xpos,
		Ypos:   node.Ypos,
		Config: config,
	}
}
