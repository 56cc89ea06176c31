package models

import "time"

type Connection struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	WorkflowID string `gorm:"index;type:uuid;column:workflow_id" json:"workflowId"`

	SourceNodeID string `gorm:"type:uuid;column:source_node_id" json:"sourceNodeId"`
	SourceOutput string `gorm:"column:source_output" json:"sourceOutput"`
	TargetNodeID string `gorm:"type:uuid;column:target_node_id" json:"targetNodeId"`
	TargetInput  string `gorm:"column:target_input" json:"targetInput"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
}

func (Connection) TableName() string {
	return "connections"
}
