package models

import (
	"time"

	"api/internal/engine"
)

type Node struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	WorkflowID string `gorm:"index;type:uuid;column:workflow_id" json:"workflowId"`

	// Type of the node. It has to be immutable
	Type engine.NodeType `gorm:"not null" json:"type"`
	Name string          `json:"name"`

	Xpos float64 `gorm:"column:xpos" json:"xpos"`
	Ypos float64 `gorm:"column:ypos" json:"ypos"`

	Config NodeData `gorm:"type:jsonb" json:"config"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
}

func (Node) TableName() string {
	return "nodes"
}

// SetConfig serializes and stores a generic config blob.
func (slf *Node) SetConfig(config map[string]any) error {
	data, err := FromMap(config)
	if err != nil {
		return err
	}
	slf.Config = data
	return nil
}

// GetConfig deserializes the stored blob; an empty blob yields an empty map.
func (slf Node) GetConfig() (map[string]any, error) {
	return slf.Config.AsMap()
}
