package models

import (
	"time"

	"gorm.io/gorm"
)

type Workflow struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	CustomPrompt string `gorm:"type:text;column:custom_prompt" json:"customPrompt"`

	OwnerID uint `gorm:"index" json:"ownerId"`
	Owner   User `json:"-"`

	Nodes       []Node       `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"nodes"`
	Connections []Connection `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"connections"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}
