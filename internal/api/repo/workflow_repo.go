package repo

import (
	"api"
	"api/internal/api/models"

	"gorm.io/gorm"
)

type WorkflowRepository struct {
	Db *gorm.DB
}

func NewWorkflowRepository() *WorkflowRepository {
	return &WorkflowRepository{Db: api.DB}
}

// FindByID retrieves a workflow with its nodes and connections.
func (slf *WorkflowRepository) FindByID(id string) (models.Workflow, error) {
	var workflow models.Workflow
	// Creation order keeps graph rehydration deterministic.
	err := slf.Db.
		Preload("Nodes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Connections", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&workflow, "id = ?", id).Error
	return workflow, err
}

func (slf *WorkflowRepository) GetAll() ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := slf.Db.Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

func (slf *WorkflowRepository) GetAllByOwner(ownerID uint) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := slf.Db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

func (slf *WorkflowRepository) Create(workflow *models.Workflow) error {
	return slf.Db.Create(workflow).Error
}

func (slf *WorkflowRepository) Update(workflow *models.Workflow) error {
	return slf.Db.Save(workflow).Error
}

// Delete removes a workflow and everything hanging off it.
func (slf *WorkflowRepository) Delete(id string) error {
	return slf.Db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&models.Connection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&models.Node{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workflow{}, "id = ?", id).Error
	})
}

func (slf *WorkflowRepository) CreateNode(node *models.Node) error {
	return slf.Db.Create(node).Error
}

func (slf *WorkflowRepository) FindNodeByID(workflowID, nodeID string) (models.Node, error) {
	var node models.Node
	err := slf.Db.Where("workflow_id = ? AND id = ?", workflowID, nodeID).First(&node).Error
	return node, err
}

func (slf *WorkflowRepository) UpdateNode(node *models.Node) error {
	return slf.Db.Save(node).Error
}

// DeleteNode removes a node and cascades over the connections touching it.
func (slf *WorkflowRepository) DeleteNode(workflowID, nodeID string) error {
	return slf.Db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("workflow_id = ? AND (source_node_id = ? OR target_node_id = ?)",
			workflowID, nodeID, nodeID).Delete(&models.Connection{}).Error
		if err != nil {
			return err
		}
		return tx.Where("workflow_id = ? AND id = ?", workflowID, nodeID).Delete(&models.Node{}).Error
	})
}

func (slf *WorkflowRepository) CreateConnection(conn *models.Connection) error {
	return slf.Db.Create(conn).Error
}

func (slf *WorkflowRepository) DeleteConnection(workflowID, connectionID string) error {
	return slf.Db.Where("workflow_id = ? AND id = ?", workflowID, connectionID).
		Delete(&models.Connection{}).Error
}
