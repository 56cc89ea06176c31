package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"api"
	"api/internal/api/handler/mapper"
	"api/internal/api/handler/request"
	"api/internal/api/handler/response"
	"api/internal/api/models"
	"api/internal/api/repo"
	"api/internal/engine"
	"api/internal/nodes"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrNodeNotFound     = errors.New("node not found")
)

// WorkflowService owns workflow persistence and execution. Live engine
// graphs are kept in a resident registry so repeated executions skip
// rehydration; any structural mutation evicts the entry and the next run
// rebuilds the graph from the database.
//
// Executions of the same workflow are serialized through a per-id mutex:
// node statuses and the result namespace live on the graph, so two
// concurrent runs would trample each other.
type WorkflowService struct {
	workflowRepo   *repo.WorkflowRepository
	factory        *nodes.Factory
	config         api.AppConfig
	logger         zerolog.Logger
	workflowMapper mapper.WorkflowMapper

	mu       sync.Mutex
	resident map[string]*engine.Workflow
	runLocks map[string]*sync.Mutex
}

func NewWorkflowService() *WorkflowService {
	return &WorkflowService{
		workflowRepo: repo.NewWorkflowRepository(),
		factory:      nodes.NewFactory(),
		config:       api.GetConfig(),
		logger:       api.Logger,
		resident:     make(map[string]*engine.Workflow),
		runLocks:     make(map[string]*sync.Mutex),
	}
}

func (slf *WorkflowService) Create(dto request.CreateWorkflowDTO, ownerID uint) (response.WorkflowSummaryDTO, error) {
	workflow := models.Workflow{
		ID:           uuid.NewString(),
		Name:         dto.Name,
		Description:  dto.Description,
		CustomPrompt: dto.CustomPrompt,
		OwnerID:      ownerID,
	}
	if err := slf.workflowRepo.Create(&workflow); err != nil {
		slf.logger.Error().Err(err).Msg("Error creating workflow")
		return response.WorkflowSummaryDTO{}, err
	}

	slf.logger.Info().Str("workflowId", workflow.ID).Str("name", workflow.Name).Msg("Workflow created")
	return slf.workflowMapper.EntityToSummary(workflow), nil
}

func (slf *WorkflowService) List(ownerID uint) ([]response.WorkflowSummaryDTO, error) {
	workflows, err := slf.workflowRepo.GetAllByOwner(ownerID)
	if err != nil {
		slf.logger.Error().Err(err).Msg("Error listing workflows")
		return nil, err
	}

	summaries := make([]response.WorkflowSummaryDTO, 0, len(workflows))
	for _, workflow := range workflows {
		summaries = append(summaries, slf.workflowMapper.EntityToSummary(workflow))
	}
	return summaries, nil
}

func (slf *WorkflowService) Get(id string) (response.WorkflowDetailDTO, error) {
	workflow, err := slf.findWorkflow(id)
	if err != nil {
		return response.WorkflowDetailDTO{}, err
	}
	return slf.workflowMapper.EntityToDetail(workflow), nil
}

func (slf *WorkflowService) Delete(id string) error {
	if _, err := slf.findWorkflow(id); err != nil {
		return err
	}
	if err := slf.workflowRepo.Delete(id); err != nil {
		slf.logger.Error().Err(err).Str("workflowId", id).Msg("Error deleting workflow")
		return err
	}
	slf.evict(id)
	slf.logger.Info().Str("workflowId", id).Msg("Workflow deleted")
	return nil
}

func (slf *WorkflowService) AddNode(workflowID string, dto request.AddNodeDTO) (response.WorkflowNodeDTO, error) {
	if _, err := slf.findWorkflow(workflowID); err != nil {
		return response.WorkflowNodeDTO{}, err
	}

	nodeType := engine.NodeType(dto.Type)
	if _, err := slf.factory.Build(nodeType, dto.Name, dto.Config); err != nil {
		return response.WorkflowNodeDTO{}, err
	}

	node := models.Node{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Type:       nodeType,
		Name:       dto.Name,
		Xpos:       dto.Xpos,
		Ypos:       dto.Ypos,
	}
	if err := node.SetConfig(dto.Config); err != nil {
		return response.WorkflowNodeDTO{}, err
	}
	if err := slf.workflowRepo.CreateNode(&node); err != nil {
		slf.logger.Error().Err(err).Str("workflowId", workflowID).Msg("Error creating node")
		return response.WorkflowNodeDTO{}, err
	}

	slf.evict(workflowID)
	slf.logger.Info().Str("workflowId", workflowID).Str("nodeId", node.ID).Str("type", dto.Type).Msg("Node added")
	return slf.workflowMapper.NodeToDTO(node), nil
}

func (slf *WorkflowService) RemoveNode(workflowID, nodeID string) error {
	if _, err := slf.workflowRepo.FindNodeByID(workflowID, nodeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		return err
	}

	if err := slf.workflowRepo.DeleteNode(workflowID, nodeID); err != nil {
		slf.logger.Error().Err(err).Str("workflowId", workflowID).Str("nodeId", nodeID).Msg("Error deleting node")
		return err
	}

	slf.evict(workflowID)
	slf.logger.Info().Str("workflowId", workflowID).Str("nodeId", nodeID).Msg("Node removed")
	return nil
}

func (slf *WorkflowService) GetNodeConfig(workflowID, nodeID string) (map[string]any, error) {
	node, err := slf.workflowRepo.FindNodeByID(workflowID, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		return nil, err
	}
	return node.GetConfig()
}

func (slf *WorkflowService) UpdateNodeConfig(workflowID, nodeID string, config map[string]any) error {
	node, err := slf.workflowRepo.FindNodeByID(workflowID, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		return err
	}

	// Reject configs the node role cannot be built from.
	if _, err := slf.factory.Build(node.Type, node.Name, config); err != nil {
		return err
	}
	if err := node.SetConfig(config); err != nil {
		return err
	}
	if err := slf.workflowRepo.UpdateNode(&node); err != nil {
		slf.logger.Error().Err(err).Str("nodeId", nodeID).Msg("Error updating node config")
		return err
	}

	slf.evict(workflowID)
	return nil
}

func (slf *WorkflowService) UpdateNodePosition(workflowID, nodeID string, x, y float64) error {
	node, err := slf.workflowRepo.FindNodeByID(workflowID, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		return err
	}

	node.Xpos = x
	node.Ypos = y
	if err := slf.workflowRepo.UpdateNode(&node); err != nil {
		return err
	}

	// Position is canvas metadata: update the live graph in place instead of
	// evicting it.
	slf.mu.Lock()
	if wf, ok := slf.resident[workflowID]; ok {
		wf.SetNodePosition(nodeID, x, y)
	}
	slf.mu.Unlock()
	return nil
}

func (slf *WorkflowService) AddConnection(workflowID string, dto request.AddConnectionDTO) (response.WorkflowConnectionDTO, error) {
	wf, err := slf.liveWorkflow(workflowID)
	if err != nil {
		return response.WorkflowConnectionDTO{}, err
	}

	conn := models.Connection{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		SourceNodeID: dto.SourceNodeID,
		SourceOutput: dto.SourceOutput,
		TargetNodeID: dto.TargetNodeID,
		TargetInput:  dto.TargetInput,
	}

	// The engine validates both endpoints before the connection is persisted.
	err = wf.Connect(engine.Connection{
		ID:           conn.ID,
		SourceNode:   conn.SourceNodeID,
		SourceOutput: conn.SourceOutput,
		TargetNode:   conn.TargetNodeID,
		TargetInput:  conn.TargetInput,
	})
	if err != nil {
		return response.WorkflowConnectionDTO{}, err
	}

	if err := slf.workflowRepo.CreateConnection(&conn); err != nil {
		slf.logger.Error().Err(err).Str("workflowId", workflowID).Msg("Error creating connection")
		slf.evict(workflowID)
		return response.WorkflowConnectionDTO{}, err
	}

	slf.logger.Info().
		Str("workflowId", workflowID).
		Str("source", conn.SourceNodeID).
		Str("target", conn.TargetNodeID).
		Msg("Connection added")
	return response.WorkflowConnectionDTO{
		ID:           conn.ID,
		SourceNodeID: conn.SourceNodeID,
		SourceOutput: conn.SourceOutput,
		TargetNodeID: conn.TargetNodeID,
		TargetInput:  conn.TargetInput,
	}, nil
}

// Execute runs a workflow against a question and optional uploaded file.
// Runs of the same workflow are serialized; different workflows execute
// concurrently.
func (slf *WorkflowService) Execute(ctx context.Context, workflowID, question string, fileContent []byte) (response.ExecutionResponseDTO, error) {
	lock := slf.runLock(workflowID)
	lock.Lock()
	defer lock.Unlock()

	wf, err := slf.liveWorkflow(workflowID)
	if err != nil {
		return response.ExecutionResponseDTO{}, err
	}

	reporter := engine.NewProgressReporter(slf.config.NATSConfig.URL, slf.config.NATSConfig.TenantID, workflowID)
	defer reporter.Close()

	initial := map[string]any{}
	if question != "" {
		initial[engine.KeyQuestion] = question
	}
	if len(fileContent) > 0 {
		initial[engine.KeyFileContent] = fileContent
	}

	executor := engine.NewExecutor(wf, slf.logger).WithProgress(reporter.ReportFunc())
	results, err := executor.Run(ctx, initial)
	if err != nil {
		slf.logger.Error().Err(err).Str("workflowId", workflowID).Msg("Workflow execution aborted")
		return response.ExecutionResponseDTO{}, err
	}

	dto := response.ExecutionResponseDTO{
		Results:        publicResults(results),
		ExecutionOrder: wf.ExecutionOrder(),
		NodeStatuses:   nodeStatuses(wf),
	}

	answer, _ := results[engine.KeyAnswer].(string)
	if answer == "" {
		msg := "no answer generated"
		if nodeErrors := wf.NodeErrors(); len(nodeErrors) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(nodeErrors, "; "))
		}
		slf.logger.Warn().Str("workflowId", workflowID).Msg(msg)
		return dto, errors.New(msg)
	}

	dto.Success = true
	slf.logger.Info().Str("workflowId", workflowID).Int("nodes", len(dto.ExecutionOrder)).Msg("Workflow executed")
	return dto, nil
}

// liveWorkflow returns the resident engine graph for an id, rehydrating it
// from the database on first reference.
func (slf *WorkflowService) liveWorkflow(id string) (*engine.Workflow, error) {
	slf.mu.Lock()
	if wf, ok := slf.resident[id]; ok {
		slf.mu.Unlock()
		return wf, nil
	}
	slf.mu.Unlock()

	record, err := slf.findWorkflow(id)
	if err != nil {
		return nil, err
	}

	wf := engine.NewWorkflow(record.CustomPrompt)
	for _, node := range record.Nodes {
		config, err := node.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		instance, err := slf.factory.Build(node.Type, node.Name, config)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		wf.AddNode(node.ID, instance)
		wf.SetNodePosition(node.ID, node.Xpos, node.Ypos)
		wf.SetNodeConfig(node.ID, config)
	}
	for _, conn := range record.Connections {
		err := wf.Connect(engine.Connection{
			ID:           conn.ID,
			SourceNode:   conn.SourceNodeID,
			SourceOutput: conn.SourceOutput,
			TargetNode:   conn.TargetNodeID,
			TargetInput:  conn.TargetInput,
		})
		if err != nil {
			slf.logger.Warn().Err(err).Str("workflowId", id).Str("connectionId", conn.ID).Msg("Skipping stale connection")
		}
	}

	slf.mu.Lock()
	slf.resident[id] = wf
	slf.mu.Unlock()
	return wf, nil
}

func (slf *WorkflowService) findWorkflow(id string) (models.Workflow, error) {
	workflow, err := slf.workflowRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Workflow{}, ErrWorkflowNotFound
		}
		slf.logger.Error().Err(err).Str("workflowId", id).Msg("Error finding workflow")
		return models.Workflow{}, err
	}
	return workflow, nil
}

func (slf *WorkflowService) evict(id string) {
	slf.mu.Lock()
	delete(slf.resident, id)
	slf.mu.Unlock()
}

func (slf *WorkflowService) runLock(id string) *sync.Mutex {
	slf.mu.Lock()
	defer slf.mu.Unlock()
	lock, ok := slf.runLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		slf.runLocks[id] = lock
	}
	return lock
}

func nodeStatuses(wf *engine.Workflow) []response.NodeStatusDTO {
	ids := wf.NodeIDs()
	statuses := make([]response.NodeStatusDTO, 0, len(ids))
	for _, id := range ids {
		entry, ok := wf.Node(id)
		if !ok {
			continue
		}
		statuses = append(statuses, response.NodeStatusDTO{
			NodeID: id,
			Name:   entry.Instance.Name(),
			Status: string(entry.Status),
			Error:  entry.Result.Error,
		})
	}
	return statuses
}

// publicResults strips values that cannot survive JSON serialization, like
// the vector store handle and its retriever.
func publicResults(results map[string]any) map[string]any {
	public := make(map[string]any, len(results))
	for key, value := range results {
		switch key {
		case engine.KeyVectorStore, engine.KeyRetriever, engine.KeyFileContent:
			continue
		}
		public[key] = value
	}
	return public
}
