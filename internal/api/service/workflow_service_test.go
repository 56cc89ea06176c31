package service

import (
	"api"
	"api/internal/api/handler/request"
	"api/internal/api/models"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api/internal/engine"
)

func setupWorkflowTestDB(t *testing.T) {
	api.InitConfig("../../../.env.test")

	err := api.DB.AutoMigrate(&models.User{}, &models.Workflow{}, &models.Node{}, &models.Connection{})
	require.NoError(t, err, "Failed to migrate workflow tables")
}

func cleanupWorkflow(t *testing.T, service *WorkflowService, id string) {
	if id != "" {
		_ = service.Delete(id)
	}
}

func createTestWorkflow(t *testing.T, service *WorkflowService) string {
	summary, err := service.Create(request.CreateWorkflowDTO{
		Name:         "RAG pipeline",
		Description:  "pdf to answer",
		CustomPrompt: "Answer briefly.",
	}, 0)
	require.NoError(t, err, "Failed to create workflow")
	require.NotEmpty(t, summary.ID)
	return summary.ID
}

func TestWorkflow_CreateAndGet(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	detail, err := service.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "RAG pipeline", detail.Name)
	assert.Equal(t, "Answer briefly.", detail.CustomPrompt)
	assert.Empty(t, detail.Nodes)
	assert.Empty(t, detail.Connections)
}

func TestWorkflow_Get_NotFound(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	_, err := service.Get("00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_AddNode(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	node, err := service.AddNode(id, request.AddNodeDTO{
		Type:   string(engine.NodeTypeTextSplitter),
		Name:   "Splitter",
		Xpos:   120,
		Ypos:   80,
		Config: map[string]any{"chunk_size": 500},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "text_splitter", node.Type)

	detail, err := service.Get(id)
	require.NoError(t, err)
	require.Len(t, detail.Nodes, 1)
	assert.Equal(t, "Splitter", detail.Nodes[0].Name)
	assert.Equal(t, float64(120), detail.Nodes[0].Xpos)
	assert.Equal(t, float64(500), detail.Nodes[0].Config["chunk_size"])
}

func TestWorkflow_AddNode_UnknownType(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	_, err := service.AddNode(id, request.AddNodeDTO{Type: "teleporter"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported node type")

	detail, err := service.Get(id)
	require.NoError(t, err)
	assert.Empty(t, detail.Nodes, "Rejected node must not be persisted")
}

func TestWorkflow_AddConnection_UnknownEndpoint(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	node, err := service.AddNode(id, request.AddNodeDTO{Type: string(engine.NodeTypePDFLoader), Name: "Loader"})
	require.NoError(t, err)

	_, err = service.AddConnection(id, request.AddConnectionDTO{
		SourceNodeID: node.ID,
		SourceOutput: "documents",
		TargetNodeID: "00000000-0000-0000-0000-000000000000",
		TargetInput:  "documents",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownNode))

	detail, err := service.Get(id)
	require.NoError(t, err)
	assert.Empty(t, detail.Connections, "Rejected connection must not be persisted")
}

func TestWorkflow_RemoveNode_CascadesConnections(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	loader, err := service.AddNode(id, request.AddNodeDTO{Type: string(engine.NodeTypePDFLoader), Name: "Loader"})
	require.NoError(t, err)
	splitter, err := service.AddNode(id, request.AddNodeDTO{Type: string(engine.NodeTypeTextSplitter), Name: "Splitter"})
	require.NoError(t, err)

	_, err = service.AddConnection(id, request.AddConnectionDTO{
		SourceNodeID: loader.ID,
		SourceOutput: "documents",
		TargetNodeID: splitter.ID,
		TargetInput:  "documents",
	})
	require.NoError(t, err)

	require.NoError(t, service.RemoveNode(id, loader.ID))

	detail, err := service.Get(id)
	require.NoError(t, err)
	require.Len(t, detail.Nodes, 1)
	assert.Equal(t, splitter.ID, detail.Nodes[0].ID)
	assert.Empty(t, detail.Connections, "Connections touching the removed node must be gone")
}

func TestWorkflow_RemoveNode_NotFound(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	err := service.RemoveNode(id, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestWorkflow_UpdateNodeConfig_Invalid(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	node, err := service.AddNode(id, request.AddNodeDTO{
		Type:   string(engine.NodeTypeTextSplitter),
		Name:   "Splitter",
		Config: map[string]any{"chunk_size": 800},
	})
	require.NoError(t, err)

	// Out-of-range values are clamped by the role, so the update sticks.
	err = service.UpdateNodeConfig(id, node.ID, map[string]any{"chunk_size": 999999})
	require.NoError(t, err)

	config, err := service.GetNodeConfig(id, node.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(999999), config["chunk_size"], "Stored blob keeps the raw value")
}

func TestWorkflow_Execute_EmptyGraph(t *testing.T) {
	setupWorkflowTestDB(t)

	service := NewWorkflowService()
	id := createTestWorkflow(t, service)
	defer cleanupWorkflow(t, service, id)

	result, err := service.Execute(t.Context(), id, "what is this about?", nil)
	require.Error(t, err, "A graph with no qa_chain cannot produce an answer")
	assert.Contains(t, err.Error(), "no answer generated")
	assert.False(t, result.Success)
	assert.Empty(t, result.ExecutionOrder)
}
