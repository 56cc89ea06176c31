package endpoints

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"api"
	"api/internal/api/handler/middleware"
	"api/internal/api/handler/request"
	"api/internal/api/handler/response"
	"api/internal/api/service"
	"api/internal/engine"
	"api/internal/nodes"
	"api/pkg"
)

type workflowHandler struct {
	workflowService *service.WorkflowService
	logger          zerolog.Logger
	config          api.AppConfig
}

func newWorkflowHandler() *workflowHandler {
	return &workflowHandler{
		workflowService: service.NewWorkflowService(),
		logger:          api.Logger,
		config:          api.GetConfig(),
	}
}

func WorkflowHandler(router *graceful.Graceful) {
	h := newWorkflowHandler()

	workflows := router.Group("/api/v1/workflows")
	workflows.Use(middleware.AuthMiddleware(h.config))
	{
		workflows.POST("", h.create)
		workflows.GET("", h.list)
		workflows.GET("/:id", h.get)
		workflows.DELETE("/:id", h.delete)

		workflows.POST("/:id/nodes", h.addNode)
		workflows.DELETE("/:id/nodes/:nodeId", h.removeNode)
		workflows.GET("/:id/nodes/:nodeId/config", h.getNodeConfig)
		workflows.PUT("/:id/nodes/:nodeId/config", h.updateNodeConfig)
		workflows.PUT("/:id/nodes/:nodeId/position", h.updateNodePosition)

		workflows.POST("/:id/connections", h.addConnection)
		workflows.POST("/:id/execute", h.execute)
	}

	nodeTypes := router.Group("/api/v1/node-types")
	nodeTypes.Use(middleware.AuthMiddleware(h.config))
	{
		nodeTypes.GET("", h.listNodeTypes)
		nodeTypes.GET("/:type/schema", h.nodeTypeSchema)
	}
}

func (slf *workflowHandler) create(c *gin.Context) {
	var dto request.CreateWorkflowDTO
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		slf.logger.Error().Err(err).Msg("Error parsing and validating create workflow DTO")
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	summary, err := slf.workflowService.Create(dto, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (slf *workflowHandler) list(c *gin.Context) {
	summaries, err := slf.workflowService.List(currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (slf *workflowHandler) get(c *gin.Context) {
	detail, err := slf.workflowService.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (slf *workflowHandler) delete(c *gin.Context) {
	if err := slf.workflowService.Delete(c.Param("id")); err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (slf *workflowHandler) addNode(c *gin.Context) {
	var dto request.AddNodeDTO
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		slf.logger.Error().Err(err).Msg("Error parsing and validating add node DTO")
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	node, err := slf.workflowService.AddNode(c.Param("id"), dto)
	if err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (slf *workflowHandler) removeNode(c *gin.Context) {
	if err := slf.workflowService.RemoveNode(c.Param("id"), c.Param("nodeId")); err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (slf *workflowHandler) getNodeConfig(c *gin.Context) {
	config, err := slf.workflowService.GetNodeConfig(c.Param("id"), c.Param("nodeId"))
	if err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, config)
}

func (slf *workflowHandler) updateNodeConfig(c *gin.Context) {
	var dto request.UpdateNodeConfigDTO
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	if err := slf.workflowService.UpdateNodeConfig(c.Param("id"), c.Param("nodeId"), dto.Config); err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (slf *workflowHandler) updateNodePosition(c *gin.Context) {
	var dto request.UpdateNodePositionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	if err := slf.workflowService.UpdateNodePosition(c.Param("id"), c.Param("nodeId"), dto.Xpos, dto.Ypos); err != nil {
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (slf *workflowHandler) addConnection(c *gin.Context) {
	var dto request.AddConnectionDTO
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	conn, err := slf.workflowService.AddConnection(c.Param("id"), dto)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownNode) {
			c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
			return
		}
		c.JSON(statusFor(err), response.APIError{Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conn)
}

// execute accepts a multipart form: a question field plus an optional PDF
// upload under "file".
func (slf *workflowHandler) execute(c *gin.Context) {
	question := c.PostForm("question")

	var fileContent []byte
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.APIError{Message: "Failed to open uploaded file"})
			return
		}
		defer file.Close()

		fileContent, err = io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.APIError{Message: "Failed to read uploaded file"})
			return
		}
	}

	result, err := slf.workflowService.Execute(c.Request.Context(), c.Param("id"), question, fileContent)
	if err != nil {
		if errors.Is(err, service.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, response.APIError{Message: err.Error()})
			return
		}
		var cycleErr *engine.CycleError
		if errors.As(err, &cycleErr) {
			c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, response.APIError{Message: err.Error(), Data: result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (slf *workflowHandler) listNodeTypes(c *gin.Context) {
	c.JSON(http.StatusOK, nodes.Schemas())
}

func (slf *workflowHandler) nodeTypeSchema(c *gin.Context) {
	nodeType := c.Param("type")
	for _, schema := range nodes.Schemas() {
		if string(schema.Type) == nodeType {
			c.JSON(http.StatusOK, schema)
			return
		}
	}
	c.JSON(http.StatusNotFound, response.APIError{Message: "Unknown node type " + nodeType})
}

// currentUserID reads the authenticated user from the context; in dev mode the
// auth middleware is bypassed and there is no user.
func currentUserID(c *gin.Context) uint {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

func statusFor(err error) int {
	if errors.Is(err, service.ErrWorkflowNotFound) || errors.Is(err, service.ErrNodeNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
