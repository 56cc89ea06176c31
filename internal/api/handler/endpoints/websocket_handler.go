package endpoints

import (
	"net/http"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"api"
	"api/internal/api/handler/response"
	"api/internal/realtime"
)

type websocketHandler struct {
	hub    *realtime.Hub
	logger zerolog.Logger
	config api.AppConfig
}

// WebSocketHandler exposes per-workflow progress rooms. Auth rides on a token
// query param since browsers cannot set headers on WebSocket upgrades.
func WebSocketHandler(router *graceful.Graceful, hub *realtime.Hub) {
	h := &websocketHandler{
		hub:    hub,
		logger: api.Logger,
		config: api.GetConfig(),
	}

	router.GET("/ws/workflows/:id", h.handleWorkflowWS)
}

func (slf *websocketHandler) handleWorkflowWS(c *gin.Context) {
	workflowID := c.Param("id")
	if workflowID == "" {
		c.JSON(http.StatusBadRequest, response.APIError{Message: "Workflow id is required"})
		return
	}

	slf.logger.Info().Str("workflowId", workflowID).Msg("WebSocket connection for workflow")
	realtime.ServeWorkflowWS(
		slf.hub,
		slf.config.JWTConfig.Secret,
		slf.config.Mode == "dev",
		workflowID,
		c.Writer,
		c.Request,
	)
}
