package main

import (
	"api"
	"api/internal/api/handler/endpoints"
	"api/internal/api/models"
	"api/internal/realtime"
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
)

func main() {
	api.InitConfig(".env")
	gin.SetMode(gin.ReleaseMode)

	if api.GetConfig().Mode == "dev" {
		if err := api.DB.AutoMigrate(
			&models.User{},
			&models.Workflow{},
			&models.Node{},
			&models.Connection{},
		); err != nil {
			api.Logger.Fatal().Err(err).Msg("Failed to migrate database")
		}
		api.Logger.Info().Msg("Database migrated successfully")
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	router, err := graceful.Default(graceful.WithAddr(api.GetConfig().ApiPort))
	if err != nil {
		panic(err)
	}
	defer stop()
	defer router.Close()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Progress events flow node -> NATS -> hub -> per-workflow ws rooms.
	hub := realtime.NewHub()
	go hub.Run()

	cfg := api.GetConfig()
	bridge, err := realtime.NewNATSBridge(cfg.NATSConfig.URL, cfg.NATSConfig.TenantID, hub)
	if err != nil {
		api.Logger.Warn().Err(err).Msg("NATS bridge unavailable, workflow progress will not be streamed")
	} else {
		defer bridge.Close()
		if err := bridge.Subscribe(); err != nil {
			api.Logger.Warn().Err(err).Msg("NATS subscribe failed, workflow progress will not be streamed")
		}
	}

	initAPI(router, hub)

	api.Logger.Debug().Msgf("Starting CORE API on port %s", api.GetConfig().ApiPort)
	if err = router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		api.Logger.Fatal().Msg(err.Error())
		panic(err)
	}

}

func initAPI(router *graceful.Graceful, hub *realtime.Hub) {
	endpoints.AuthHandler(router)
	endpoints.WorkflowHandler(router)
	endpoints.WebSocketHandler(router, hub)
}
