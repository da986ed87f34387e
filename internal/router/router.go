package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"worklog/backend/internal/handler"
	"worklog/backend/internal/middleware"
	"worklog/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	worklogHandler *handler.WorklogHandler,
	corsOrigins []string,
	logger *slog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	days := protected.Group("/days/:date")
	days.GET("/state", worklogHandler.GetState)
	days.GET("/summary", worklogHandler.GetSummary)
	days.GET("/actions", worklogHandler.ListActions)
	days.GET("/revokable", worklogHandler.Revokable)
	days.POST("/start", worklogHandler.Start)
	days.POST("/stop", worklogHandler.Stop)
	days.POST("/continue", worklogHandler.Continue)
	days.POST("/end", worklogHandler.End)
	days.POST("/reset", worklogHandler.Reset)
	days.POST("/revoke", worklogHandler.Revoke)
	days.POST("/revoke-batch", worklogHandler.RevokeBatch)

	protected.GET("/actions", worklogHandler.ListActionsRange)
	protected.GET("/report", worklogHandler.Report)

	return engine
}
