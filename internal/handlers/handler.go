package handlers

import (
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)

	// Read-only views are public; commands need an operator token.
	h.registerAPIRoutes(router)

	// View feed for UI consumers, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerViewRoutes(api)
		h.registerJournalRoutes(api)
		h.registerCommandRoutes(api.Group("/commands", h.operatorMiddleware))
	}
}

func (h *Handler) registerViewRoutes(api *gin.RouterGroup) {
	api.GET("/state", h.getState)
	api.GET("/devices", h.getDevices)
	api.GET("/games", h.getGames)
	api.GET("/runs", h.getRuns)
	api.GET("/paired", h.getPaired)
	api.GET("/notifications", h.getNotifications)
	api.GET("/status", h.getStatus)
	api.GET("/alerts", h.getAlerts)
	api.GET("/snapshot/last", h.getLastSnapshot)
}

func (h *Handler) registerJournalRoutes(api *gin.RouterGroup) {
	api.GET("/journal", h.getJournal)
}

func (h *Handler) registerCommandRoutes(cmd *gin.RouterGroup) {
	cmd.POST("/pair", h.pairDevice)
	cmd.POST("/unpair/:id", h.unpairDevice)
	// Body example: {"nickname":"bench-rig-2"}
	cmd.PUT("/nickname/:id", h.renameDevice)
	cmd.POST("/scan", h.scanNetwork)
	// Body example: {"sut_ip":"10.0.0.5","games":["cs2"],"iterations":3}
	cmd.POST("/runs", h.startRuns)
	// Body example: {"sut_ip":"10.0.0.5","game_name":"cs2","iterations":3}
	cmd.POST("/run", h.startRun)
	cmd.POST("/runs/:id/stop", h.stopRun)
	cmd.POST("/games/reload", h.reloadGames)
	cmd.GET("/history/:id", h.deviceHistory)
}
