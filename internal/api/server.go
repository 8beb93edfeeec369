// Package api exposes the portal over JSON HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yairfalse/vmportal/internal/portal"
)

// Server routes HTTP requests to the portal.
type Server struct {
	portal *portal.Portal
	logger zerolog.Logger
	engine *gin.Engine
}

// New builds the router. Call gin.SetMode before New to change the mode.
func New(p *portal.Portal, logger zerolog.Logger) *Server {
	s := &Server{
		portal: p,
		logger: logger,
		engine: gin.New(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(requestID(), s.recovery(), s.requestLogger(), principal())

	r.GET("/healthz", s.healthz)
	r.GET("/api/healthz", s.healthz)

	api := r.Group("/api")
	if srv := s.portal.Config().Server; srv.RateLimit > 0 {
		api.Use(newRateLimiter(srv.RateLimit, srv.RateBurst).middleware())
	}

	vms := api.Group("/vms")
	vms.GET("", s.listVMs)
	vms.GET("/summary", s.vmSummary)
	vms.POST("/batch/start", s.batchVMs(portal.ActionStart))
	vms.POST("/batch/stop", s.batchVMs(portal.ActionStop))
	vms.POST("/batch/restart", s.batchVMs(portal.ActionRestart))
	vms.POST("/:name/start", s.vmAction(portal.ActionStart))
	vms.POST("/:name/stop", s.vmAction(portal.ActionStop))
	vms.POST("/:name/restart", s.vmAction(portal.ActionRestart))
	vms.GET("/:name/metrics", s.vmMetrics)

	apps := api.Group("/appservices")
	apps.GET("", s.listAppServices)
	apps.POST("/:name/start", s.appServiceAction(portal.ActionStart))
	apps.POST("/:name/stop", s.appServiceAction(portal.ActionStop))
	apps.POST("/:name/restart", s.appServiceAction(portal.ActionRestart))
	apps.PATCH("/:name/configure", s.configureAppService)
	apps.PATCH("/:name/scale", s.scaleAppService)

	api.GET("/schedules", s.listSchedules)
	api.PATCH("/schedules/:name", s.updateSchedule)
	api.POST("/runbooks/:name/run", s.triggerRunbook)
	api.GET("/audit-log", s.auditLog)

	api.POST("/roles", s.roles)
	api.POST("/GetRoles", s.roles)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
