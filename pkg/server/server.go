package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/server/handlers"
)

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-ID"

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	keeper memkeeper.Memkeeper
	logger *slog.Logger
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, keeper memkeeper.Memkeeper, logger *slog.Logger) *Server {
	return &Server{
		config: cfg,
		keeper: keeper,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(requestLogMiddleware(s.logger))
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router exposes the configured handler, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.keeper)
	graphHandler := handlers.NewGraphHandler(s.keeper)
	searchHandler := handlers.NewSearchHandler(s.keeper)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/projects", graphHandler.ListProjects)

		project := v1.Group("/projects/:project")
		{
			project.GET("/graph", graphHandler.ReadGraph)

			project.POST("/entities", graphHandler.CreateEntities)
			project.DELETE("/entities", graphHandler.DeleteEntities)
			project.POST("/entities/:name/tags", graphHandler.AddTags)
			project.DELETE("/entities/:name/tags", graphHandler.RemoveTags)

			project.POST("/relations", graphHandler.CreateRelations)
			project.DELETE("/relations", graphHandler.DeleteRelations)

			project.POST("/observations", graphHandler.AddObservations)

			project.POST("/search", searchHandler.Search)
			project.POST("/search/paginated", searchHandler.SearchPaginated)
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// requestIDMiddleware assigns each request a correlation id, honoring one
// supplied by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

// requestLogMiddleware logs one line per request through the structured
// logger instead of gin's default writer.
func requestLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
