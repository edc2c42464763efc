// Package server exposes the batch pipeline over a small REST API.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/raphaelgruber/docparse-go/internal/metrics"
	"github.com/raphaelgruber/docparse-go/internal/service"
	"github.com/raphaelgruber/docparse-go/internal/textgroup"
)

// Server wires the batch orchestrator, job registry, and converter into HTTP
// endpoints.
type Server struct {
	batch     *service.Batch
	jobs      *service.JobManager
	converter *textgroup.Converter
	collector *metrics.Collector
	outputDir string
	textDir   string
	logger    *slog.Logger
}

// New creates a Server.
func New(batch *service.Batch, jobs *service.JobManager, converter *textgroup.Converter, collector *metrics.Collector, outputDir, textDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		batch:     batch,
		jobs:      jobs,
		converter: converter,
		collector: collector,
		outputDir: outputDir,
		textDir:   textDir,
		logger:    logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))

	router.GET("/", s.handleRoot)
	router.GET("/docs", s.handleDocs)
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)

	router.POST("/parse_documents", s.handleParseDocuments)
	router.POST("/convert_html_to_txt", s.handleConvert)

	router.GET("/jobs", s.handleListJobs)
	router.GET("/jobs/watch", s.handleWatchJobs)
	router.GET("/jobs/:id", s.handleGetJob)

	return router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "/docs")
}

func (s *Server) handleDocs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "docparse",
		"endpoints": []string{
			"POST /parse_documents",
			"POST /convert_html_to_txt",
			"GET /jobs",
			"GET /jobs/:id",
			"GET /jobs/watch",
			"GET /stats",
			"GET /health",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.collector.Snapshot())
}

// handleParseDocuments starts a batch and acknowledges initiation
// immediately. Per-document outcomes are observable via /jobs, never
// reported synchronously here.
func (s *Server) handleParseDocuments(c *gin.Context) {
	jobIDs, err := s.batch.Start(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to start batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "Processing initiated",
		"jobs":   jobIDs,
	})
}

func (s *Server) handleConvert(c *gin.Context) {
	var converted int
	err := s.collector.Time(metrics.OpConvert, func() error {
		var err error
		converted, err = s.converter.ConvertDir(s.outputDir, s.textDir)
		return err
	})
	if err != nil {
		s.logger.Error("failed to convert artifacts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "Conversion completed",
		"output_directory": s.textDir,
		"files":            converted,
	})
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.List()})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
