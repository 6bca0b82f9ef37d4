// Package api exposes the risk stratification engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/middleware"
	"github.com/maternity-risk-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// RiskEngine is the part of service.RiskService the HTTP layer needs.
type RiskEngine interface {
	Classify(ctx context.Context, req service.ClassifyRequest) (*assessment.Record, error)
	CategoryIDs(ctx context.Context) (domain.CategoryIDs, error)
	RefreshCategories(ctx context.Context) (domain.CategoryIDs, error)
	DirectoryStats() service.DirectoryStats
}

// HealthCheck probes a dependency; nil means healthy.
type HealthCheck = func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	engine        RiskEngine
	history       assessment.Store
	checks        map[string]HealthCheck
	limiter       *middleware.RateLimiter
	log           *logrus.Logger

	router *gin.Engine
	server *http.Server
}

// Options carries the optional collaborators of the server.
type Options struct {
	// History serves the assessment endpoint; nil disables it.
	History assessment.Store
	// Checks are reported by /health under their map key.
	Checks map[string]HealthCheck
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, engine RiskEngine, opts Options, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())

	s := &Server{
		configManager: configManager,
		engine:        engine,
		history:       opts.History,
		checks:        opts.Checks,
		log:           logger,
		router:        router,
	}

	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
		router.Use(s.limiter.Middleware())
	}
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	s.setupRoutes()

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.limiter != nil {
		go s.cleanupLimiter(ctx)
	}

	s.log.WithFields(logrus.Fields{
		"addr": addr,
		"tls":  cfg.TLSEnabled,
	}).Info("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Cleanup(); n > 0 {
				s.log.WithField("clients", n).Debug("Evicted idle rate limiter clients")
			}
		}
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1/risk")
	{
		v1.POST("/evaluate", s.handleEvaluate)
		v1.GET("/categories", s.handleCategories)
		v1.GET("/assessments", s.handleAssessments)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":         state,
		"timestamp":      time.Now().UTC(),
		"version":        Version,
		"checks":         checks,
		"category_cache": s.engine.DirectoryStats(),
	})
}

type evaluateRequest struct {
	Bundle            domain.ClinicalBundle `json:"bundle" binding:"required"`
	CurrentCategoryID *int64                `json:"current_category_id"`
	PatientRef        string                `json:"patient_ref"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err.Error())
		return
	}

	record, err := s.engine.Classify(c.Request.Context(), service.ClassifyRequest{
		PatientRef:        req.PatientRef,
		Bundle:            req.Bundle,
		CurrentCategoryID: req.CurrentCategoryID,
	})
	if err != nil {
		s.handleEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) handleCategories(c *gin.Context) {
	resolve := s.engine.CategoryIDs
	if c.Query("refresh") == "true" {
		resolve = s.engine.RefreshCategories
	}

	ids, err := resolve(c.Request.Context())
	if err != nil {
		s.handleEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category_ids": ids})
}

func (s *Server) handleAssessments(c *gin.Context) {
	if s.history == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "Assessment log is disabled", "")
		return
	}

	patientRef := c.Query("patient_ref")
	if patientRef == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "patient_ref is required", "")
		return
	}

	limit, err := queryInt(c, "limit", assessment.DefaultListLimit)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "limit must be an integer", err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "offset must be an integer", err.Error())
		return
	}

	records, err := s.history.ListByPatient(c.Request.Context(), patientRef, limit, offset)
	if err != nil {
		s.log.WithError(err).Error("Failed to list risk assessments")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to list assessments", "")
		return
	}
	if records == nil {
		records = []*assessment.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_ref": patientRef,
		"count":       len(records),
		"assessments": records,
	})
}

// handleEngineError maps engine failures to HTTP responses.
func (s *Server) handleEngineError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, verr.Message, verr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(c, http.StatusRequestTimeout, domain.ErrRequestTimeout, "Request timeout", "")
	case errors.Is(err, domain.ErrReferenceDataStore):
		s.log.WithError(err).Error("Reference data unavailable")
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "Reference data unavailable", "")
	default:
		s.log.WithError(err).Error("Risk evaluation failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Risk evaluation failed", "")
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
