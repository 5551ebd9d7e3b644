package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/gin-gonic/gin"
)

// Analyzer runs analyses for the API.
type Analyzer interface {
	Analyze(ctx context.Context, owner string, policy analysis.Policy) (analysis.Result, error)
	AnalyzeIncidents(ctx context.Context, incidents []domain.Incident, policy analysis.Policy) (analysis.Result, error)
	Owners(ctx context.Context) ([]string, error)
	Incidents(ctx context.Context, owner string) ([]domain.Incident, error)
}

// maxRequestIncidents bounds POST /analyze bodies.
const maxRequestIncidents = 10000

type api struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// NewAPI builds the gin router for /api/v1.
func NewAPI(analyzer Analyzer, logger *slog.Logger) http.Handler {
	a := &api{analyzer: analyzer, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	v1 := r.Group("/api/v1")
	v1.GET("/owners", a.listOwners)
	v1.POST("/analyze", a.analyzeBody)

	owner := v1.Group("/owners/:owner")
	owner.GET("/incidents", a.listIncidents)
	owner.GET("/analysis", a.ownerSection(func(r analysis.Result) any { return r }))
	owner.GET("/hotspots", a.ownerSection(func(r analysis.Result) any { return r.Hotspots }))
	owner.GET("/predictions", a.ownerSection(func(r analysis.Result) any { return r.Predictions }))
	owner.GET("/patterns", a.ownerSection(func(r analysis.Result) any { return r.DayPatterns }))
	owner.GET("/statistics", a.ownerSection(func(r analysis.Result) any { return r.Statistics }))

	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "route not found") })
	return r
}

func (a *api) listOwners(c *gin.Context) {
	owners, err := a.analyzer.Owners(c.Request.Context())
	if err != nil {
		a.logger.Error("list owners failed", "error", err)
		fail(c, http.StatusInternalServerError, "failed to list owners")
		return
	}
	if owners == nil {
		owners = []string{}
	}
	success(c, owners)
}

func (a *api) listIncidents(c *gin.Context) {
	incidents, err := a.analyzer.Incidents(c.Request.Context(), c.Param("owner"))
	if err != nil {
		a.logger.Error("list incidents failed", "owner", c.Param("owner"), "error", err)
		fail(c, http.StatusInternalServerError, "failed to list incidents")
		return
	}
	success(c, incidents)
}

// ownerSection analyzes the path owner and replies with one part of the result.
func (a *api) ownerSection(pick func(analysis.Result) any) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, ok := queryPolicy(c)
		if !ok {
			return
		}
		res, err := a.analyzer.Analyze(c.Request.Context(), c.Param("owner"), policy)
		if err != nil {
			a.failAnalysis(c, err)
			return
		}
		success(c, pick(res))
	}
}

type analyzeRequest struct {
	Policy    string                     `json:"policy"`
	Incidents []domain.RawIncidentRecord `json:"incidents" binding:"required"`
}

func (a *api) analyzeBody(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Incidents) > maxRequestIncidents {
		fail(c, http.StatusBadRequest, fmt.Sprintf("at most %d incidents per request", maxRequestIncidents))
		return
	}
	var policy analysis.Policy
	if req.Policy != "" {
		p, err := analysis.ParsePolicy(req.Policy)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		policy = p
	}

	incidents := make([]domain.Incident, 0, len(req.Incidents))
	for i, rec := range req.Incidents {
		inc, err := domain.ParseRecord(rec, time.Time{})
		if err != nil {
			var invalid *domain.InvalidCoordinateError
			if errors.As(err, &invalid) {
				fail(c, http.StatusUnprocessableEntity, fmt.Sprintf("incident %d: %v", i, err))
				return
			}
			fail(c, http.StatusBadRequest, fmt.Sprintf("incident %d: %v", i, err))
			return
		}
		incidents = append(incidents, domain.NormalizeIncident(inc))
	}

	res, err := a.analyzer.AnalyzeIncidents(c.Request.Context(), incidents, policy)
	if err != nil {
		a.failAnalysis(c, err)
		return
	}
	success(c, res)
}

func queryPolicy(c *gin.Context) (analysis.Policy, bool) {
	raw := c.Query("policy")
	if raw == "" {
		return "", true
	}
	p, err := analysis.ParsePolicy(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

func (a *api) failAnalysis(c *gin.Context, err error) {
	var insufficient *domain.InsufficientDataError
	var invalid *domain.InvalidCoordinateError
	switch {
	case errors.As(err, &insufficient):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalid), errors.Is(err, domain.ErrMixedOwners):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		a.logger.Error("analysis failed", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "analysis failed")
	}
}

func (a *api) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
