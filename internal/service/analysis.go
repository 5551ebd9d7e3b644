// Package service runs analyses over stored incidents and publishes the
// periodic risk digest.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
)

// IncidentStore reads stored incidents.
type IncidentStore interface {
	ListByOwner(ctx context.Context, owner string) ([]domain.Incident, error)
	Owners(ctx context.Context) ([]string, error)
}

// AnalysisService loads an owner's incidents and runs the analysis engine on
// them. Zones are labeled with place names when a geocoder is configured.
type AnalysisService struct {
	store    IncidentStore
	geocoder domain.Geocoder
	cfg      analysis.Config
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewAnalysisService creates a service. Pass a nil geocoder to skip place names.
func NewAnalysisService(store IncidentStore, geocoder domain.Geocoder, cfg analysis.Config, metrics *observability.Metrics, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		store:    store,
		geocoder: geocoder,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Config returns the default analysis settings.
func (s *AnalysisService) Config() analysis.Config {
	return s.cfg
}

// Owners lists owners with stored incidents.
func (s *AnalysisService) Owners(ctx context.Context) ([]string, error) {
	return s.store.Owners(ctx)
}

// Incidents lists the stored incidents of owner in intake order. An owner with
// nothing stored gets an empty slice.
func (s *AnalysisService) Incidents(ctx context.Context, owner string) ([]domain.Incident, error) {
	incidents, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load incidents for %s: %w", owner, err)
	}
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	return incidents, nil
}

// Analyze runs the analysis over every stored incident of owner. An empty
// policy uses the configured default.
func (s *AnalysisService) Analyze(ctx context.Context, owner string, policy analysis.Policy) (analysis.Result, error) {
	start := time.Now()
	incidents, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		s.record(s.policyOrDefault(policy), outcomeError)
		return analysis.Result{}, fmt.Errorf("load incidents for %s: %w", owner, err)
	}
	res, err := s.run(ctx, incidents, policy)
	if err == nil {
		s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		s.logger.Debug("analysis complete",
			"owner", owner,
			"policy", res.Policy,
			"incidents", len(incidents),
			"hotspots", len(res.Hotspots),
		)
	}
	return res, err
}

// AnalyzeIncidents runs the analysis over caller-supplied incidents without
// touching the store.
func (s *AnalysisService) AnalyzeIncidents(ctx context.Context, incidents []domain.Incident, policy analysis.Policy) (analysis.Result, error) {
	return s.run(ctx, incidents, policy)
}

func (s *AnalysisService) run(ctx context.Context, incidents []domain.Incident, policy analysis.Policy) (analysis.Result, error) {
	cfg := s.cfg.WithPolicy(s.policyOrDefault(policy))

	res, err := analysis.Analyze(incidents, cfg)
	if err != nil {
		s.record(cfg.Policy, outcomeFor(err))
		return analysis.Result{}, err
	}
	s.record(cfg.Policy, outcomeSuccess)
	s.metrics.HotspotsPerRun.Observe(float64(len(res.Hotspots)))

	s.labelPlaces(ctx, res.Hotspots)
	s.labelPlaces(ctx, res.Predictions)
	return res, nil
}

// labelPlaces fills PlaceName on each zone. Geocoding failures leave the
// name empty and never fail the analysis.
func (s *AnalysisService) labelPlaces(ctx context.Context, zones []analysis.Zone) {
	if s.geocoder == nil {
		return
	}
	for i := range zones {
		z := &zones[i]
		res, err := s.geocoder.ReverseGeocode(ctx, z.Center.Lat, z.Center.Lon)
		if err != nil {
			s.logger.Warn("reverse geocode failed",
				"zone", z.Label,
				"lat", z.Center.Lat,
				"lon", z.Center.Lon,
				"error", err,
			)
			continue
		}
		z.PlaceName = res.FormattedAddress
	}
}

func (s *AnalysisService) policyOrDefault(p analysis.Policy) analysis.Policy {
	if p == "" {
		return s.cfg.Policy
	}
	return p
}

func (s *AnalysisService) record(p analysis.Policy, outcome string) {
	s.metrics.AnalysisRuns.WithLabelValues(string(p), outcome).Inc()
}

const (
	outcomeSuccess          = "success"
	outcomeInsufficientData = "insufficient_data"
	outcomeInvalidInput     = "invalid_input"
	outcomeError            = "error"
)

func outcomeFor(err error) string {
	var insufficient *domain.InsufficientDataError
	var invalid *domain.InvalidCoordinateError
	switch {
	case errors.As(err, &insufficient):
		return outcomeInsufficientData
	case errors.As(err, &invalid), errors.Is(err, domain.ErrMixedOwners):
		return outcomeInvalidInput
	default:
		return outcomeError
	}
}
