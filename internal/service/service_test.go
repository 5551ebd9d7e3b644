package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const (
	ownerA = "amy@example.org"
	ownerB = "bob@example.org"
)

var observed = time.Date(2024, time.March, 11, 18, 0, 0, 0, time.UTC)

type mockStore struct {
	byOwner map[string][]domain.Incident
	err     error
}

func (m *mockStore) ListByOwner(_ context.Context, owner string) ([]domain.Incident, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byOwner[owner], nil
}

func (m *mockStore) Owners(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var owners []string
	for _, o := range []string{ownerA, ownerB, "carl@example.org"} {
		if _, ok := m.byOwner[o]; ok {
			owners = append(owners, o)
		}
	}
	return owners, nil
}

type mockGeocoder struct {
	err   error
	calls int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.GeocodingResult{}, m.err
	}
	return domain.GeocodingResult{FormattedAddress: "Boulder, Colorado", PlaceName: "Boulder"}, nil
}

type mockPublisher struct {
	mu      sync.Mutex
	reports []analysis.Report
	err     error
}

func (m *mockPublisher) PublishReports(_ context.Context, reports []analysis.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, reports...)
	return nil
}

func (m *mockPublisher) published() []analysis.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]analysis.Report(nil), m.reports...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clustered(owner string, high int) []domain.Incident {
	out := make([]domain.Incident, 0, 4)
	for i := 0; i < 4; i++ {
		sev := domain.SeverityLow
		if i < high {
			sev = domain.SeverityHigh
		}
		out = append(out, domain.Incident{
			ID:         owner + "-" + string(rune('a'+i)),
			Owner:      owner,
			Geo:        domain.Geo{Lat: 40.001 + float64(i)*0.0001, Lon: -105.001},
			Species:    "Black Bear",
			Category:   "Property Damage",
			Severity:   sev,
			ObservedAt: observed,
		})
	}
	return out
}

func newService(store IncidentStore, geocoder domain.Geocoder) (*AnalysisService, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewAnalysisService(store, geocoder, analysis.DefaultConfig(), m, discardLogger()), m
}

func runs(m *observability.Metrics, policy, outcome string) float64 {
	return testutil.ToFloat64(m.AnalysisRuns.WithLabelValues(policy, outcome))
}

var errStoreDown = errors.New("store down")
