package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "json"})

			assert.Equal(t, tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tt.wantInfo, logger.Enabled(context.Background(), slog.LevelInfo))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestMetricsForTesting_Register(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.AnalysisRuns))

	m.AnalysisRuns.WithLabelValues("grid", "success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("grid", "success")))
	assert.Len(t, m.collectors(), 14)
}
