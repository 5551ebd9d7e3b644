package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// ReportPublisher delivers risk reports downstream.
type ReportPublisher interface {
	PublishReports(ctx context.Context, reports []analysis.Report) error
}

// Digest periodically analyzes every owner and publishes one report each.
type Digest struct {
	analyzer  *AnalysisService
	publisher ReportPublisher
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewDigest creates a Digest. A nil clock uses the real clock.
func NewDigest(analyzer *AnalysisService, publisher ReportPublisher, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Digest {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Digest{
		analyzer:  analyzer,
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunOnce analyzes every owner with the default policy and publishes the
// reports in one batch. Owners with too few incidents are skipped. Returns the
// number of reports published.
func (d *Digest) RunOnce(ctx context.Context) (int, error) {
	owners, err := d.analyzer.Owners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	generatedAt := d.clock.Now().UTC()
	reports := make([]analysis.Report, 0, len(owners))
	for _, owner := range owners {
		res, err := d.analyzer.Analyze(ctx, owner, "")
		if err != nil {
			var insufficient *domain.InsufficientDataError
			if errors.As(err, &insufficient) {
				d.logger.Debug("digest skipping owner", "owner", owner, "reason", err)
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			d.logger.Error("digest analysis failed", "owner", owner, "error", err)
			continue
		}
		reports = append(reports, analysis.Report{Owner: owner, GeneratedAt: generatedAt, Result: res})
	}

	if len(reports) == 0 {
		return 0, nil
	}
	if err := d.publisher.PublishReports(ctx, reports); err != nil {
		return 0, err
	}
	d.metrics.ReportsPublished.Add(float64(len(reports)))
	d.metrics.DigestLastSuccess.Set(float64(generatedAt.Unix()))
	return len(reports), nil
}

// Start runs RunOnce on the cron schedule until ctx is cancelled, then waits
// for an in-flight run to finish. A tick that fires while a run is still in
// progress is skipped.
func (d *Digest) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddJob(schedule, d.scheduledJob(ctx)); err != nil {
		return fmt.Errorf("schedule digest %q: %w", schedule, err)
	}

	d.logger.Info("digest scheduled", "schedule", schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (d *Digest) scheduledJob(ctx context.Context) cron.Job {
	skipLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(d.logger.Handler(), slog.LevelWarn))
	return cron.NewChain(cron.SkipIfStillRunning(skipLogger)).Then(cron.FuncJob(func() {
		n, err := d.RunOnce(ctx)
		if err != nil {
			d.logger.Error("digest run failed", "error", err)
			return
		}
		d.logger.Info("digest published", "reports", n)
	}))
}
