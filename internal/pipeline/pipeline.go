package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a normalized incident.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Incident, error)
}

// BatchStore persists incidents and reports how many were new.
type BatchStore interface {
	SaveBatch(ctx context.Context, incidents []domain.Incident) (int, error)
}

// Pipeline consumes raw incident reports and stores them for analysis.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	store       BatchStore
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, s BatchStore, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		store:       s,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Run executes the intake loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-store cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	stored, ok := p.transformAndStore(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if stored > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// transformAndStore transforms each message in the batch, stores the
// successes and commits offsets. A failed store is retried on the same batch
// until it succeeds or the context is cancelled. Offsets, including those of
// rejected messages, are committed only after the batch is stored. Returns the
// number of incidents handed to the store and false if the pipeline should stop.
func (p *Pipeline) transformAndStore(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	outBatch := make([]domain.Incident, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("incident rejected, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		outBatch = append(outBatch, out)
	}

	if len(outBatch) > 0 {
		inserted, ok := p.storeWithRetry(ctx, outBatch, backoff, maxBackoff)
		if !ok {
			return 0, false
		}
		p.metrics.IncidentsStored.Add(float64(inserted))
		if dup := len(outBatch) - inserted; dup > 0 {
			p.logger.Debug("skipped already stored incidents", "count", dup)
		}
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true
}

// storeWithRetry saves the batch, backing off between failed attempts.
// Returns false if the context is cancelled before the batch is stored.
func (p *Pipeline) storeWithRetry(ctx context.Context, batch []domain.Incident, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	for {
		inserted, err := p.store.SaveBatch(ctx, batch)
		if err == nil {
			return inserted, true
		}
		p.logger.Error("store batch failed, retrying", "error", err, "batch_size", len(batch), "backoff", *backoff)
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return 0, false
		}
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
