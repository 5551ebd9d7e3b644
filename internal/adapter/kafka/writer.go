package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/config"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes risk reports to the sink topic.
// It implements service.ReportPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishReports writes all reports in a single WriteMessages call. Messages
// are keyed by owner so one owner's reports stay ordered on a partition.
func (w *Writer) PublishReports(ctx context.Context, reports []analysis.Report) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d reports: %w", len(msgs), err)
	}
	w.logger.Debug("published reports", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(report analysis.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Owner),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "owner", Value: []byte(report.Owner)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
			{Key: "hotspots", Value: []byte(strconv.Itoa(len(report.Result.Hotspots)))},
		},
	}, nil
}
