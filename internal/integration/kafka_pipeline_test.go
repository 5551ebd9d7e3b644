//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/kafka"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/sqlite"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/config"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/pipeline"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/service"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-raw-incidents"
	testSinkTopic   = "test-risk-reports"
	northOwner      = "ranger.north@example.org"
	southOwner      = "ranger.south@example.org"
)

type publishedReport struct {
	Report  analysis.Report
	Key     string
	Headers map[string]string
}

func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedReport {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var report analysis.Report
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal sink message")
	return publishedReport{Report: report, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
		Analysis:           analysis.DefaultConfig(),
	}
}

func publishRecords(ctx context.Context, t *testing.T, broker string, values ...[]byte) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	defer producer.Close()

	msgs := make([]kafkago.Message, 0, len(values))
	for i, v := range values {
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(fmt.Sprintf("record-%d", i)),
			Value: v,
			Time:  time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

// TestKafkaReaderWriter round-trips a raw record through kafka.Reader and a
// report through kafka.Writer.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload, err := json.Marshal(loadMockData(t)[0])
	require.NoError(t, err)
	publishRecords(ctx, t, broker, payload)

	// Retry while the consumer group rebalances.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for len(batch) == 0 {
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("record-0"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	require.NotNil(t, raw.Commit)
	require.NoError(t, raw.Commit(ctx))

	inc, err := pipeline.NewTransformer().Transform(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, northOwner, inc.Owner)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	report := analysis.Report{Owner: northOwner, GeneratedAt: time.Date(2024, 3, 12, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, writer.PublishReports(ctx, []analysis.Report{report}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readReport(ctx, t, consumer)
	assert.Equal(t, northOwner, got.Key)
	assert.Equal(t, northOwner, got.Headers["owner"])
	assert.Equal(t, "2024-03-12T06:00:00Z", got.Headers["generated_at"])
	assert.Equal(t, report.GeneratedAt, got.Report.GeneratedAt)
}

// TestPipelineToDigest stores every fixture record through the pipeline, then
// runs the digest and checks the published reports.
func TestPipelineToDigest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	records := loadMockData(t)
	values := [][]byte{[]byte("not-json{{{")} // poison message first
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		require.NoError(t, err)
		values = append(values, payload)
	}
	publishRecords(ctx, t, broker, values...)

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "incidents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(), store, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	require.Eventually(t, func() bool {
		north, _ := store.ListByOwner(ctx, northOwner)
		south, _ := store.ListByOwner(ctx, southOwner)
		return len(north)+len(south) == len(records)
	}, 60*time.Second, 250*time.Millisecond, "pipeline did not store every record")

	pipelineCancel()
	require.NoError(t, <-errCh)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	analyzer := service.NewAnalysisService(store, nil, cfg.Analysis, metrics, discardLogger())
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 26, 6, 0, 0, 0, time.UTC))
	digest := service.NewDigest(analyzer, writer, clock, metrics, discardLogger())

	n, err := digest.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	reports := map[string]analysis.Report{}
	for len(reports) < 2 {
		got := readReport(ctx, t, consumer)
		assert.Equal(t, got.Key, got.Report.Owner)
		reports[got.Report.Owner] = got.Report
	}

	north := reports[northOwner]
	require.Len(t, north.Result.Hotspots, 2)
	assert.Equal(t, analysis.RiskHigh, north.Result.Hotspots[0].RiskLevel)
	assert.Equal(t, 11, north.Result.Statistics.TotalIncidents)
	assert.Equal(t, clock.Now(), north.GeneratedAt)

	south := reports[southOwner]
	require.Len(t, south.Result.Hotspots, 1)
	assert.Equal(t, 6, south.Result.Statistics.TotalIncidents)
}
