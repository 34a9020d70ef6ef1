package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// ReportWriter publishes run reports to a Kafka topic.
// It implements pipeline.ReportPublisher.
type ReportWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReportWriter creates a Kafka producer for the configured report topic.
func NewReportWriter(cfg *config.Config, logger *slog.Logger) *ReportWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.ReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.ElevationTimeout,
	}
	return &ReportWriter{writer: w, logger: logger}
}

// Name identifies the publisher in logs.
func (w *ReportWriter) Name() string {
	return "kafka:" + w.writer.Topic
}

// Publish serializes the report and writes it as a single message keyed by run ID.
func (w *ReportWriter) Publish(ctx context.Context, report domain.RunReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run report to %s: %w", w.writer.Topic, err)
	}
	w.logger.Debug("run report published", "topic", w.writer.Topic, "run_id", report.RunID)
	return nil
}

func (w *ReportWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RunReport into a Kafka message.
func serializeToMessage(report domain.RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset", Value: []byte(report.Dataset)},
			{Key: "timestamp", Value: []byte(report.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
