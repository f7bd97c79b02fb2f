package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/bousai-map/internal/config"
	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each feature of a dataset as one message to a Kafka topic.
type Publisher struct {
	writer  messageWriter
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, clock, logger, metrics)
}

func newPublisher(w messageWriter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{writer: w, clock: clock, logger: logger, metrics: metrics}
}

// Publish sends every feature of the dataset in a single WriteMessages call,
// preserving collection order. All messages share one published_at stamp.
func (p *Publisher) Publish(ctx context.Context, ds domain.Dataset) error {
	if ds.GeoJSON == nil || len(ds.GeoJSON.Features) == 0 {
		return nil
	}

	publishedAt := p.clock.Now().UTC()
	msgs := make([]kafkago.Message, 0, len(ds.GeoJSON.Features))
	for i, f := range ds.GeoJSON.Features {
		msg, err := serializeFeature(i, f, publishedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish features: %w", err)
	}

	p.metrics.FeaturesPublished.Add(float64(len(msgs)))
	p.logger.Info("features published", "count", len(msgs), "published_at", publishedAt)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeFeature marshals a feature into a Kafka message keyed by its
// coordinates so repeated exports of one shelter land on the same partition.
func serializeFeature(index int, f *geojson.Feature, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature %d: %w", index, err)
	}

	key := strconv.Itoa(index)
	if pt, ok := f.Geometry.(orb.Point); ok {
		key = fmt.Sprintf("%.6f,%.6f", pt.Lon(), pt.Lat())
	}

	category, _ := f.Properties[domain.PropSizeCategory].(string)
	district, _ := f.Properties[domain.PropDistrict].(string)

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "size_category", Value: []byte(category)},
			{Key: "district", Value: []byte(district)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
