package kafka

import (
	"context"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the post event publisher for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewPostPublisherFx),
)

// NewPostPublisherFx creates a Kafka publisher, or a no-op one when KAFKA_BROKERS is empty
func NewPostPublisherFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) (deps.PostPublisher, error) {
	if len(kafkaCfg.Brokers) == 0 {
		logger.Info().Msg("KAFKA_BROKERS is empty, post events are not published")
		return NoopPublisher{}, nil
	}

	producer, err := NewKafkaProducer(ProducerConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.TopicPosts,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
