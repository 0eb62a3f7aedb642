package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgnewsfeed/internal/domain/feed/deps"
	"github.com/Conte777/tgnewsfeed/internal/domain/feed/dto"
	"github.com/Conte777/tgnewsfeed/internal/infrastructure/metrics"
)

// closeTimeout bounds how long Close waits for in-flight messages
const closeTimeout = 10 * time.Second

// KafkaProducer publishes post events to Kafka using an asynchronous producer
type KafkaProducer struct {
	producer  sarama.AsyncProducer
	topic     string
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// ProducerConfig holds configuration for Kafka producer
type ProducerConfig struct {
	Brokers    []string
	Topic      string
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	MaxRetries int
}

// NewKafkaProducer creates a new Kafka producer.
// Messages are keyed by channel id so events of one channel keep their order.
func NewKafkaProducer(cfg ProducerConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.ClientID = "feed-service-producer"
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cfg.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer initialized successfully")

	return newKafkaProducer(producer, cfg.Topic, cfg.Logger, cfg.Metrics), nil
}

func newKafkaProducer(producer sarama.AsyncProducer, topic string, logger zerolog.Logger, m *metrics.Metrics) *KafkaProducer {
	p := &KafkaProducer{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "kafka-producer").Logger(),
		metrics:  m,
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	return p
}

// PublishPostCreated queues a post created event. Delivery errors are reported asynchronously.
func (p *KafkaProducer) PublishPostCreated(ctx context.Context, event *dto.PostCreatedEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.MessageID <= 0 {
		return fmt.Errorf("message_id must be positive, got %d", event.MessageID)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending: %w", err)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal post created event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(strconv.FormatUint(uint64(event.ChannelID), 10)),
		Value:     sarama.ByteEncoder(value),
		Timestamp: event.Date,
	}

	select {
	case p.producer.Input() <- msg:
		p.logger.Debug().
			Uint("channel_id", event.ChannelID).
			Int("message_id", event.MessageID).
			Msg("Post event queued for sending to Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func (p *KafkaProducer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		p.metrics.RecordKafkaMessage()
		p.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Message sent to Kafka successfully")
	}
}

func (p *KafkaProducer) handleErrors() {
	defer p.wg.Done()

	for producerErr := range p.producer.Errors() {
		p.metrics.RecordKafkaError("send_failed")
		p.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Interface("key", producerErr.Msg.Key).
			Msg("Failed to send message to Kafka")
	}
}

// Close flushes pending messages and stops the producer. Safe to call more than once.
func (p *KafkaProducer) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Info().Msg("Closing Kafka producer")

		if err := p.producer.Close(); err != nil {
			p.closeErr = fmt.Errorf("producer close failed: %w", err)
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(closeTimeout):
			p.logger.Warn().Dur("timeout", closeTimeout).Msg("Timeout waiting for Kafka handlers")
		}
	})
	return p.closeErr
}

// NoopPublisher discards events; used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishPostCreated(context.Context, *dto.PostCreatedEvent) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

var (
	_ deps.PostPublisher = (*KafkaProducer)(nil)
	_ deps.PostPublisher = NoopPublisher{}
)
