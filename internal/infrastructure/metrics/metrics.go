package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the feed service
type Metrics struct {
	// Ingestion metrics
	CyclesTotal       prometheus.Counter
	CycleBusySkips    prometheus.Counter
	CycleDuration     prometheus.Histogram
	PostsStored       prometheus.Counter
	ChannelsProcessed prometheus.Counter
	ProviderErrors    *prometheus.CounterVec
	RateLimitSleeps   prometheus.Counter

	// Publishing metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec

	// Conversational layer metrics
	BotCommands *prometheus.CounterVec
	PostsSaved  *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

// NewMetrics creates a new Metrics instance registered in the default registry.
// Call it once per process; use GetDefaultMetrics elsewhere.
func NewMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_update_cycles_total",
			Help: "Total number of completed channel update cycles",
		}),
		CycleBusySkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_update_cycles_skipped_total",
			Help: "Total number of update requests rejected because a cycle was running",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "feed_service_update_cycle_duration_seconds",
			Help:    "Duration of channel update cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		PostsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_posts_stored_total",
			Help: "Total number of new posts persisted",
		}),
		ChannelsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_channels_processed_total",
			Help: "Total number of channel fetches performed",
		}),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_service_provider_errors_total",
				Help: "Total number of content provider errors",
			},
			[]string{"error_type"},
		),
		RateLimitSleeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_rate_limit_sleeps_total",
			Help: "Total number of waits requested by the content provider",
		}),
		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feed_service_kafka_messages_produced_total",
			Help: "Total number of messages produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_service_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"error_type"},
		),
		BotCommands: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_service_bot_commands_total",
				Help: "Total number of handled bot commands",
			},
			[]string{"command"},
		),
		PostsSaved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_service_save_attempts_total",
				Help: "Total number of bookmark attempts by outcome",
			},
			[]string{"result"},
		),
	}
}

// RecordCycle records a completed update cycle
func (m *Metrics) RecordCycle(postsStored int, duration float64) {
	m.CyclesTotal.Inc()
	if postsStored > 0 {
		m.PostsStored.Add(float64(postsStored))
	}
	m.CycleDuration.Observe(duration)
}

// RecordBusySkip records an update request rejected by the exclusivity guard
func (m *Metrics) RecordBusySkip() {
	m.CycleBusySkips.Inc()
}

// RecordChannelProcessed records a single channel fetch
func (m *Metrics) RecordChannelProcessed() {
	m.ChannelsProcessed.Inc()
}

// RecordProviderError records a content provider error with error type
func (m *Metrics) RecordProviderError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.ProviderErrors.WithLabelValues(errorType).Inc()
}

// RecordRateLimit records a provider-requested wait
func (m *Metrics) RecordRateLimit() {
	m.RateLimitSleeps.Inc()
}

// RecordKafkaMessage records a successfully produced message
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka produce error with error type
func (m *Metrics) RecordKafkaError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.KafkaProduceErrors.WithLabelValues(errorType).Inc()
}

// RecordBotCommand records a handled bot command
func (m *Metrics) RecordBotCommand(command string) {
	m.BotCommands.WithLabelValues(command).Inc()
}

// RecordSaveAttempt records a bookmark attempt outcome
func (m *Metrics) RecordSaveAttempt(result string) {
	m.PostsSaved.WithLabelValues(result).Inc()
}
