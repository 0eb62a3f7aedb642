package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetDefaultMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetDefaultMetrics(), GetDefaultMetrics())
}

func TestMetrics_RecordCycle(t *testing.T) {
	m := GetDefaultMetrics()
	cycles := testutil.ToFloat64(m.CyclesTotal)
	posts := testutil.ToFloat64(m.PostsStored)

	m.RecordCycle(3, 1.5)
	m.RecordCycle(0, 0.5)
	// negative counts are ignored
	m.RecordCycle(-1, 0.5)

	assert.Equal(t, cycles+3, testutil.ToFloat64(m.CyclesTotal))
	assert.Equal(t, posts+3, testutil.ToFloat64(m.PostsStored))
}

func TestMetrics_RecordProviderError(t *testing.T) {
	m := GetDefaultMetrics()
	before := testutil.ToFloat64(m.ProviderErrors.WithLabelValues("unknown"))

	m.RecordProviderError("")
	m.RecordProviderError("access_denied")

	assert.Equal(t, before+1, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("unknown")))
}

func TestMetrics_RecordKafkaError(t *testing.T) {
	m := GetDefaultMetrics()
	before := testutil.ToFloat64(m.KafkaProduceErrors.WithLabelValues("send_failed"))

	m.RecordKafkaError("send_failed")

	assert.Equal(t, before+1, testutil.ToFloat64(m.KafkaProduceErrors.WithLabelValues("send_failed")))
}

func TestMetrics_Counters(t *testing.T) {
	m := GetDefaultMetrics()

	busy := testutil.ToFloat64(m.CycleBusySkips)
	m.RecordBusySkip()
	assert.Equal(t, busy+1, testutil.ToFloat64(m.CycleBusySkips))

	limits := testutil.ToFloat64(m.RateLimitSleeps)
	m.RecordRateLimit()
	assert.Equal(t, limits+1, testutil.ToFloat64(m.RateLimitSleeps))

	m.RecordChannelProcessed()
	m.RecordKafkaMessage()
	m.RecordBotCommand("feed")
	m.RecordSaveAttempt("saved")
}
