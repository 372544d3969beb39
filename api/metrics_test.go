package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []AlertEvent
}

func (r *alertRecorder) record(e AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, e)
}

func (r *alertRecorder) snapshot() []AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AlertEvent(nil), r.alerts...)
}

// manualClock is a settable time source.
type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector() (*metricsCollector, *alertRecorder, *manualClock) {
	rec := &alertRecorder{}
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newMetricsCollector(rec.record)
	c.now = clock.now
	return c, rec, clock
}

func TestLoginFailureSpikeAlert(t *testing.T) {
	collector, rec, _ := newTestCollector()
	collector.loginFailures.threshold = 5

	for range 4 {
		collector.recordEvent(AuditLoginFailure)
	}
	assert.Empty(t, rec.snapshot(), "no alert below threshold")

	collector.recordEvent(AuditLoginFailure)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLoginFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	assert.Equal(t, 5, alerts[0].Threshold)
}

func TestSignatureRejectedSpikeAlert(t *testing.T) {
	collector, rec, _ := newTestCollector()
	collector.rejections.threshold = 3

	collector.recordEvent(AuditSignatureRejected)
	collector.recordEvent(AuditSignatureRejected)
	assert.Empty(t, rec.snapshot())

	collector.recordEvent(AuditSignatureRejected)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSignatureRejectedSpike, alerts[0].Type)
}

func TestMetricsIgnoresOtherEvents(t *testing.T) {
	collector, rec, _ := newTestCollector()
	collector.loginFailures.threshold = 1
	collector.recordEvent(AuditLoginSuccess)
	collector.recordEvent(AuditGuestProvisioned)
	assert.Empty(t, rec.snapshot())
}

func TestMetricsWithoutCallback(t *testing.T) {
	assert.NotPanics(t, func() {
		newMetricsCollector(nil).recordEvent(AuditLoginFailure)
	})
	assert.NotPanics(t, func() {
		var collector *metricsCollector
		collector.recordEvent(AuditLoginFailure)
	})
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	collector, rec, clock := newTestCollector()
	collector.loginFailures.threshold = 5

	for range 4 {
		collector.recordEvent(AuditLoginFailure)
	}
	clock.advance(defaultLoginFailureWindow + time.Second)

	collector.recordEvent(AuditLoginFailure)
	assert.Empty(t, rec.snapshot(), "old failures should not count after window expiry")
}

func TestMetricsResetAfterAlert(t *testing.T) {
	collector, rec, _ := newTestCollector()
	collector.loginFailures.threshold = 3

	for range 3 {
		collector.recordEvent(AuditLoginFailure)
	}
	require.Len(t, rec.snapshot(), 1, "first alert triggered")

	for range 2 {
		collector.recordEvent(AuditLoginFailure)
	}
	assert.Len(t, rec.snapshot(), 1, "no second alert yet")

	collector.recordEvent(AuditLoginFailure)
	assert.Len(t, rec.snapshot(), 2, "second alert triggered")
}
