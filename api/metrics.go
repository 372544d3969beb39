package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike      AlertType = "login_failure_spike"
	AlertSignatureRejectedSpike AlertType = "signature_rejected_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// slidingWindow counts events inside a trailing time window.
type slidingWindow struct {
	times     []time.Time
	window    time.Duration
	threshold int
}

// add records an event at now and reports the count if it reached the
// threshold. The window is cleared after firing so one spike alerts once.
func (w *slidingWindow) add(now time.Time) (int, bool) {
	w.times = append(w.times, now)
	w.times = trimWindow(w.times, now, w.window)
	if len(w.times) < w.threshold {
		return 0, false
	}
	n := len(w.times)
	w.times = w.times[:0]
	return n, true
}

// metricsCollector tracks sliding window counters for anomaly detection.
// It only observes; nothing is blocked when an alert fires.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures slidingWindow
	rejections    slidingWindow

	alertFn AlertFunc
	now     func() time.Time
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultRejectionWindow       = 1 * time.Minute
	defaultRejectionThreshold    = 200
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginFailures: slidingWindow{window: defaultLoginFailureWindow, threshold: defaultLoginFailureThreshold},
		rejections:    slidingWindow{window: defaultRejectionWindow, threshold: defaultRejectionThreshold},
		alertFn:       alertFn,
		now:           time.Now,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginFailure:
		m.record(&m.loginFailures, AlertLoginFailureSpike, "login failure rate exceeds threshold")
	case AuditSignatureRejected:
		m.record(&m.rejections, AlertSignatureRejectedSpike, "rejected signature rate exceeds threshold")
	}
}

func (m *metricsCollector) record(w *slidingWindow, typ AlertType, msg string) {
	m.mu.Lock()
	now := m.now()
	count, fire := w.add(now)
	threshold := w.threshold
	m.mu.Unlock()

	if fire {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     count,
			Threshold: threshold,
			Timestamp: now,
		})
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
