package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	generationStartedTotal   atomic.Uint64
	generationCompletedTotal atomic.Uint64
	generationFailedTotal    atomic.Uint64

	gateFailOpenTotal atomic.Uint64
	gateDeniedTotal   atomic.Uint64

	kitCreatedTotal       atomic.Uint64
	kitMirrorFailedTotal  atomic.Uint64
	kitMirrorRetriedTotal atomic.Uint64

	rateLimitedTotal     atomic.Uint64
	panicsRecoveredTotal atomic.Uint64

	generationDuration = newHistogram([]float64{1000, 2500, 5000, 10000, 20000, 30000, 60000, 90000, 120000})
)

// IncGenerationStarted increments the started counter.
func IncGenerationStarted() {
	generationStartedTotal.Add(1)
}

// IncGenerationCompleted increments the completed counter.
func IncGenerationCompleted() {
	generationCompletedTotal.Add(1)
}

// IncGenerationFailed increments the failed counter.
func IncGenerationFailed() {
	generationFailedTotal.Add(1)
}

// ObserveGenerationDurationMs records a generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	generationDuration.Observe(value)
}

// IncGateFailOpen counts gate decisions that were allowed because the store failed.
func IncGateFailOpen() {
	gateFailOpenTotal.Add(1)
}

// IncGateDenied counts anonymous creations refused by the gate.
func IncGateDenied() {
	gateDeniedTotal.Add(1)
}

func IncKitCreated() {
	kitCreatedTotal.Add(1)
}

// IncKitMirrorFailed counts blob mirror writes that failed after the record was saved.
func IncKitMirrorFailed() {
	kitMirrorFailedTotal.Add(1)
}

func IncKitMirrorRetried() {
	kitMirrorRetriedTotal.Add(1)
}

// IncRateLimited counts requests refused by the per-caller rate limiter.
func IncRateLimited() {
	rateLimitedTotal.Add(1)
}

// IncPanicRecovered counts handler panics turned into 500 responses.
func IncPanicRecovered() {
	panicsRecoveredTotal.Add(1)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "generation_started_total", "Total kit generations started", generationStartedTotal.Load())
	writeCounter(&buf, "generation_completed_total", "Total kit generations completed", generationCompletedTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total kit generations failed", generationFailedTotal.Load())
	writeHistogram(&buf, "generation_duration_ms", "Generation duration in milliseconds", generationDuration.Snapshot())
	writeCounter(&buf, "gate_fail_open_total", "Gate decisions allowed because the usage store failed", gateFailOpenTotal.Load())
	writeCounter(&buf, "gate_denied_total", "Anonymous kit creations denied by the gate", gateDeniedTotal.Load())
	writeCounter(&buf, "kit_created_total", "Total kits persisted", kitCreatedTotal.Load())
	writeCounter(&buf, "kit_mirror_failed_total", "Kit blob mirror writes that failed", kitMirrorFailedTotal.Load())
	writeCounter(&buf, "kit_mirror_retried_total", "Kit mirror retries processed by the worker", kitMirrorRetriedTotal.Load())
	writeCounter(&buf, "http_rate_limited_total", "Requests refused by the per-caller rate limiter", rateLimitedTotal.Load())
	writeCounter(&buf, "http_panics_recovered_total", "Handler panics recovered into 500 responses", panicsRecoveredTotal.Load())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound contains it; counts are
// made cumulative at render time.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
