package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	generateCreatedTotal atomic.Uint64
	generateReusedTotal  atomic.Uint64

	deployStartedTotal   atomic.Uint64
	deploySucceededTotal atomic.Uint64
	deployFailedTotal    atomic.Uint64
	deployConflictTotal  atomic.Uint64

	deployDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncGenerateCreated increments the created-session counter.
func IncGenerateCreated() {
	generateCreatedTotal.Add(1)
}

// IncGenerateReused increments the reused-session counter.
func IncGenerateReused() {
	generateReusedTotal.Add(1)
}

// IncDeployStarted increments the started counter.
func IncDeployStarted() {
	deployStartedTotal.Add(1)
}

// IncDeploySucceeded increments the succeeded counter.
func IncDeploySucceeded() {
	deploySucceededTotal.Add(1)
}

// IncDeployFailed increments the failed counter.
func IncDeployFailed() {
	deployFailedTotal.Add(1)
}

// IncDeployConflict increments the concurrent-redeploy conflict counter.
func IncDeployConflict() {
	deployConflictTotal.Add(1)
}

// ObserveDeployDurationMs records a driver call duration in milliseconds.
func ObserveDeployDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	deployDuration.Observe(value)
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
	writeCounter(&buf, "generate_created_total", "Total generation sessions created", generateCreatedTotal.Load())
	writeCounter(&buf, "generate_reused_total", "Total generation sessions reused", generateReusedTotal.Load())
	writeCounter(&buf, "deploy_started_total", "Total deploys started", deployStartedTotal.Load())
	writeCounter(&buf, "deploy_succeeded_total", "Total deploys succeeded", deploySucceededTotal.Load())
	writeCounter(&buf, "deploy_failed_total", "Total deploys failed", deployFailedTotal.Load())
	writeCounter(&buf, "deploy_conflict_total", "Total redeploy conflicts", deployConflictTotal.Load())
	writeHistogram(&buf, "deploy_duration_ms", "Deployment driver call duration in milliseconds", deployDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %g\n", name, snap.sum)
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}
