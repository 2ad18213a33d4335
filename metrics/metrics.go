package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 汇流引擎的全部指标
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 网格
	EnrichmentsTotal  *prometheus.CounterVec
	EnrichDuration    prometheus.Histogram
	MeshTriangles     prometheus.Histogram
	PathOutcomesTotal *prometheus.CounterVec
	AccumulationTime  prometheus.Histogram
	CacheLookupsTotal *prometheus.CounterVec
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry 全局单例
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry 创建独立的指标注册表
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initHTTPMetrics()
	r.initMeshMetrics()
	return r
}

// GetPrometheusRegistry 底层 prometheus 注册表
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler /metrics 导出
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordEnrichment status 为 success 或 error
func (r *Registry) RecordEnrichment(status string, triangles int, duration time.Duration) {
	r.EnrichmentsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		r.EnrichDuration.Observe(duration.Seconds())
		r.MeshTriangles.Observe(float64(triangles))
	}
}

func (r *Registry) RecordPathOutcome(outcome string) {
	r.PathOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordAccumulation(duration time.Duration) {
	r.AccumulationTime.Observe(duration.Seconds())
}

// RecordCacheLookup result 为 hit 或 miss
func (r *Registry) RecordCacheLookup(stage, result string) {
	r.CacheLookupsTotal.WithLabelValues(stage, result).Inc()
}

func (r *Registry) RecordPipelineRun(status string, duration time.Duration) {
	r.PipelineRunsTotal.WithLabelValues(status).Inc()
	r.PipelineDuration.Observe(duration.Seconds())
}
