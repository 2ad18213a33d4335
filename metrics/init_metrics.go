package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tinflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
}

func (r *Registry) initMeshMetrics() {
	r.EnrichmentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinflow_enrichments_total",
			Help: "Total number of mesh enrichments",
		},
		[]string{"status"},
	)

	r.EnrichDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tinflow_enrich_duration_seconds",
			Help:    "Mesh enrichment latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.MeshTriangles = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tinflow_mesh_triangles",
			Help:    "Triangle count of enriched meshes",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	r.PathOutcomesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinflow_path_outcomes_total",
			Help: "Flow path traces by terminal outcome",
		},
		[]string{"outcome"},
	)

	r.AccumulationTime = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tinflow_accumulation_duration_seconds",
			Help:    "Flow accumulation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.CacheLookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinflow_cache_lookups_total",
			Help: "Mesh cache lookups by stage and result",
		},
		[]string{"stage", "result"},
	)

	r.PipelineRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinflow_pipeline_runs_total",
			Help: "Parcel pipeline runs by status",
		},
		[]string{"status"},
	)

	r.PipelineDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tinflow_pipeline_duration_seconds",
			Help:    "Parcel pipeline latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
}
