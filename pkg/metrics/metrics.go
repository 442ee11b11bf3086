package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connector metrics
	ConnectorRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_connector_retries_total",
			Help: "Total number of backend operation retries by connector backend",
		},
		[]string{"backend"},
	)

	ConnectorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_connector_errors_total",
			Help: "Total number of terminal backend errors by connector backend",
		},
		[]string{"backend"},
	)

	BlobsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_blobs_written_total",
			Help: "Total number of blob puts by connector backend",
		},
		[]string{"backend"},
	)

	WriteAllDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebulastore_write_all_duration_seconds",
			Help:    "Time taken by Connector.WriteAll in seconds, by backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	ReadRangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebulastore_read_range_duration_seconds",
			Help:    "Time taken by Connector.ReadRange in seconds, by backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	MetadataCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_metadata_cache_hits_total",
			Help: "Total number of metadata cache hits by connector backend",
		},
		[]string{"backend"},
	)

	MetadataCacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_metadata_cache_misses_total",
			Help: "Total number of metadata cache misses by connector backend",
		},
		[]string{"backend"},
	)

	// GigaMap metrics
	GigaMapEntitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebulastore_gigamap_entities_total",
			Help: "Number of live entities in a GigaMap, by map name",
		},
		[]string{"map"},
	)

	GigaMapHighestUsedID = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebulastore_gigamap_highest_used_id",
			Help: "Highest entity id ever assigned in a GigaMap, by map name",
		},
		[]string{"map"},
	)

	GigaMapConstraintViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_gigamap_constraint_violations_total",
			Help: "Total number of constraint-violation rejections, by map name and constraint",
		},
		[]string{"map", "constraint"},
	)

	GigaMapUpdateRollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_gigamap_update_rollbacks_total",
			Help: "Total number of transactional updates that rolled back, by map name",
		},
		[]string{"map"},
	)

	GigaMapUpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebulastore_gigamap_update_duration_seconds",
			Help:    "Time taken by a GigaMap transactional update in seconds, by map name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"map"},
	)

	// Query cache metrics
	QueryCacheEntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebulastore_query_cache_entries_total",
			Help: "Number of entries currently held in the query cache",
		},
	)

	QueryCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulastore_query_cache_hits_total",
			Help: "Total number of query cache hits",
		},
	)

	QueryCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulastore_query_cache_misses_total",
			Help: "Total number of query cache misses",
		},
	)

	QueryCacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulastore_query_cache_evictions_total",
			Help: "Total number of query cache evictions, by reason (expired, capacity, corrupt)",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(ConnectorRetriesTotal)
	prometheus.MustRegister(ConnectorErrorsTotal)
	prometheus.MustRegister(BlobsWrittenTotal)
	prometheus.MustRegister(WriteAllDuration)
	prometheus.MustRegister(ReadRangeDuration)
	prometheus.MustRegister(MetadataCacheHitsTotal)
	prometheus.MustRegister(MetadataCacheMissesTotal)

	prometheus.MustRegister(GigaMapEntitiesTotal)
	prometheus.MustRegister(GigaMapHighestUsedID)
	prometheus.MustRegister(GigaMapConstraintViolationsTotal)
	prometheus.MustRegister(GigaMapUpdateRollbacksTotal)
	prometheus.MustRegister(GigaMapUpdateDuration)

	prometheus.MustRegister(QueryCacheEntriesTotal)
	prometheus.MustRegister(QueryCacheHitsTotal)
	prometheus.MustRegister(QueryCacheMissesTotal)
	prometheus.MustRegister(QueryCacheEvictionsTotal)
}

// Handler returns the Prometheus HTTP handler, for a host process that
// wants to expose /metrics; the core library itself never listens.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
