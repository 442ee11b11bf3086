/*
Package metrics provides Prometheus metrics collection and exposition for NebulaStore.

The metrics package defines and registers all NebulaStore metrics using the
Prometheus client library, giving callers observability into connector
health, GigaMap size and transactional behavior, and query-cache
effectiveness. Metrics are exposed via an HTTP handler for scraping by
Prometheus servers; NebulaStore itself never listens on a port.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Connector: retries, errors, blob writes    │          │
	│  │  GigaMap: size, constraint, rollback        │          │
	│  │  QueryCache: hits, misses, evictions        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Handler: metrics.Handler()               │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Connector Metrics:

nebulastore_connector_retries_total{backend}:
  - Type: Counter
  - Description: Backend operation retries, incremented on every
    withRetry attempt that failed and is being retried
  - Labels: backend (connector name, e.g. "local", "s3", "docstore")

nebulastore_connector_errors_total{backend}:
  - Type: Counter
  - Description: Terminal backend errors after retries are exhausted

nebulastore_blobs_written_total{backend}:
  - Type: Counter
  - Description: Total blob puts, one increment per fragment written
    by WriteAll

nebulastore_write_all_duration_seconds{backend}:
  - Type: Histogram
  - Description: Connector.WriteAll latency

nebulastore_read_range_duration_seconds{backend}:
  - Type: Histogram
  - Description: Connector.ReadRange latency

nebulastore_metadata_cache_hits_total{backend} / _misses_total{backend}:
  - Type: Counter
  - Description: FileSize/FileExists lookups served from, or missing,
    the connector's metadata cache

GigaMap Metrics:

nebulastore_gigamap_entities_total{map}:
  - Type: Gauge
  - Description: Live entity count, updated on every Add/RemoveByID

nebulastore_gigamap_highest_used_id{map}:
  - Type: Gauge
  - Description: Highest id ever assigned in the map

nebulastore_gigamap_constraint_violations_total{map, constraint}:
  - Type: Counter
  - Description: Rejections by constraint name, across Add/Set/Update

nebulastore_gigamap_update_rollbacks_total{map}:
  - Type: Counter
  - Description: Transactional Update calls that rolled back (mutator
    error or constraint violation)

nebulastore_gigamap_update_duration_seconds{map}:
  - Type: Histogram
  - Description: Time taken by a single Update call, success or rollback

Query Cache Metrics:

nebulastore_query_cache_entries_total:
  - Type: Gauge
  - Description: Entries currently held in the cache

nebulastore_query_cache_hits_total / _misses_total:
  - Type: Counter
  - Description: Get() outcomes

nebulastore_query_cache_evictions_total{reason}:
  - Type: Counter
  - Description: Entries removed, labeled "expired", "capacity", or
    "corrupt" (decompression failure)

# Usage

	import "github.com/cuemby/nebulastore/pkg/metrics"

	metrics.GigaMapEntitiesTotal.WithLabelValues("accounts").Set(42)
	metrics.QueryCacheHitsTotal.Inc()

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.WriteAllDuration, "local")

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, catching accidental double-definition early.

Label Discipline:
  - Labels are backend/map names and fixed reason strings, never ids or
    signatures — cardinality stays bounded regardless of dataset size.

Timer Pattern:
  - NewTimer() at operation start, ObserveDuration/ObserveDurationVec
    at the end (typically via defer).
*/
package metrics
