package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The 'addImgcacheMetrics'
// function initializes these with functions having implementations if metrics are
// enabled.

var IncMemoryHits noLabel = func() {}
var IncDiskHits noLabel = func() {}
var IncLoaderHits noLabel = func() {}
var IncNetworkFetches noLabel = func() {}
var IncTransforms noLabel = func() {}
var IncDedupJoins noLabel = func() {}
var IncFailuresByKind withLabel = func(string) {}
var DeltaPendingKeys delta = func(float64) {}
var DeltaMemCacheCount delta = func(float64) {}
var DeltaDiskBytes delta = func(float64) {}
var IncApiRequests noLabel = func() {}

type withLabel func(string)
type noLabel func()
type delta func(float64)

const (
	memory_hits_total      = "memory_hits_total"
	disk_hits_total        = "disk_hits_total"
	loader_hits_total      = "loader_hits_total"
	network_fetches_total  = "network_fetches_total"
	transforms_total       = "transforms_total"
	dedup_joins_total      = "dedup_joins_total"
	failures_by_kind_total = "failures_by_kind_total"
	pending_keys           = "pending_keys"
	mem_cache_count        = "mem_cache_count"
	disk_bytes_written     = "disk_bytes_written"
	api_requests_total     = "api_requests_total"
	kind_label             = "kind"
	namespace              = "imgcache"
)

// Prometheus metrics objects

var memoryHitsTotal prometheus.Counter
var diskHitsTotal prometheus.Counter
var loaderHitsTotal prometheus.Counter
var networkFetchesTotal prometheus.Counter
var transformsTotal prometheus.Counter
var dedupJoinsTotal prometheus.Counter
var failuresByKindTotal *prometheus.CounterVec
var pendingKeys prometheus.Gauge
var memCacheCount prometheus.Gauge
var diskBytesWritten prometheus.Gauge
var apiRequestsTotal prometheus.Counter

// addImgcacheMetrics creates all the imgcache metrics and registers them with the
// prometheus library. It also assigns a function to actually implement the metric.
// Unless this function is called, all the metric functions exposed by the package
// will be NOP functions.
func addImgcacheMetrics() {
	memoryHitsTotal = newCounter(memory_hits_total, "Requests satisfied from the memory cache")
	IncMemoryHits = func() {
		memoryHitsTotal.Add(1)
	}

	///
	diskHitsTotal = newCounter(disk_hits_total, "Producers satisfied from the disk cache")
	IncDiskHits = func() {
		diskHitsTotal.Add(1)
	}

	///
	loaderHitsTotal = newCounter(loader_hits_total, "Producers satisfied by a registered loader")
	IncLoaderHits = func() {
		loaderHitsTotal.Add(1)
	}

	///
	networkFetchesTotal = newCounter(network_fetches_total, "Fetches issued to the transport")
	IncNetworkFetches = func() {
		networkFetchesTotal.Add(1)
	}

	///
	transformsTotal = newCounter(transforms_total, "Transform chains applied")
	IncTransforms = func() {
		transformsTotal.Add(1)
	}

	///
	dedupJoinsTotal = newCounter(dedup_joins_total, "Requests that joined an in-flight producer instead of starting one")
	IncDedupJoins = func() {
		dedupJoinsTotal.Add(1)
	}

	///
	failuresByKindTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      failures_by_kind_total,
			Namespace: namespace,
			Help:      "Producer failures by error kind",
		},
		[]string{kind_label},
	)
	IncFailuresByKind = func(kind string) {
		failuresByKindTotal.With(prometheus.Labels{kind_label: kind}).Add(1)
	}

	///
	pendingKeys = newGauge(pending_keys, "Keys with an in-flight producer")
	DeltaPendingKeys = func(delta float64) {
		pendingKeys.Add(delta)
	}

	///
	memCacheCount = newGauge(mem_cache_count, "Artifacts in the memory cache")
	DeltaMemCacheCount = func(delta float64) {
		memCacheCount.Add(delta)
	}

	///
	diskBytesWritten = newGauge(disk_bytes_written, "Bytes committed to the disk cache by this process")
	DeltaDiskBytes = func(delta float64) {
		diskBytesWritten.Add(delta)
	}

	///
	apiRequestsTotal = newCounter(api_requests_total, "Calls to the image API endpoints")
	IncApiRequests = func() {
		apiRequestsTotal.Add(1)
	}
}

func newCounter(name, help string) prometheus.Counter {
	return promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      name,
			Namespace: namespace,
			Help:      help,
		},
	)
}

func newGauge(name, help string) prometheus.Gauge {
	return promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      name,
			Namespace: namespace,
			Help:      help,
		},
	)
}
