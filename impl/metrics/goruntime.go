// The approach in this file follows https://github.com/GilGil1/go-metrics-examples/tree/main based on
// an article here: https://medium.com/cyberark-engineering/golang-monitoring-made-easy-with-version-1-16-df06f7477d75.
// The GitHub LICENSE file is: https://github.com/GilGil1/go-metrics-examples/blob/main/LICENSE
package metrics

import (
	"fmt"
	"runtime/metrics"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// readRuntimeMetric is called by Prometheus on each scrape to produce one value
func readRuntimeMetric(name string) float64 {
	sample := []metrics.Sample{{Name: name}}
	metrics.Read(sample)
	return toFloat64(sample[0])
}

// addGoRuntimeMetrics registers every go runtime metric with prometheus as a counter
// func (cumulative metrics) or a gauge func (everything else).
func addGoRuntimeMetrics() {
	for _, desc := range metrics.All() {
		name := desc.Name
		opts, ok := runtimeOpts(desc)
		if !ok {
			continue
		}
		var c prometheus.Collector
		if desc.Cumulative {
			c = prometheus.NewCounterFunc(prometheus.CounterOpts(opts), func() float64 {
				return readRuntimeMetric(name)
			})
		} else {
			c = prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts), func() float64 {
				return readRuntimeMetric(name)
			})
		}
		if err := prometheus.Register(c); err != nil {
			log.Debugf("skipping runtime metric %s: %s", name, err)
		}
	}
}

// runtimeOpts converts a runtime metric name like '/gc/heap/allocs:bytes' into
// prometheus options: namespace 'gc', subsystem 'heap', name 'allocs_bytes'.
func runtimeOpts(desc metrics.Description) (prometheus.Opts, bool) {
	tokens := strings.Split(desc.Name, "/")
	if len(tokens) < 3 {
		return prometheus.Opts{}, false
	}
	last := strings.Split(tokens[len(tokens)-1], ":")
	if len(last) != 2 {
		return prometheus.Opts{}, false
	}
	return prometheus.Opts{
		Namespace: promName(tokens[1]),
		Subsystem: promName(strings.Join(tokens[2:len(tokens)-1], "_")),
		Name:      promName(last[0] + "_" + last[1]),
		Help:      fmt.Sprintf("Units:%s, %s", last[1], desc.Description),
	}, true
}

// promName makes a runtime metric token a valid prometheus name token
func promName(s string) string {
	return strings.NewReplacer("-", "_", "*", "x", ".", "_").Replace(strings.TrimSpace(s))
}

func toFloat64(sample metrics.Sample) float64 {
	switch sample.Value.Kind() {
	case metrics.KindUint64:
		return float64(sample.Value.Uint64())
	case metrics.KindFloat64:
		return sample.Value.Float64()
	case metrics.KindFloat64Histogram:
		return histogramMedian(sample.Value.Float64Histogram())
	}
	return 0
}

// histogramMedian reports a runtime histogram as the lower bound of the bucket holding
// the median observation.
func histogramMedian(h *metrics.Float64Histogram) float64 {
	total := uint64(0)
	for _, count := range h.Counts {
		total += count
	}
	if total == 0 {
		return 0
	}
	half := (total + 1) / 2
	seen := uint64(0)
	for i, count := range h.Counts {
		seen += count
		if seen >= half {
			return h.Buckets[i]
		}
	}
	return 0
}
