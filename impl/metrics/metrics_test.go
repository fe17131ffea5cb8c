package metrics

import (
	"runtime/metrics"
	"testing"
)

func TestRuntimeOpts(t *testing.T) {
	opts, ok := runtimeOpts(metrics.Description{Name: "/gc/heap/allocs:bytes"})
	if !ok {
		t.FailNow()
	}
	if opts.Namespace != "gc" || opts.Subsystem != "heap" || opts.Name != "allocs_bytes" {
		t.Fail()
	}
	if _, ok := runtimeOpts(metrics.Description{Name: "bogus"}); ok {
		t.Fail()
	}
}

func TestHistogramMedian(t *testing.T) {
	h := &metrics.Float64Histogram{
		Counts:  []uint64{1, 1, 5, 1},
		Buckets: []float64{0, 1, 2, 3, 4},
	}
	if histogramMedian(h) != 2 {
		t.Fail()
	}
	if histogramMedian(&metrics.Float64Histogram{Counts: []uint64{0}, Buckets: []float64{0, 1}}) != 0 {
		t.Fail()
	}
}

// The exported functions are NOPs until InitMetrics is called with a port
func TestNopByDefault(t *testing.T) {
	InitMetrics(0)
	IncMemoryHits()
	IncFailuresByKind("transport failure")
	DeltaPendingKeys(1)
}
