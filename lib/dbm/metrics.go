package dbm

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// storeMetrics holds the counters of one store. Every store gets its own
// metrics.Set so that independent instances never share series.
type storeMetrics struct {
	name      string
	set       *metrics.Set
	freeSlots atomic.Int64
}

func newStoreMetrics(name string, capacity int) *storeMetrics {
	m := &storeMetrics{
		name: name,
		set:  metrics.NewSet(),
	}
	m.freeSlots.Store(int64(capacity))
	m.set.NewGauge(fmt.Sprintf(`tkv_free_slots{store=%q}`, name), func() float64 {
		return float64(m.freeSlots.Load())
	})
	m.set.NewGauge(fmt.Sprintf(`tkv_capacity{store=%q}`, name), func() float64 {
		return float64(capacity)
	})
	return m
}

// op counts a finished store operation by its result code
func (m *storeMetrics) op(op string, err error) {
	if m == nil {
		return
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`tkv_operations_total{store=%q,op=%q,result=%q}`, m.name, op, CodeOf(err))).Inc()
}

// backendCall counts a call to a backend capability
func (m *storeMetrics) backendCall(call string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`tkv_backend_calls_total{store=%q,call=%q,result=%q}`, m.name, call, result)).Inc()
}

// tableHit counts Get requests answered from the table (hit) or the backend (miss)
func (m *storeMetrics) tableHit(hit bool) {
	name := fmt.Sprintf(`tkv_table_misses_total{store=%q}`, m.name)
	if hit {
		name = fmt.Sprintf(`tkv_table_hits_total{store=%q}`, m.name)
	}
	m.set.GetOrCreateCounter(name).Inc()
}

// cacheFill counts read-through results written into the table
func (m *storeMetrics) cacheFill() {
	m.set.GetOrCreateCounter(fmt.Sprintf(`tkv_cache_fills_total{store=%q}`, m.name)).Inc()
}

func (m *storeMetrics) setFree(n int) {
	m.freeSlots.Store(int64(n))
}

// WriteMetrics writes the store metrics in Prometheus text format to w
func (s *Store) WriteMetrics(w io.Writer) {
	if s.metrics == nil {
		return
	}
	s.metrics.set.WritePrometheus(w)
}
