package core

import (
	"context"
	"expvar"
	"sync"
	"time"
)

// DefaultExpvarName is the /debug/vars key used by the CLI.
const DefaultExpvarName = "foodie"

// ExpvarMetricsRecorder keeps per-operation counters in a published
// expvar.Map shaped as {"product.retrieve_all": {"success": 3, "error": 1,
// "duration_ms": 12.5}}. Recorders created with the same name share the map.
type ExpvarMetricsRecorder struct {
	name string
	ops  *expvar.Map
	mu   sync.Mutex
}

// OperationTotals is the accumulated state of one operation.
type OperationTotals struct {
	Success    int64
	Error      int64
	DurationMS float64
}

// NewExpvarMetricsRecorder publishes (or reuses) the map under name. It
// panics when name is already taken by a variable that is not a map.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = DefaultExpvarName
	}
	ops, ok := expvar.Get(name).(*expvar.Map)
	if !ok {
		ops = expvar.NewMap(name)
	}
	return &ExpvarMetricsRecorder{name: name, ops: ops}
}

// Name returns the published variable name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

func (r *ExpvarMetricsRecorder) operation(name string) *expvar.Map {
	if m, ok := r.ops.Get(name).(*expvar.Map); ok {
		return m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.ops.Get(name).(*expvar.Map); ok {
		return m
	}
	m := new(expvar.Map).Init()
	r.ops.Set(name, m)
	return m
}

// Observe implements MetricsRecorder. Unnamed operations are dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	m := r.operation(operation)
	if success {
		m.Add("success", 1)
	} else {
		m.Add("error", 1)
	}
	m.AddFloat("duration_ms", float64(duration)/float64(time.Millisecond))
}

// Snapshot reads the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]OperationTotals {
	out := make(map[string]OperationTotals)
	r.ops.Do(func(kv expvar.KeyValue) {
		m, ok := kv.Value.(*expvar.Map)
		if !ok {
			return
		}
		var t OperationTotals
		if v, ok := m.Get("success").(*expvar.Int); ok {
			t.Success = v.Value()
		}
		if v, ok := m.Get("error").(*expvar.Int); ok {
			t.Error = v.Value()
		}
		if v, ok := m.Get("duration_ms").(*expvar.Float); ok {
			t.DurationMS = v.Value()
		}
		out[kv.Key] = t
	})
	return out
}
