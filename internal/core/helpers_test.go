package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"foodie/internal/infra/api"
	"foodie/internal/infra/api/apitest"
	"foodie/internal/localstore"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCatalog(t *testing.T, opts ...Option) (*Catalog, *apitest.Server, localstore.Store) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	client, err := api.New(api.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	slot := localstore.NewMemory()
	return NewCatalog(client, slot, opts...), srv, slot
}

func loginAdmin(t *testing.T, c *Catalog, srv *apitest.Server) {
	t.Helper()
	srv.AddUser("admin", "secret", true)
	if _, err := c.Auth.Authorize(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("authorize admin: %v", err)
	}
}

func sameProduct(a, b Product) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Description == b.Description &&
		a.ImageURL == b.ImageURL &&
		a.Serving.Type == b.Serving.Type &&
		a.Serving.Size.Equal(b.Serving.Size) &&
		a.Serving.Calories.Equal(b.Serving.Calories)
}

func contains(calls []string, call string) bool {
	for _, c := range calls {
		if c == call {
			return true
		}
	}
	return false
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu      sync.Mutex
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}
