package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"foodie/internal/localstore/core"
)

func TestStoreBasics(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Get(ctx, "key"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = s.Put(ctx, "key", "v1")
	if v, _ := s.Get(ctx, "key"); v != "v1" {
		t.Fatalf("expected v1, got %q", v)
	}
	if ok, _ := s.Delete(ctx, "key"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := s.Delete(ctx, "key"); ok {
		t.Fatalf("expected delete of missing key to report false")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, "key", "v")
			_, _ = s.Get(ctx, "key")
		}()
	}
	wg.Wait()
	if v, err := s.Get(ctx, "key"); err != nil || v != "v" {
		t.Fatalf("unexpected final value %q (%v)", v, err)
	}
}
