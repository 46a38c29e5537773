package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStringSetNoDuplicates(t *testing.T) {
	s := NewStringSet()

	if !s.Add("https://www.commodityonline.com/mandiprices/potato/bihar") {
		t.Error("first Add should return true")
	}
	if s.Add("https://www.commodityonline.com/mandiprices/potato/bihar") {
		t.Error("second Add of same value should return false")
	}
	if !s.Contains("https://www.commodityonline.com/mandiprices/potato/bihar") {
		t.Error("Contains should report an added value")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestStringSetConcurrency(t *testing.T) {
	s := NewStringSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(context.Background(), func() {
			if s.Add("delhi") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(context.Background(), func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(timestamps) != 3 {
		t.Fatalf("expected 3 jobs to run, got %d", len(timestamps))
	}
	min := time.Duration(rateLimitMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int64
	for i := 0; i < 8; i++ {
		pool.Submit(context.Background(), func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency: got %d, want <= 2", peak)
	}
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	if err := pool.Submit(ctx, func() { <-release }); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	cancel()

	var ran int64
	err := pool.Submit(ctx, func() { atomic.AddInt64(&ran, 1) })
	if err != context.Canceled {
		t.Errorf("Submit on a full, cancelled pool: got %v, want %v", err, context.Canceled)
	}
	close(release)
	pool.Wait()

	if ran != 0 {
		t.Errorf("rejected job ran %d times", ran)
	}
}
