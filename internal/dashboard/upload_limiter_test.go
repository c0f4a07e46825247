package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	limiter.Release()

	status := limiter.Status()
	if status.Active != 0 || status.Available != 2 || status.MaxConcurrent != 2 {
		t.Errorf("Status = %+v, want {0 2 2}", status)
	}
}

func TestUploadLimiter_TimeoutWhenFull(t *testing.T) {
	limiter := NewUploadLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("got %v, want ErrTooManyUploads", err)
	}
}

func TestUploadLimiter_ContextCancelled(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Minute)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestUploadLimiter_Defaults(t *testing.T) {
	limiter := NewUploadLimiter(0, 0)
	if got := limiter.Status().MaxConcurrent; got != DefaultMaxConcurrentUploads {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentUploads)
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewUploadLimiter(3, time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(50 * time.Millisecond)
			limiter.Release()
		}()
	}

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(drainCtx); err != nil {
		t.Fatalf("WaitForDrain: %v", err)
	}
	wg.Wait()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after drain = %d, want 0", got)
	}
}

func TestUploadLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
