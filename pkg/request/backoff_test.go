package request

import (
	"context"
	"testing"
	"time"
)

func TestProviderBackoff(t *testing.T) {
	b := NewProviderBackoff(10*time.Millisecond, 100*time.Millisecond)

	// Unknown provider: no wait
	start := time.Now()
	if err := b.Wait(context.Background(), "wikipedia"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Errorf("Wait() on clean provider took %v, want ~0", elapsed)
	}

	// One failure: next request delayed
	b.RecordFailure("wikipedia")
	count, next := b.GetState("wikipedia")
	if count != 1 {
		t.Errorf("failureCount = %d, want 1", count)
	}
	if !next.After(time.Now()) {
		t.Error("nextAllowed should be in the future")
	}

	// Success recovery clears the backoff
	b.RecordSuccess("wikipedia")
	count, next = b.GetState("wikipedia")
	if count != 0 {
		t.Errorf("failureCount after recovery = %d, want 0", count)
	}
	if !next.IsZero() {
		t.Errorf("nextAllowed after recovery = %v, want zero", next)
	}
}

func TestProviderBackoffGrowsAndCaps(t *testing.T) {
	b := NewProviderBackoff(10*time.Millisecond, 40*time.Millisecond)

	var prev time.Duration
	for i := 0; i < 5; i++ {
		b.RecordFailure("overpass")
		_, next := b.GetState("overpass")
		delay := time.Until(next)
		if i > 0 && delay < prev {
			// Growth is monotonic until the cap (jitter is +10% max)
			if delay < 40*time.Millisecond {
				t.Errorf("delay shrank before cap: %v < %v", delay, prev)
			}
		}
		prev = delay
	}

	// Capped at maxDelay + 10% jitter
	_, next := b.GetState("overpass")
	if d := time.Until(next); d > 50*time.Millisecond {
		t.Errorf("delay %v exceeds cap with jitter", d)
	}
}

func TestProviderBackoffWaitCancelled(t *testing.T) {
	b := NewProviderBackoff(5*time.Second, 10*time.Second)
	b.RecordFailure("overpass")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Wait(ctx, "overpass")
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() did not return promptly on cancel: %v", elapsed)
	}
}
