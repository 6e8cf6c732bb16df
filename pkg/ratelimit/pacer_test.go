package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewPacer_Limit(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		expected rate.Limit
	}{
		{"positive rate", 2, rate.Limit(2)},
		{"zero disables pacing", 0, rate.Inf},
		{"negative disables pacing", -1, rate.Inf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPacer(tt.rps).Limit(); got != tt.expected {
				t.Errorf("Limit() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPacer_WaitSpacesRequests(t *testing.T) {
	pacer := NewPacer(20) // one slot every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("three requests at 20 rps took %v, want >= ~100ms", elapsed)
	}
}

func TestPacer_WaitUnlimited(t *testing.T) {
	pacer := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unlimited pacer took %v", elapsed)
	}
}

func TestPacer_WaitCancelled(t *testing.T) {
	pacer := NewPacer(0.01)
	ctx, cancel := context.WithCancel(context.Background())

	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first Wait should use the burst token: %v", err)
	}

	cancel()
	err := pacer.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
