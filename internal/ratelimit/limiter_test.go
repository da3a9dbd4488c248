package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_Unlimited(t *testing.T) {
	for _, rps := range []float64{0, -1} {
		l := New(rps)
		if !l.Unlimited() {
			t.Errorf("New(%v).Unlimited() = false, want true", rps)
		}
		for i := 0; i < 100; i++ {
			if !l.Allow() {
				t.Fatalf("New(%v).Allow() = false on call %d", rps, i)
			}
		}
	}
}

func TestLimiter_Paces(t *testing.T) {
	l := New(1)
	if l.Unlimited() {
		t.Fatal("New(1).Unlimited() = true, want false")
	}
	if !l.Allow() {
		t.Fatal("first Allow() = false, want true")
	}
	if l.Allow() {
		t.Error("second Allow() = true, want false within the same second")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(0.1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() expected error for a deadline shorter than the next slot, got nil")
	}
}

func TestLimiter_Nil(t *testing.T) {
	var l *Limiter
	if !l.Unlimited() || !l.Allow() {
		t.Error("nil Limiter should never limit")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil Limiter Wait() = %v, want nil", err)
	}
}
