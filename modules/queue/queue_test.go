package queue

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		// 0 이하는 첫 시도로 취급
		{0, 5 * time.Second},
		{-1, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := BackoffDelay(tt.attempt); got != tt.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPlanRetry(t *testing.T) {
	tests := []struct {
		name       string
		attempt    int
		maxRetries int
		wantDelay  time.Duration
		wantQueue  bool
	}{
		{"first retry", 1, 2, 5 * time.Second, true},
		{"last allowed retry", 2, 2, 10 * time.Second, true},
		{"over the limit", 3, 2, 0, false},
		{"no retries allowed", 1, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, requeue := planRetry(tt.attempt, tt.maxRetries)
			if requeue != tt.wantQueue {
				t.Errorf("planRetry(%d, %d) requeue = %v, want %v", tt.attempt, tt.maxRetries, requeue, tt.wantQueue)
			}
			if delay != tt.wantDelay {
				t.Errorf("planRetry(%d, %d) delay = %v, want %v", tt.attempt, tt.maxRetries, delay, tt.wantDelay)
			}
		})
	}
}

func TestBackoffDelayMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 6; attempt++ {
		delay := BackoffDelay(attempt)
		if delay <= prev {
			t.Errorf("delay for attempt %d (%v) is not greater than previous (%v)", attempt, delay, prev)
		}
		prev = delay
	}
}
