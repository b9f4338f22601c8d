package backoff

import (
	"testing"
	"time"
)

func TestDelayQuadratic(t *testing.T) {
	base := 500 * time.Millisecond

	expected := []time.Duration{
		500 * time.Millisecond,
		2000 * time.Millisecond,
		4500 * time.Millisecond,
		8000 * time.Millisecond,
	}

	for i, want := range expected {
		attempt := i + 1
		if got := Delay(attempt, base, 2); got != want {
			t.Errorf("Delay(%d, 500ms, 2) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	base := 100 * time.Millisecond

	for attempt := 1; attempt <= 5; attempt++ {
		want := time.Duration(attempt) * base
		if got := Delay(attempt, base, 1); got != want {
			t.Errorf("Delay(%d, 100ms, 1) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDelayConstant(t *testing.T) {
	base := 250 * time.Millisecond

	for attempt := 1; attempt <= 4; attempt++ {
		if got := Delay(attempt, base, 0); got != base {
			t.Errorf("Delay(%d, 250ms, 0) = %v, want %v", attempt, got, base)
		}
	}
}

func TestDelayClampsInputs(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		power   int
		want    time.Duration
	}{
		{"attempt below one treated as one", 0, time.Second, 2, time.Second},
		{"negative attempt treated as one", -3, time.Second, 2, time.Second},
		{"negative power treated as zero", 2, time.Second, -1, time.Second},
		{"negative base treated as zero", 1, -time.Second, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(tt.attempt, tt.base, tt.power); got != tt.want {
				t.Errorf("Delay(%d, %v, %d) = %v, want %v", tt.attempt, tt.base, tt.power, got, tt.want)
			}
		})
	}
}

func TestDelayNeverOverflows(t *testing.T) {
	got := Delay(maxAttempt, time.Hour, maxPower)
	if got < 0 {
		t.Errorf("Delay overflowed to %v", got)
	}
}
