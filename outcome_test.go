package tangguh

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestClassifyOutcomeStatusCodes(t *testing.T) {
	retryable := statusSet([]int{503, 429})
	callerCtx := context.Background()
	attemptCtx := context.Background()

	tests := []struct {
		name   string
		status int
		want   OutcomeKind
	}{
		{"200 is success", 200, OutcomeSuccess},
		{"404 outside the set is success", 404, OutcomeSuccess},
		{"500 outside the set is success", 500, OutcomeSuccess},
		{"503 in the set is failure", 503, OutcomeFailure},
		{"429 in the set is failure", 429, OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status}
			got := classifyOutcome(resp, nil, retryable, callerCtx, attemptCtx)
			if got.Kind != tt.want {
				t.Errorf("classifyOutcome(status %d).Kind = %v, want %v", tt.status, got.Kind, tt.want)
			}
			if got.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyOutcomeTransportError(t *testing.T) {
	got := classifyOutcome(nil, errors.New("connection refused"), statusSet(nil), context.Background(), context.Background())

	if got.Kind != OutcomeFailure {
		t.Errorf("Kind = %v, want failure", got.Kind)
	}
	if got.Timeout {
		t.Error("transport error misclassified as timeout")
	}
}

func TestClassifyOutcomeInternalTimeout(t *testing.T) {
	callerCtx := context.Background()
	attemptCtx, cancel := context.WithTimeout(callerCtx, time.Nanosecond)
	defer cancel()
	<-attemptCtx.Done()

	got := classifyOutcome(nil, attemptCtx.Err(), statusSet(nil), callerCtx, attemptCtx)

	if got.Kind != OutcomeFailure {
		t.Errorf("Kind = %v, want failure (internal timeout is retryable)", got.Kind)
	}
	if !got.Timeout {
		t.Error("internal deadline not flagged as timeout")
	}
}

func TestClassifyOutcomeCallerCancellation(t *testing.T) {
	callerCtx, cancel := context.WithCancel(context.Background())
	attemptCtx, attemptCancel := context.WithTimeout(callerCtx, time.Minute)
	defer attemptCancel()
	cancel()

	got := classifyOutcome(nil, callerCtx.Err(), statusSet(nil), callerCtx, attemptCtx)

	if got.Kind != OutcomeCanceled {
		t.Errorf("Kind = %v, want canceled (caller cancellation must not be retryable)", got.Kind)
	}
}

func TestClassifyOutcomeCallerDeadlineBeatsAttemptDeadline(t *testing.T) {
	// When the caller's own deadline fires the error must propagate as a
	// cancellation even though the attempt context expired with it.
	callerCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	attemptCtx, attemptCancel := context.WithTimeout(callerCtx, time.Minute)
	defer attemptCancel()
	<-callerCtx.Done()

	got := classifyOutcome(nil, callerCtx.Err(), statusSet(nil), callerCtx, attemptCtx)

	if got.Kind != OutcomeCanceled {
		t.Errorf("Kind = %v, want canceled", got.Kind)
	}
}
