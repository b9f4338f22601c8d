package tangguh

import (
	"context"
	"errors"
	"net/http"
)

// OutcomeKind is the pipeline's decision about one attempt result.
type OutcomeKind int

const (
	// OutcomeSuccess means the attempt counts as a breaker success and its
	// result is returned to the caller. Responses with status codes outside
	// the retryable set land here even when they are HTTP errors.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailure means the attempt counts as a breaker failure and is
	// eligible for retry: a transport error, an internal timeout, or a
	// response whose status code is in the retryable set.
	OutcomeFailure

	// OutcomeCanceled means the caller canceled the call. It is neither
	// retried nor counted against the circuit breaker.
	OutcomeCanceled
)

// Outcome is the classification of a single attempt.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Err        error

	// Timeout marks failures caused by the per-attempt timeout rather than
	// the transport itself.
	Timeout bool
}

// classifyOutcome applies the single classification rule shared by the retry
// policy and the circuit breaker: a transport error or a retryable status
// code is a failure, everything else is a success. Caller-initiated
// cancellation is distinguished from the internal per-attempt deadline by
// inspecting the two contexts.
func classifyOutcome(resp *http.Response, err error, retryable map[int]struct{}, callerCtx, attemptCtx context.Context) Outcome {
	if err != nil {
		if callerCtx.Err() != nil {
			return Outcome{Kind: OutcomeCanceled, Err: callerCtx.Err()}
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeFailure, Err: err, Timeout: true}
		}
		return Outcome{Kind: OutcomeFailure, Err: err}
	}

	if _, isRetryable := retryable[resp.StatusCode]; isRetryable {
		return Outcome{Kind: OutcomeFailure, StatusCode: resp.StatusCode}
	}

	return Outcome{Kind: OutcomeSuccess, StatusCode: resp.StatusCode}
}

func statusSet(codes []int) map[int]struct{} {
	set := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}
