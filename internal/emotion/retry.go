package emotion

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants

const defaultMaxRetries = 2 // 3 total attempts

// #endregion

// #region should-retry

// shouldRetry reports whether a failed Analyze attempt may be repeated.
// attempts counts the calls made so far, including the one that failed.
// Only transient service states are retried; a deadline or cancellation of
// the caller's context never is.
func shouldRetry(ctx context.Context, err error, attempts, maxRetries int) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if attempts > maxRetries {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// #endregion
