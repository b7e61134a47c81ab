package router

import (
	"context"
	"errors"

	"github.com/Veraticus/naina/internal/provider"
)

// failureKind labels why generation fell back to a static reply.
type failureKind string

const (
	failureUnknown     failureKind = "unknown"
	failureCanceled    failureKind = "canceled"
	failureTimeout     failureKind = "timeout"
	failureUnavailable failureKind = "unavailable"
	failureCall        failureKind = "call_failed"
	failureEmpty       failureKind = "empty_response"
)

// classifyFailure maps a gateway error to a log label. Timeouts win over
// the other causes since they usually explain them.
func classifyFailure(err error) failureKind {
	switch {
	case err == nil:
		return failureUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return failureTimeout
	case errors.Is(err, context.Canceled):
		return failureCanceled
	case provider.IsCallError(err):
		return failureCall
	case errors.Is(err, provider.ErrEmptyResponse):
		return failureEmpty
	case errors.Is(err, provider.ErrProviderUnavailable):
		return failureUnavailable
	default:
		return failureUnknown
	}
}
