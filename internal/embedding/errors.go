package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrProviderTimeout marks an embedding call that exceeded its time budget.
// Retryable by the caller; the core never retries internally.
var ErrProviderTimeout = errors.New("embedding provider timeout")

// ErrProviderFailure marks an embedding call that failed for any other reason.
var ErrProviderFailure = errors.New("embedding provider failure")

// classifyProviderError wraps err with the matching provider error kind so
// callers can distinguish timeouts from other failures with errors.Is.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderFailure, err)
}
