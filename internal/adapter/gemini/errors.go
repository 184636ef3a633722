package gemini

import (
	"context"
	"errors"
	"net"

	"google.golang.org/api/googleapi"
)

// Transient reports whether a provider error is worth retrying. Rate limits,
// server faults and network timeouts are transient; a 4xx rejection of the
// input itself is permanent and must not be retried.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return true
		case apiErr.Code >= 500:
			return true
		default:
			return false
		}
	}

	// Unclassified errors default to transient so a provider hiccup with an
	// unusual shape does not park work permanently.
	return true
}
