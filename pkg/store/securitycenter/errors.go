package securitycenter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ProviderError is a failed interaction with the upstream provider. A zero
// StatusCode means the call never produced an HTTP response (transport
// failure or timeout).
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string

	retryAfter time.Duration
	hasHint    bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider call failed: %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("provider returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: rate limiting,
// server-side errors, or a transport failure with no response at all.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

func (e *ProviderError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RetryAfter returns the provider's explicit retry-after hint when one was
// present on the response.
func (e *ProviderError) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.hasHint
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.NotFound()
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}
