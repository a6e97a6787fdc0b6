// Package normalize is the translation boundary between the provider's
// PascalCase vocabulary and the canonical lower_snake contract exposed to
// callers. It also enforces the serialized response-size ceiling.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

// MaxResponseBytes is the hard ceiling on any serialized response payload.
const MaxResponseBytes = 1 << 20 // 1 MiB

var (
	boundaryRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	acronymRe  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToSnakeCase converts a PascalCase or camelCase identifier to snake_case.
// Runs of uppercase letters collapse into a single word, so "HTTPResponse"
// becomes "http_response".
func ToSnakeCase(s string) string {
	s = boundaryRe.ReplaceAllString(s, "${1}_${2}")
	s = acronymRe.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// Keys recursively rewrites every map key to snake_case, descending through
// nested maps and arrays. Non-container values pass through untouched.
func Keys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[ToSnakeCase(k)] = Keys(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Keys(inner)
		}
		return out
	default:
		return v
	}
}

// Size returns the serialized size of v in bytes.
func Size(v any) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// CheckSize fails with ResponseTooLarge when the serialized form of v
// exceeds the ceiling. Data is never silently truncated; the caller is
// expected to request a smaller page instead.
func CheckSize(v any) error {
	size, err := Size(v)
	if err != nil {
		return err
	}
	if size <= MaxResponseBytes {
		return nil
	}
	return domain.NewError(domain.CodeResponseTooLarge,
		"response size %d bytes exceeds limit of %d bytes; request a smaller page", size, MaxResponseBytes).
		WithDetail("actual_size_bytes", size).
		WithDetail("max_size_bytes", MaxResponseBytes)
}
