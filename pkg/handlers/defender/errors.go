package defender

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeValidation:             http.StatusBadRequest,
	domain.CodeScopeMismatch:          http.StatusBadRequest,
	domain.CodeCredentialUnavailable:  http.StatusUnauthorized,
	domain.CodePermissionDenied:       http.StatusForbidden,
	domain.CodeRecommendationNotFound: http.StatusNotFound,
	domain.CodeUserNotFound:           http.StatusNotFound,
	domain.CodePlanNotEnabled:         http.StatusPreconditionFailed,
	domain.CodeResponseTooLarge:       http.StatusRequestEntityTooLarge,
	domain.CodeProviderTransient:      http.StatusBadGateway,
	domain.CodeRetriesExhausted:       http.StatusBadGateway,
	domain.CodeCircuitOpen:            http.StatusServiceUnavailable,
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("unexpected error")
		writeJSON(w, r, http.StatusInternalServerError, api.Error{
			ErrorCode: "INTERNAL_SERVER_ERROR",
			Message:   "an unexpected error occurred",
		})
		return
	}

	status, ok := statusByCode[de.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if de.Code == domain.CodeCircuitOpen {
		if secs, ok := de.Details["cooldown_remaining_seconds"].(float64); ok && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(secs))))
		}
	}

	logger.Warn().Str("error_code", string(de.Code)).Msg(de.Message)
	writeJSON(w, r, status, api.Error{
		ErrorCode: string(de.Code),
		Message:   de.Message,
		Details:   de.Details,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
