package adapters

import (
	"time"

	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

func MapExemptionDomainToApi(e domain.Exemption, now time.Time) api.Exemption {
	return api.Exemption{
		ExemptionID:      e.ID,
		RecommendationID: e.RecommendationID,
		Justification:    e.Justification,
		CreatedBy:        e.CreatedBy,
		Scope:            e.Scope,
		Category:         e.Category,
		ExpirationDate:   e.ExpiresAt,
		CreatedAt:        e.CreatedAt,
		Status:           string(e.Status(now)),
	}
}
