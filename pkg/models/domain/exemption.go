package domain

import "time"

type ExemptionStatus string

const (
	ExemptionActive  ExemptionStatus = "active"
	ExemptionExpired ExemptionStatus = "expired"
)

// Exemption is a recorded decision to exclude a recommendation from active
// findings until an expiration date. The provider never signals expiry;
// it is a computed read-time fact.
type Exemption struct {
	ID               string
	RecommendationID string
	Justification    string
	CreatedBy        string
	Scope            string
	Category         string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

func (e Exemption) Status(now time.Time) ExemptionStatus {
	if now.After(e.ExpiresAt) {
		return ExemptionExpired
	}
	return ExemptionActive
}
