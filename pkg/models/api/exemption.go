package api

import "time"

type CreateExemptionRequest struct {
	RecommendationID string    `json:"recommendation_id"`
	Justification    string    `json:"justification"`
	ExpirationDate   time.Time `json:"expiration_date"`
	Scope            string    `json:"scope,omitempty"`
	Category         string    `json:"category,omitempty"`
}

type Exemption struct {
	ExemptionID      string    `json:"exemption_id"`
	RecommendationID string    `json:"recommendation_id"`
	Justification    string    `json:"justification"`
	CreatedBy        string    `json:"created_by"`
	Scope            string    `json:"scope"`
	Category         string    `json:"category,omitempty"`
	ExpirationDate   time.Time `json:"expiration_date"`
	CreatedAt        time.Time `json:"created_at"`
	Status           string    `json:"status"`
}
