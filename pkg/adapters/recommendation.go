package adapters

import (
	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

func MapSeverityDomainToApi(s domain.Severity) api.Severity {
	switch s {
	case domain.SeverityCritical:
		return api.SeverityCritical
	case domain.SeverityHigh:
		return api.SeverityHigh
	case domain.SeverityMedium:
		return api.SeverityMedium
	default:
		return api.SeverityLow
	}
}

func MapAssignedUserDomainToApi(u domain.AssignedUser) api.AssignedUser {
	return api.AssignedUser{
		UserEmail:        u.Email,
		UserName:         u.Name,
		AssignmentDate:   u.AssignmentDate,
		NotificationSent: u.NotificationSent,
	}
}

func MapRecommendationDomainToApi(r domain.Recommendation) api.Recommendation {
	res := api.Recommendation{
		RecommendationID:    r.ID,
		Severity:            MapSeverityDomainToApi(r.Severity),
		Title:               r.Title,
		Description:         r.Description,
		AffectedResources:   make([]api.Resource, 0, len(r.Resources)),
		RemediationSteps:    r.Remediation,
		AssessmentStatus:    string(r.Status),
		ComplianceStandards: r.ComplianceStandards,
		DueDate:             r.DueDate,
		GracePeriodEnabled:  r.GracePeriodEnabled,
		SubscriptionID:      r.SubscriptionID,
		ResourceGroup:       r.ResourceGroup,
	}
	for _, ar := range r.Resources {
		res.AffectedResources = append(res.AffectedResources, api.Resource{
			ResourceID:   ar.ID,
			ResourceType: ar.Type,
			ResourceName: ar.Name,
		})
	}
	if r.AssignedUser != nil {
		u := MapAssignedUserDomainToApi(*r.AssignedUser)
		res.AssignedUser = &u
	}
	return res
}

func MapRecommendationPageDomainToApi(items []domain.Recommendation, total, limit, offset int) api.RecommendationPage {
	page := api.RecommendationPage{
		Recommendations: make([]api.Recommendation, 0, len(items)),
		TotalCount:      total,
		Limit:           limit,
		Offset:          offset,
	}
	for _, r := range items {
		page.Recommendations = append(page.Recommendations, MapRecommendationDomainToApi(r))
	}
	return page
}
