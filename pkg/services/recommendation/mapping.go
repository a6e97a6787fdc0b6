package recommendation

import (
	"strings"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/normalize"
	"github.com/de-tools/defender-bridge/pkg/store/securitycenter"
)

// mapAssessment converts a raw provider assessment into the canonical
// domain shape. All provider keys go through the normalizer first so the
// rest of the package never touches PascalCase vocabulary.
func mapAssessment(raw map[string]any, subscription, scope string) domain.Recommendation {
	m, _ := normalize.Keys(raw).(map[string]any)

	rec := domain.Recommendation{
		ID:             normalize.String(m, "id"),
		Title:          normalize.String(m, "properties", "display_name"),
		Description:    normalize.String(m, "properties", "metadata", "description"),
		Remediation:    normalize.String(m, "properties", "metadata", "remediation_description"),
		Status:         domain.AssessmentStatus(normalize.String(m, "properties", "status", "code")),
		SubscriptionID: subscription,
		Scope:          scope,
	}
	if rec.ID == "" {
		rec.ID = normalize.String(m, "name")
	}
	if sev, ok := domain.ParseSeverity(normalize.String(m, "properties", "metadata", "severity")); ok {
		rec.Severity = sev
	}
	if s := securitycenter.SubscriptionFromID(rec.ID); s != "" {
		rec.SubscriptionID = s
	}
	if sc := securitycenter.AssessmentScope(rec.ID); sc != "" {
		rec.Scope = sc
	}

	if details := normalize.Map(m, "properties", "resource_details"); details != nil {
		resourceID := firstNonEmpty(
			normalize.String(details, "id"),
			normalize.String(details, "resource_id"),
		)
		resource := domain.AffectedResource{
			ID:   resourceID,
			Type: normalize.String(details, "resource_type"),
			Name: firstNonEmpty(normalize.String(details, "resource_name"), lastSegment(resourceID)),
		}
		if resource.ID != "" || resource.Name != "" {
			rec.Resources = append(rec.Resources, resource)
			rec.ResourceGroup = securitycenter.ResourceGroupFromID(resource.ID)
		}
	}

	for _, item := range normalize.Slice(m, "properties", "metadata", "categories") {
		if s, ok := item.(string); ok {
			rec.ComplianceStandards = append(rec.ComplianceStandards, s)
		}
	}
	return rec
}

func lastSegment(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
