package securitycenter

import "strings"

// AssessmentName extracts the trailing resource name from a full ARM
// assessment ID. A bare name passes through unchanged.
func AssessmentName(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// AssessmentScope returns the hierarchical scope an assessment ID is
// attached to: everything before its /providers/Microsoft.Security segment.
func AssessmentScope(id string) string {
	const marker = "/providers/Microsoft.Security/assessments"
	if i := strings.Index(id, marker); i > 0 {
		return id[:i]
	}
	return ""
}

// SubscriptionFromID pulls the subscription GUID out of an ARM ID.
func SubscriptionFromID(id string) string {
	return segmentAfter(id, "subscriptions")
}

// ResourceGroupFromID pulls the resource group name out of an ARM ID, or ""
// when the ID is not resource-group scoped.
func ResourceGroupFromID(id string) string {
	return segmentAfter(id, "resourceGroups")
}

// ScopeWithin reports whether requested is equal to, or a descendant of,
// parent in the ARM scope hierarchy.
func ScopeWithin(requested, parent string) bool {
	req := strings.TrimSuffix(strings.ToLower(requested), "/")
	par := strings.TrimSuffix(strings.ToLower(parent), "/")
	return req == par || strings.HasPrefix(req, par+"/")
}

func segmentAfter(id, segment string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], segment) {
			return parts[i+1]
		}
	}
	return ""
}
