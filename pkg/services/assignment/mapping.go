package assignment

import (
	"sort"
	"time"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/normalize"
)

// MaxSuggestions caps the ranked candidate list per recommendation.
const MaxSuggestions = 3

// Rank orders suggestions by confidence descending, breaking ties by the
// most recent activity timestamp; a full tie keeps stable input order. The
// result is capped at MaxSuggestions with ranks starting at 1.
func Rank(suggestions []domain.Suggestion) []domain.Suggestion {
	ranked := append([]domain.Suggestion(nil), suggestions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].LatestActivity().After(ranked[j].LatestActivity())
	})
	if len(ranked) > MaxSuggestions {
		ranked = ranked[:MaxSuggestions]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// FromProvider maps a raw governance assignment onto the domain model and
// derives its lifecycle status. recommendationID overrides the value parsed
// from the payload when non-empty.
func FromProvider(raw map[string]any, recommendationID string, grace time.Duration, now time.Time) domain.Assignment {
	m := normalizeMap(raw)

	a := domain.Assignment{
		ID:                 firstNonEmpty(normalize.String(m, "id"), normalize.String(m, "name")),
		RecommendationID:   recommendationID,
		UserEmail:          normalize.String(m, "properties", "owner"),
		UserName:           normalize.String(m, "properties", "additional_data", "owner_display_name"),
		AssignedBy:         normalize.String(m, "properties", "additional_data", "assigned_by"),
		GracePeriodEnabled: normalize.Bool(m, "properties", "is_grace_period_enabled"),
		NotificationStatus: normalize.String(m, "properties", "governance_email_notification", "delivery_status"),
	}
	if a.RecommendationID == "" {
		a.RecommendationID = normalize.String(m, "properties", "assessment_id")
	}
	if t, ok := normalize.Time(m, "properties", "created_at"); ok {
		a.AssignedAt = t
	}
	if t, ok := normalize.Time(m, "properties", "remediation_due_date"); ok {
		a.DueDate = &t
	}
	if t, ok := normalize.Time(m, "properties", "governance_email_notification", "notified_at"); ok {
		a.NotificationSentAt = &t
	}
	if t, ok := normalize.Time(m, "properties", "completed_at"); ok {
		a.CompletedAt = &t
	}

	a.Status = domain.DeriveAssignmentStatus(a.CompletedAt, a.DueDate, a.GracePeriodEnabled, grace, now)
	return a
}

func mapSuggestion(raw map[string]any) domain.Suggestion {
	m := normalizeMap(raw)

	s := domain.Suggestion{
		Email:      firstNonEmpty(normalize.String(m, "user_email"), normalize.String(m, "email")),
		Name:       firstNonEmpty(normalize.String(m, "user_name"), normalize.String(m, "display_name")),
		Department: normalize.String(m, "department"),
		Role:       normalize.String(m, "role"),
		Manager:    normalize.String(m, "manager"),
	}
	if score, ok := normalize.Float(m, "confidence_score"); ok {
		s.Confidence = int(score)
	}
	for _, item := range normalize.Slice(m, "recent_activities") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		activity := domain.Activity{
			Action:     normalize.String(entry, "action"),
			ResourceID: normalize.String(entry, "resource_id"),
		}
		if t, ok := normalize.Time(entry, "timestamp"); ok {
			activity.Timestamp = t
		}
		s.Activities = append(s.Activities, activity)
	}
	return s
}

func providerReportedStatus(raw map[string]any) string {
	return normalize.String(normalizeMap(raw), "properties", "status")
}

func normalizeMap(raw map[string]any) map[string]any {
	m, _ := normalize.Keys(raw).(map[string]any)
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
