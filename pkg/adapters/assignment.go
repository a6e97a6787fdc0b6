package adapters

import (
	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
)

func MapAssignmentDomainToApi(a domain.Assignment) api.Assignment {
	return api.Assignment{
		AssignmentID:        a.ID,
		RecommendationID:    a.RecommendationID,
		AssignedUserEmail:   a.UserEmail,
		AssignedUserName:    a.UserName,
		AssignedBy:          a.AssignedBy,
		AssignmentDate:      a.AssignedAt,
		DueDate:             a.DueDate,
		GracePeriodEnabled:  a.GracePeriodEnabled,
		AssignmentStatus:    string(a.Status),
		NotificationSentAt:  a.NotificationSentAt,
		NotificationStatus:  a.NotificationStatus,
		CompletionTimestamp: a.CompletedAt,
	}
}

func MapAssignmentPageDomainToApi(items []domain.Assignment, total, limit, offset int) api.AssignmentPage {
	page := api.AssignmentPage{
		Assignments: make([]api.Assignment, 0, len(items)),
		TotalCount:  total,
		Limit:       limit,
		Offset:      offset,
	}
	for _, a := range items {
		page.Assignments = append(page.Assignments, MapAssignmentDomainToApi(a))
	}
	return page
}

func MapSuggestionDomainToApi(s domain.Suggestion) api.Suggestion {
	res := api.Suggestion{
		UserEmail:        s.Email,
		UserName:         s.Name,
		Department:       s.Department,
		Role:             s.Role,
		Manager:          s.Manager,
		ConfidenceScore:  s.Confidence,
		RecentActivities: make([]api.Activity, 0, len(s.Activities)),
		SuggestionRank:   s.Rank,
	}
	for _, a := range s.Activities {
		res.RecentActivities = append(res.RecentActivities, api.Activity{
			Action:     a.Action,
			Timestamp:  a.Timestamp,
			ResourceID: a.ResourceID,
		})
	}
	return res
}

func MapSuggestionListDomainToApi(items []domain.Suggestion) api.SuggestionList {
	list := api.SuggestionList{Suggestions: make([]api.Suggestion, 0, len(items))}
	for _, s := range items {
		list.Suggestions = append(list.Suggestions, MapSuggestionDomainToApi(s))
	}
	return list
}
