package api

import "time"

type CreateAssignmentRequest struct {
	RecommendationID   string     `json:"recommendation_id"`
	AssignedUserEmail  string     `json:"assigned_user_email"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	GracePeriodEnabled bool       `json:"grace_period_enabled,omitempty"`
}

type Assignment struct {
	AssignmentID        string     `json:"assignment_id"`
	RecommendationID    string     `json:"recommendation_id"`
	AssignedUserEmail   string     `json:"assigned_user_email"`
	AssignedUserName    string     `json:"assigned_user_name,omitempty"`
	AssignedBy          string     `json:"assigned_by"`
	AssignmentDate      time.Time  `json:"assignment_date"`
	DueDate             *time.Time `json:"due_date,omitempty"`
	GracePeriodEnabled  bool       `json:"grace_period_enabled"`
	AssignmentStatus    string     `json:"assignment_status"`
	NotificationSentAt  *time.Time `json:"notification_sent_at,omitempty"`
	NotificationStatus  string     `json:"notification_status,omitempty"`
	CompletionTimestamp *time.Time `json:"completion_timestamp,omitempty"`
}

type AssignmentPage struct {
	Assignments []Assignment `json:"assignments"`
	TotalCount  int          `json:"total_count"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

type Activity struct {
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	ResourceID string    `json:"resource_id"`
}

type Suggestion struct {
	UserEmail        string     `json:"user_email"`
	UserName         string     `json:"user_name"`
	Department       string     `json:"department,omitempty"`
	Role             string     `json:"role,omitempty"`
	Manager          string     `json:"manager,omitempty"`
	ConfidenceScore  int        `json:"confidence_score"`
	RecentActivities []Activity `json:"recent_activities"`
	SuggestionRank   int        `json:"suggestion_rank"`
}

type SuggestionList struct {
	Suggestions []Suggestion `json:"suggestions"`
}
