package api

import "time"

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

type Resource struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
}

type AssignedUser struct {
	UserEmail        string    `json:"user_email"`
	UserName         string    `json:"user_name"`
	AssignmentDate   time.Time `json:"assignment_date"`
	NotificationSent bool      `json:"notification_sent"`
}

type Recommendation struct {
	RecommendationID    string        `json:"recommendation_id"`
	Severity            Severity      `json:"severity"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	AffectedResources   []Resource    `json:"affected_resources"`
	RemediationSteps    string        `json:"remediation_steps"`
	AssessmentStatus    string        `json:"assessment_status"`
	ComplianceStandards []string      `json:"compliance_standards,omitempty"`
	AssignedUser        *AssignedUser `json:"assigned_user,omitempty"`
	DueDate             *time.Time    `json:"due_date,omitempty"`
	GracePeriodEnabled  *bool         `json:"grace_period_enabled,omitempty"`
	SubscriptionID      string        `json:"subscription_id"`
	ResourceGroup       string        `json:"resource_group,omitempty"`
}

type RecommendationPage struct {
	Recommendations []Recommendation `json:"recommendations"`
	TotalCount      int              `json:"total_count"`
	Limit           int              `json:"limit"`
	Offset          int              `json:"offset"`
}
