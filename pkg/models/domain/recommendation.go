package domain

import "time"

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// ParseSeverity maps the provider's severity labels onto the ordered enum.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "Critical":
		return SeverityCritical, true
	case "High":
		return SeverityHigh, true
	case "Medium":
		return SeverityMedium, true
	case "Low":
		return SeverityLow, true
	}
	return SeverityLow, false
}

type AssessmentStatus string

const (
	AssessmentHealthy       AssessmentStatus = "Healthy"
	AssessmentUnhealthy     AssessmentStatus = "Unhealthy"
	AssessmentNotApplicable AssessmentStatus = "NotApplicable"
)

type AffectedResource struct {
	ID   string
	Type string
	Name string
}

// AssignedUser is the assignment summary embedded into a recommendation
// when an active assignment exists.
type AssignedUser struct {
	Email            string
	Name             string
	AssignmentDate   time.Time
	NotificationSent bool
}

// Recommendation is a security finding owned by the upstream provider.
// Instances are request-scoped; nothing here is persisted.
type Recommendation struct {
	ID                  string
	Severity            Severity
	Title               string
	Description         string
	Resources           []AffectedResource
	Remediation         string
	Status              AssessmentStatus
	ComplianceStandards []string
	AssignedUser        *AssignedUser
	DueDate             *time.Time
	GracePeriodEnabled  *bool
	SubscriptionID      string
	ResourceGroup       string
	Scope               string
}
