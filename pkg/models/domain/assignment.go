package domain

import "time"

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentOverdue   AssignmentStatus = "overdue"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Assignment links a recommendation to the user responsible for remediating
// it. Status is always derived at read time, never stored.
type Assignment struct {
	ID                 string
	RecommendationID   string
	UserEmail          string
	UserName           string
	AssignedBy         string
	AssignedAt         time.Time
	DueDate            *time.Time
	GracePeriodEnabled bool
	NotificationSentAt *time.Time
	NotificationStatus string
	CompletedAt        *time.Time
	Status             AssignmentStatus
}

// DeriveAssignmentStatus computes the lifecycle status of an assignment as a
// pure function of its timestamps and the clock. Completion always wins over
// an elapsed due date. When the grace period is enabled the overdue threshold
// is pushed out by the configured grace duration.
func DeriveAssignmentStatus(
	completedAt *time.Time,
	dueDate *time.Time,
	graceEnabled bool,
	grace time.Duration,
	now time.Time,
) AssignmentStatus {
	if completedAt != nil {
		return AssignmentCompleted
	}
	if dueDate != nil {
		threshold := *dueDate
		if graceEnabled {
			threshold = threshold.Add(grace)
		}
		if now.After(threshold) {
			return AssignmentOverdue
		}
	}
	return AssignmentActive
}

// ValidAssignmentTransition reports whether moving between two observed
// statuses is a legal lifecycle transition. Anything else is a
// data-consistency anomaly the caller must surface rather than coerce.
func ValidAssignmentTransition(from, to AssignmentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case AssignmentActive:
		return to == AssignmentCompleted || to == AssignmentOverdue
	case AssignmentOverdue:
		return to == AssignmentCompleted
	case AssignmentCompleted:
		// Recommendation regressed to unhealthy; the assignment reopens.
		return to == AssignmentActive
	}
	return false
}
