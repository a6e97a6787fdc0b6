package domain

import "time"

type Activity struct {
	Action     string
	Timestamp  time.Time
	ResourceID string
}

// Suggestion is a provider-ranked candidate owner for a recommendation,
// derived from observed resource activity. Recomputed on every request.
type Suggestion struct {
	Email      string
	Name       string
	Department string
	Role       string
	Manager    string
	Confidence int
	Activities []Activity
	Rank       int
}

// LatestActivity returns the most recent activity timestamp, or the zero
// time when no activity data exists.
func (s Suggestion) LatestActivity() time.Time {
	var latest time.Time
	for _, a := range s.Activities {
		if a.Timestamp.After(latest) {
			latest = a.Timestamp
		}
	}
	return latest
}
