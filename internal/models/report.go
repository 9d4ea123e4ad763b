package models

import "time"

// Kinds of drift between student references and mentor rosters.
const (
	IssueDanglingRosterEntry = "dangling_roster_entry"
	IssueRosterMismatch      = "roster_mismatch"
	IssueMissingFromRoster   = "missing_from_roster"
	IssueUnknownMentor       = "unknown_current_mentor"
	IssueListedTwice         = "listed_by_multiple_mentors"
	IssuePreviousIsCurrent   = "previous_equals_current"
)

type ConsistencyIssue struct {
	Type      string `json:"type"`
	StudentID string `json:"studentId"`
	MentorID  string `json:"mentorId,omitempty"`
	Detail    string `json:"detail"`
}

type ConsistencyReport struct {
	Students    int                `json:"students"`
	Mentors     int                `json:"mentors"`
	Consistent  bool               `json:"consistent"`
	Issues      []ConsistencyIssue `json:"issues"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
