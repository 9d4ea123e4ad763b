package models

const (
	EventStudentAssigned   = "student.assigned"
	EventStudentReassigned = "student.reassigned"
	EventStudentRemoved    = "student.removed"
	EventMentorRemoved     = "mentor.removed"
)

type AssignmentEvent struct {
	EventID          string `json:"event_id"`
	Type             string `json:"type"`
	StudentID        string `json:"student_id,omitempty"`
	MentorID         string `json:"mentor_id,omitempty"`
	PreviousMentorID string `json:"previous_mentor_id,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}
