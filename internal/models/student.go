package models

import (
	"time"
)

type Student struct {
	ID               string    `json:"id" db:"id" bson:"id"`
	Name             string    `json:"name" db:"name" bson:"name"`
	BatchNo          string    `json:"batchNo" db:"batch_no" bson:"batchNo"`
	Course           string    `json:"course" db:"course" bson:"course"`
	CurrentTeacherID *string   `json:"currentTeacherId" db:"current_teacher_id" bson:"currentTeacherId"`
	PrevTeacherID    *string   `json:"prevTeacherId" db:"prev_teacher_id" bson:"prevTeacherId"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// HasMentor reports whether the student is currently assigned.
func (s *Student) HasMentor() bool {
	return s.CurrentTeacherID != nil && *s.CurrentTeacherID != ""
}

// IsAssignedTo reports whether mentorID is the student's current mentor.
func (s *Student) IsAssignedTo(mentorID string) bool {
	return s.HasMentor() && *s.CurrentTeacherID == mentorID
}

func (s *Student) CurrentMentor() string {
	if s.CurrentTeacherID == nil {
		return ""
	}
	return *s.CurrentTeacherID
}

func (s *Student) PreviousMentor() string {
	if s.PrevTeacherID == nil {
		return ""
	}
	return *s.PrevTeacherID
}

// StringPtr returns nil for the empty string, so unassigned references are stored as null.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
