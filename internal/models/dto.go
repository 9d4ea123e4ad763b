package models

// Data Transfer Objects

type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	BatchNo string `json:"batchNo" validate:"required,notblank"`
	Course  string `json:"course" validate:"required,notblank"`
}

// UpdateStudentRequest lists the only student fields editable outside the assignment engine.
type UpdateStudentRequest struct {
	Name    *string `json:"name,omitempty"`
	BatchNo *string `json:"batchNo,omitempty"`
	Course  *string `json:"course,omitempty"`
}

func (r *UpdateStudentRequest) IsEmpty() bool {
	return r.Name == nil && r.BatchNo == nil && r.Course == nil
}

type CreateMentorRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Course      string `json:"course" validate:"required,notblank"`
	Specialized string `json:"specialized" validate:"required,notblank"`
}

// UpdateMentorRequest lists the only mentor fields editable outside the assignment engine.
type UpdateMentorRequest struct {
	Name        *string `json:"name,omitempty"`
	Course      *string `json:"course,omitempty"`
	Specialized *string `json:"specialized,omitempty"`
}

func (r *UpdateMentorRequest) IsEmpty() bool {
	return r.Name == nil && r.Course == nil && r.Specialized == nil
}

type AssignMentorRequest struct {
	MentorID string `json:"mentorId" validate:"required,notblank"`
}

type AssignStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1"`
}

type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "Assigned"
	StatusReassigned AssignmentStatus = "Reassigned"
)

type Consistency string

const (
	FullySucceeded   Consistency = "fully_succeeded"
	PartiallyApplied Consistency = "partially_applied"
)

// Steps of a two-record assignment, in the order they are issued.
const (
	StepUpdateStudent   = "update_student"
	StepAddToRoster     = "add_to_roster"
	StepRemoveFromOld   = "remove_from_previous_roster"
	StepClearStudentRef = "clear_student_reference"
)

type AssignmentResult struct {
	Status      AssignmentStatus `json:"status"`
	StudentID   string           `json:"studentId"`
	From        string           `json:"from,omitempty"`
	To          string           `json:"to"`
	Consistency Consistency      `json:"consistency"`
	FailedStep  string           `json:"failedStep,omitempty"`
}

// BatchFailure carries Consistency and FailedStep only when the student record was
// already written but its roster entry was not.
type BatchFailure struct {
	StudentID   string      `json:"studentId"`
	Kind        string      `json:"kind"`
	Message     string      `json:"message"`
	Consistency Consistency `json:"consistency,omitempty"`
	FailedStep  string      `json:"failedStep,omitempty"`
}

type BatchAssignmentResult struct {
	MentorID  string         `json:"mentorId"`
	Successes []string       `json:"successAssignments"`
	Failures  []BatchFailure `json:"failedAssignments"`
}

type DeleteResult struct {
	ID       string `json:"id"`
	Cascaded int    `json:"cascaded"`
}
