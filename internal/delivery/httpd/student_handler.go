package httpd

import (
	"net/http"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAllStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentService.ListStudents(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, students)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	student, err := h.studentService.CreateStudent(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeCreated(w, student)
}

func (h *Handler) GetStudentByID(w http.ResponseWriter, r *http.Request) {
	student, err := h.studentService.GetStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	student, err := h.studentService.UpdateStudent(r.Context(), chi.URLParam(r, "studentId"), &req)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	result, err := h.assignmentService.RemoveStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		if result != nil {
			h.handleServiceError(w, r, err, result)
			return
		}
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) AssignMentor(w http.ResponseWriter, r *http.Request) {
	var req models.AssignMentorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.assignmentService.AssignStudentToMentor(r.Context(), chi.URLParam(r, "studentId"), req.MentorID)
	if err != nil {
		if result != nil {
			h.handleServiceError(w, r, err, result)
			return
		}
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) GetPreviousMentor(w http.ResponseWriter, r *http.Request) {
	mentor, err := h.assignmentService.ComputePreviousMentor(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, mentor)
}
