package httpd

import (
	"net/http"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAllMentors(w http.ResponseWriter, r *http.Request) {
	mentors, err := h.mentorService.ListMentors(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, mentors)
}

func (h *Handler) CreateMentor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMentorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mentor, err := h.mentorService.CreateMentor(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeCreated(w, mentor)
}

func (h *Handler) GetMentorByID(w http.ResponseWriter, r *http.Request) {
	mentor, err := h.mentorService.GetMentor(r.Context(), chi.URLParam(r, "mentorId"))
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, mentor)
}

// GetMentorStudents answers with the resolved roster. Ids that no longer resolve are null.
func (h *Handler) GetMentorStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.mentorService.GetMentorRoster(r.Context(), chi.URLParam(r, "mentorId"))
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, students)
}

func (h *Handler) UpdateMentor(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMentorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mentor, err := h.mentorService.UpdateMentor(r.Context(), chi.URLParam(r, "mentorId"), &req)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, mentor)
}

func (h *Handler) DeleteMentor(w http.ResponseWriter, r *http.Request) {
	result, err := h.assignmentService.RemoveMentor(r.Context(), chi.URLParam(r, "mentorId"))
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

func (h *Handler) AssignStudents(w http.ResponseWriter, r *http.Request) {
	var req models.AssignStudentsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.assignmentService.AssignStudentsBatch(r.Context(), chi.URLParam(r, "mentorId"), req.StudentIDs)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, result)
}
