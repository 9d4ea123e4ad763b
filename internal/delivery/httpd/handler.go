package httpd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/service"
	"github.com/RubachokBoss/mentor-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	studentService    service.StudentService
	mentorService     service.MentorService
	assignmentService service.AssignmentService
	reportService     service.ReportService
	store             Pinger
	logger            zerolog.Logger
}

func NewHandler(
	studentService service.StudentService,
	mentorService service.MentorService,
	assignmentService service.AssignmentService,
	reportService service.ReportService,
	store Pinger,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		studentService:    studentService,
		mentorService:     mentorService,
		assignmentService: assignmentService,
		reportService:     reportService,
		store:             store,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.Index)
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/students", func(r chi.Router) {
			r.Get("/", h.GetAllStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{studentId}", h.GetStudentByID)
			r.Put("/{studentId}", h.UpdateStudent)
			r.Delete("/{studentId}", h.DeleteStudent)
			r.Patch("/assign-mentor/{studentId}", h.AssignMentor)
			r.Get("/get-previous-mentor/{studentId}", h.GetPreviousMentor)
		})

		api.Route("/mentors", func(r chi.Router) {
			r.Get("/", h.GetAllMentors)
			r.Post("/", h.CreateMentor)
			r.Get("/{mentorId}", h.GetMentorByID)
			r.Get("/{mentorId}/students", h.GetMentorStudents)
			r.Put("/{mentorId}", h.UpdateMentor)
			r.Delete("/{mentorId}", h.DeleteMentor)
			r.Patch("/assign-student/{mentorId}", h.AssignStudents)
		})

		api.Get("/reports/consistency", h.GetConsistencyReport)
	})
}

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []endpoint{
	{http.MethodGet, "/api/v1/students", "List all students"},
	{http.MethodPost, "/api/v1/students", "Create a student"},
	{http.MethodGet, "/api/v1/students/{studentId}", "Get a student"},
	{http.MethodPut, "/api/v1/students/{studentId}", "Edit name, batchNo or course of a student"},
	{http.MethodDelete, "/api/v1/students/{studentId}", "Delete a student"},
	{http.MethodPatch, "/api/v1/students/assign-mentor/{studentId}", "Assign or change the mentor of a student"},
	{http.MethodGet, "/api/v1/students/get-previous-mentor/{studentId}", "Get the previous mentor of a student"},
	{http.MethodGet, "/api/v1/mentors", "List all mentors"},
	{http.MethodPost, "/api/v1/mentors", "Create a mentor"},
	{http.MethodGet, "/api/v1/mentors/{mentorId}", "Get a mentor"},
	{http.MethodGet, "/api/v1/mentors/{mentorId}/students", "List the students of a mentor"},
	{http.MethodPut, "/api/v1/mentors/{mentorId}", "Edit name, course or specialized of a mentor"},
	{http.MethodDelete, "/api/v1/mentors/{mentorId}", "Delete a mentor"},
	{http.MethodPatch, "/api/v1/mentors/assign-student/{mentorId}", "Assign unassigned students to a mentor"},
	{http.MethodGet, "/api/v1/reports/consistency", "Find students and rosters that no longer mirror each other"},
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, endpoints)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "mentor-service",
		"timestamp": time.Now().UTC(),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Health check: store is unreachable")
			response["status"] = "unhealthy"
			response["store"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["store"] = "ok"
	}

	writeJSON(w, http.StatusOK, response)
}

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Step    string `json:"step,omitempty"`
}

type errorResponse struct {
	Success bool        `json:"success"`
	Error   errorBody   `json:"error"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	_ = utils.WriteJSON(w, status, data)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, successResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind service.Kind, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Error: errorBody{
			Kind:    string(kind),
			Message: message,
			Code:    status,
		},
	})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound, service.KindNoPreviousMentor, service.KindEmptyRoster:
		return http.StatusNotFound
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindAlreadyAssigned:
		return http.StatusConflict
	case service.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes err as an error envelope. data, when non-nil, is the
// partial result of an operation that applied some of its writes.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, data interface{}) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Unexpected error")
		writeError(w, http.StatusInternalServerError, "Internal", "Internal server error")
		return
	}

	status := statusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("op", svcErr.Op).
			Str("step", svcErr.Step).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}

	message := svcErr.Message
	if svcErr.Step != "" {
		message = message + " (failed at " + svcErr.Step + ")"
	}

	writeJSON(w, status, errorResponse{
		Success: false,
		Error: errorBody{
			Kind:    string(svcErr.Kind),
			Message: message,
			Code:    status,
			Step:    svcErr.Step,
		},
		Data: data,
	})
}

// decodeBody reads the request body into dst and answers 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.ReadJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, service.KindInvalidInput, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
