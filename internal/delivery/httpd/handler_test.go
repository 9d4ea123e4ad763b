package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RubachokBoss/mentor-service/internal/lock"
	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/RubachokBoss/mentor-service/internal/repository"
	"github.com/RubachokBoss/mentor-service/internal/service"
	"github.com/RubachokBoss/mentor-service/pkg/idgen"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

// unreachableStudents fails every student read.
type unreachableStudents struct {
	repository.StudentRepository
}

func (unreachableStudents) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, errors.New("connection refused")
}

func (unreachableStudents) GetAll(ctx context.Context) ([]models.Student, error) {
	return nil, errors.New("connection refused")
}

func newTestRouter(t *testing.T, pinger Pinger) http.Handler {
	t.Helper()
	return newTestRouterWithStore(t, pinger, repository.NewMemoryStore())
}

func newTestRouterWithStore(t *testing.T, pinger Pinger, store *repository.Store) http.Handler {
	t.Helper()

	newID := idgen.Sequence(1)
	log := zerolog.Nop()

	opts := service.DefaultAssignmentOptions()
	opts.RetryDelay = 0

	handler := NewHandler(
		service.NewStudentService(store.Students, newID, 3, log),
		service.NewMentorService(store.Mentors, store.Students, newID, 3, log),
		service.NewAssignmentService(store.Students, store.Mentors, lock.NewLocal(), nil, nil, opts, log),
		service.NewReportService(store.Students, store.Mentors, log),
		pinger,
		log,
	)

	router := chi.NewRouter()
	router.Use(Recovery(log))
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestStudentMentorFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/students", `{"name":"Asha","batchNo":"B7","course":"Go"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var student models.Student
	require.NoError(t, json.Unmarshal(env.Data, &student))
	assert.Equal(t, "0000000001", student.ID)

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"Ravi","course":"Go","specialized":"Backend"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var mentor models.Mentor
	require.NoError(t, json.Unmarshal(env.Data, &mentor))
	assert.Equal(t, "0000000002", mentor.ID)

	rec, env = doRequest(t, router, http.MethodPatch, "/api/v1/students/assign-mentor/0000000001", `{"mentorId":"0000000002"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.AssignmentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.StatusAssigned, result.Status)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/mentors/0000000002/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []*models.Student
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	require.Len(t, roster, 1)
	assert.Equal(t, "0000000001", roster[0].ID)

	rec, env = doRequest(t, router, http.MethodPatch, "/api/v1/students/assign-mentor/0000000001", `{"mentorId":"0000000002"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(service.KindAlreadyAssigned), env.Error.Kind)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/students/get-previous-mentor/0000000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(service.KindNoPreviousMentor), env.Error.Kind)
}

func TestErrorStatusMapping(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   service.Kind
	}{
		{"unknown student", http.MethodGet, "/api/v1/students/ghost", "", http.StatusNotFound, service.KindNotFound},
		{"unknown mentor", http.MethodGet, "/api/v1/mentors/ghost", "", http.StatusNotFound, service.KindNotFound},
		{"missing fields", http.MethodPost, "/api/v1/students", `{"name":"Asha"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"relationship field rejected", http.MethodPost, "/api/v1/students", `{"name":"A","batchNo":"B","course":"C","currentTeacherId":"x"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"malformed json", http.MethodPost, "/api/v1/mentors", `{`, http.StatusBadRequest, service.KindInvalidInput},
		{"missing mentor id", http.MethodPatch, "/api/v1/students/assign-mentor/ghost", `{}`, http.StatusBadRequest, service.KindInvalidInput},
		{"empty batch", http.MethodPatch, "/api/v1/mentors/assign-student/ghost", `{"studentIds":[]}`, http.StatusBadRequest, service.KindInvalidInput},
		{"batch not an array", http.MethodPatch, "/api/v1/mentors/assign-student/ghost", `{"studentIds":"s1"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"empty update", http.MethodPut, "/api/v1/mentors/ghost", `{}`, http.StatusBadRequest, service.KindInvalidInput},
		{"delete unknown", http.MethodDelete, "/api/v1/students/ghost", "", http.StatusNotFound, service.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tt.kind), env.Error.Kind)
			assert.Equal(t, tt.status, env.Error.Code)
		})
	}
}

func TestAssignStudentsBatchEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	doRequest(t, router, http.MethodPost, "/api/v1/students", `{"name":"A","batchNo":"B","course":"C"}`)
	doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"M","course":"C","specialized":"S"}`)

	rec, env := doRequest(t, router, http.MethodPatch, "/api/v1/mentors/assign-student/0000000002", `{"studentIds":["0000000001","ghost"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.BatchAssignmentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []string{"0000000001"}, result.Successes)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "ghost", result.Failures[0].StudentID)
}

func TestEmptyRosterEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"M","course":"C","specialized":"S"}`)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/mentors/0000000001/students", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(service.KindEmptyRoster), env.Error.Kind)
}

func TestHealthCheck(t *testing.T) {
	rec, _ := doRequest(t, newTestRouter(t, stubPinger{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, newTestRouter(t, stubPinger{err: errors.New("down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexListsEndpoints(t *testing.T) {
	rec, env := doRequest(t, newTestRouter(t, nil), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []endpoint
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, len(endpoints))
}

func TestRecoveryWritesErrorEnvelope(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec, env := doRequest(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Internal", env.Error.Kind)
}

func TestConsistencyReportEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	doRequest(t, router, http.MethodPost, "/api/v1/students", `{"name":"A","batchNo":"B","course":"C"}`)
	doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"M","course":"C","specialized":"S"}`)
	doRequest(t, router, http.MethodPatch, "/api/v1/students/assign-mentor/0000000001", `{"mentorId":"0000000002"}`)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/reports/consistency", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.ConsistencyReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Students)
	assert.Equal(t, 1, report.Mentors)

	// Deleting the student without cascade leaves its id on the roster.
	doRequest(t, router, http.MethodDelete, "/api/v1/students/0000000001", "")

	_, env = doRequest(t, router, http.MethodGet, "/api/v1/reports/consistency", "")
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.False(t, report.Consistent)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, models.IssueDanglingRosterEntry, report.Issues[0].Type)
}

func TestStoreFailureIsServiceUnavailable(t *testing.T) {
	store := repository.NewMemoryStore()
	store.Students = unreachableStudents{StudentRepository: store.Students}
	router := newTestRouterWithStore(t, nil, store)

	doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"M","course":"C","specialized":"S"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"list students", http.MethodGet, "/api/v1/students", ""},
		{"get student", http.MethodGet, "/api/v1/students/0000000009", ""},
		{"assign mentor", http.MethodPatch, "/api/v1/students/assign-mentor/0000000009", `{"mentorId":"0000000001"}`},
		{"previous mentor", http.MethodGet, "/api/v1/students/get-previous-mentor/0000000009", ""},
		{"consistency report", http.MethodGet, "/api/v1/reports/consistency", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(service.KindStoreUnavailable), env.Error.Kind)
			assert.Equal(t, http.StatusServiceUnavailable, env.Error.Code)
		})
	}
}

func TestAssignStudentsBatchEndpoint_PerItemKinds(t *testing.T) {
	router := newTestRouter(t, nil)
	doRequest(t, router, http.MethodPost, "/api/v1/mentors", `{"name":"M","course":"C","specialized":"S"}`)

	rec, env := doRequest(t, router, http.MethodPatch, "/api/v1/mentors/assign-student/0000000001", `{"studentIds":["","ghost"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.BatchAssignmentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Failures, 2)
	assert.Equal(t, string(service.KindInvalidInput), result.Failures[0].Kind)
	assert.Equal(t, string(service.KindNotFound), result.Failures[1].Kind)
	assert.Empty(t, result.Failures[1].Consistency)
}
