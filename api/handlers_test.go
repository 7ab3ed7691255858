package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceid/attendance-engine/api"
	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/attendance/store"
	"github.com/faceid/attendance-engine/config"
	"github.com/faceid/attendance-engine/gallery"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testEnv struct {
	router http.Handler
	clock  *time.Time
	cfg    *config.Config
}

// newTestEnv wires a full API over the in-memory store with a pinned
// clock, starting at 09:05 on 2025-03-10.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2025, time.March, 10, 9, 5, 0, 0, time.UTC)
	env := &testEnv{clock: &now}

	env.cfg = &config.Config{
		WorkStart:      attendance.MustClockTime(9, 0, 0),
		WorkEnd:        attendance.MustClockTime(17, 0, 0),
		LateThreshold:  10 * time.Minute,
		RecordsDir:     t.TempDir(),
		Location:       time.UTC,
		LedgerBackend:  config.BackendMemory,
		MatchThreshold: 0.4,
	}

	ledger := store.NewMemory()
	machine := attendance.NewMachine(ledger, env.cfg.Rules(), func() time.Time { return *env.clock })

	roster, err := gallery.LoadRoster(filepath.Join(t.TempDir(), "roster.json"))
	require.NoError(t, err)
	index, err := gallery.NewIndexFromRoster(roster, env.cfg.MatchThreshold)
	require.NoError(t, err)

	h := api.NewHandler(machine, ledger, roster, index, env.cfg)
	env.router = api.NewRouter(h)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

func TestAPI_CheckIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/attendance/check-in",
		api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"})

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.CheckInDTO](t, rec)
	assert.Equal(t, "emp-1", dto.EmployeeID)
	assert.Equal(t, "2025-03-10", dto.Date)
	assert.Equal(t, "09:05:00", dto.Time)
	assert.Equal(t, "GracePeriod", dto.Status)
	assert.Equal(t, "Within 10 minute grace period", dto.Comments)
}

func TestAPI_CheckIn_Duplicate_Conflict(t *testing.T) {
	env := newTestEnv(t)
	body := api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/attendance/check-in", body).Code)

	rec := env.do(t, http.MethodPost, "/api/attendance/check-in", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, rec).Error, "already checked in")
}

func TestAPI_CheckIn_MissingEmployeeID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/attendance/check-in", api.CheckRequest{Name: "Nameless"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CheckOut_WithoutCheckIn_Conflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/attendance/check-out",
		api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CheckOut_AfterCheckIn(t *testing.T) {
	env := newTestEnv(t)
	body := api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/attendance/check-in", body).Code)

	*env.clock = time.Date(2025, time.March, 10, 17, 35, 0, 0, time.UTC)
	rec := env.do(t, http.MethodPost, "/api/attendance/check-out", body)

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.CheckOutDTO](t, rec)
	assert.Equal(t, "17:35:00", dto.Time)
	assert.Equal(t, "08:30:00", dto.Duration)
}

func TestAPI_Summary(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/attendance/check-in", api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"})

	rec := env.do(t, http.MethodGet, "/api/attendance/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.DaySummaryDTO](t, rec)
	assert.Equal(t, "2025-03-10", dto.Date)
	require.Len(t, dto.Records, 1)
	assert.Equal(t, "emp-1", dto.Records[0].EmployeeID)
	assert.Empty(t, dto.Records[0].CheckOut)
}

func TestAPI_Summary_ExplicitDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/attendance/summary?date=2025-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.DaySummaryDTO](t, rec)
	assert.Equal(t, "2025-03-01", dto.Date)
	assert.Empty(t, dto.Records)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/attendance/summary?date=bogus", nil).Code)
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

func TestAPI_MonthlyReport(t *testing.T) {
	env := newTestEnv(t)
	body := api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"}

	env.do(t, http.MethodPost, "/api/attendance/check-in", body)
	*env.clock = time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)
	env.do(t, http.MethodPost, "/api/attendance/check-out", body)

	rec := env.do(t, http.MethodGet, "/api/reports/monthly?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.MonthlyReportDTO](t, rec)
	assert.Equal(t, 2025, dto.Year)
	assert.Equal(t, 3, dto.Month)
	require.Len(t, dto.Dates, 31)
	require.Len(t, dto.Rows, 1)
	assert.Equal(t, "GracePeriod", dto.Rows[0].Statuses[9]) // March 10
	assert.Equal(t, "Absent", dto.Rows[0].Statuses[0])
}

func TestAPI_MonthlyReport_DefaultsToCurrentMonth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reports/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.MonthlyReportDTO](t, rec)
	assert.Equal(t, 2025, dto.Year)
	assert.Equal(t, 3, dto.Month)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/reports/monthly?month=13", nil).Code)
}

func TestAPI_WriteMonthlyReport(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/attendance/check-in", api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"})

	rec := env.do(t, http.MethodPost, "/api/reports/monthly?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string]any](t, rec)
	path, _ := resp["path"].(string)
	assert.Equal(t, filepath.Join(env.cfg.RecordsDir, "monthly_report_2025_03.csv"), path)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAPI_HoursReport(t *testing.T) {
	env := newTestEnv(t)
	body := api.CheckRequest{EmployeeID: "emp-1", Name: "An Nguyen"}

	env.do(t, http.MethodPost, "/api/attendance/check-in", body)
	*env.clock = time.Date(2025, time.March, 10, 17, 5, 0, 0, time.UTC)
	env.do(t, http.MethodPost, "/api/attendance/check-out", body)

	rec := env.do(t, http.MethodGet, "/api/reports/hours?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]api.HoursRowDTO](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "8.00", rows[0].Hours)
	assert.Equal(t, 1, rows[0].DaysWorked)
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

func TestAPI_EnrollListRemoveEmployee(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/employees/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.EmployeeDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "emp-1", list[0].ID)
	assert.True(t, list[0].HasFace)

	rec = env.do(t, http.MethodDelete, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list = decode[[]api.EmployeeDTO](t, env.do(t, http.MethodGet, "/api/employees/", nil))
	assert.Empty(t, list)
}

func TestAPI_EnrollEmployee_Validation(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{Name: "No ID", Embedding: []float32{1}}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "No Face"}).Code)
}

func TestAPI_EnrollEmployee_DimensionMismatch_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-2", Name: "Binh Tran", Embedding: []float32{1, 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected employee never reaches the roster.
	list := decode[[]api.EmployeeDTO](t, env.do(t, http.MethodGet, "/api/employees/", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "emp-1", list[0].ID)
}

func TestAPI_EnrollEmployee_EchoesStoredEnrollment(t *testing.T) {
	// The creation response reports the persisted enrollment time, so a
	// later listing shows the same timestamp.

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.EmployeeDTO](t, rec)
	require.NotEmpty(t, created.EnrolledAt)

	list := decode[[]api.EmployeeDTO](t, env.do(t, http.MethodGet, "/api/employees/", nil))
	require.Len(t, list, 1)
	assert.Equal(t, created.EnrolledAt, list[0].EnrolledAt)
}

func TestAPI_RemoveEmployee_Unknown_NotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/employees/ghost", nil).Code)
}

// =============================================================================
// RECOGNITION ENDPOINT
// =============================================================================

func TestAPI_Recognize_CheckInFlow(t *testing.T) {
	// GIVEN: An enrolled employee
	// WHEN: A matching embedding arrives in check_in mode
	// THEN: The identity comes back and the check-in is recorded

	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})

	rec := env.do(t, http.MethodPost, "/api/recognize",
		api.RecognizeRequest{Embedding: []float32{0.99, 0.01, 0, 0}, Mode: "check_in"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.RecognizeResponse](t, rec)
	assert.True(t, resp.Recognized)
	assert.Equal(t, "emp-1", resp.EmployeeID)
	require.NotNil(t, resp.CheckIn)
	assert.Equal(t, "GracePeriod", resp.CheckIn.Status)
	assert.Empty(t, resp.Message)
}

func TestAPI_Recognize_UnknownFace(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})

	rec := env.do(t, http.MethodPost, "/api/recognize",
		api.RecognizeRequest{Embedding: []float32{0, 0, 1, 0}, Mode: "check_in"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.RecognizeResponse](t, rec)
	assert.False(t, resp.Recognized)
	assert.Nil(t, resp.CheckIn)
}

func TestAPI_Recognize_RejectedDecision_StillRecognized(t *testing.T) {
	// A second frame moments after a successful check-in: the face is
	// recognized, the decision is rejected, and the kiosk gets a message
	// rather than an error status.

	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})

	body := api.RecognizeRequest{Embedding: []float32{1, 0, 0, 0}, Mode: "check_in"}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/recognize", body).Code)

	rec := env.do(t, http.MethodPost, "/api/recognize", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.RecognizeResponse](t, rec)
	assert.True(t, resp.Recognized)
	assert.Nil(t, resp.CheckIn)
	assert.Contains(t, resp.Message, "already checked in")
}

func TestAPI_Recognize_Validation(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/recognize",
		api.RecognizeRequest{Mode: "check_in"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/recognize",
		api.RecognizeRequest{Embedding: []float32{1}, Mode: "sideways"}).Code)
}

func TestAPI_Recognize_DimensionMismatch_BadRequest(t *testing.T) {
	// A query embedding of the wrong length is a client error, not a crash.

	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/employees/",
		api.EnrollRequest{ID: "emp-1", Name: "An Nguyen", Embedding: []float32{1, 0, 0, 0}})

	rec := env.do(t, http.MethodPost, "/api/recognize",
		api.RecognizeRequest{Embedding: []float32{1, 0}, Mode: "check_in"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
