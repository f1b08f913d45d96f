package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/teashop/internal/middleware"
	"github.com/atinyakov/teashop/internal/models"
	"github.com/atinyakov/teashop/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// fakeLedger implements LedgerService for testing.
type fakeLedger struct {
	state   service.DayState
	reports []models.Report
	err     error

	gotUser    uuid.UUID
	gotDate    string
	gotUpdates []models.CountUpdate
	gotRef     string
	closed     bool
}

func (f *fakeLedger) Current(ctx context.Context, userID uuid.UUID) (service.DayState, error) {
	f.gotUser = userID
	return f.state, f.err
}

func (f *fakeLedger) UpdateToday(ctx context.Context, userID uuid.UUID, date string, updates []models.CountUpdate) (service.DayState, error) {
	f.gotUser, f.gotDate, f.gotUpdates = userID, date, updates
	return f.state, f.err
}

func (f *fakeLedger) Close(ctx context.Context, userID uuid.UUID) (service.DayState, error) {
	f.gotUser, f.closed = userID, true
	return f.state, f.err
}

func (f *fakeLedger) ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	f.gotUser = userID
	return f.reports, f.err
}

func (f *fakeLedger) DeleteReport(ctx context.Context, userID uuid.UUID, ref string) error {
	f.gotUser, f.gotRef = userID, ref
	return f.err
}

// fakeAuth stands in for BearerAuth and authenticates every request as user.
func fakeAuth(user uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), user)))
		})
	}
}

func newTestRouter(ledger *fakeLedger, user uuid.UUID) http.Handler {
	return newTestRouterWithOrigins(ledger, user, []string{"*"})
}

func newTestRouterWithOrigins(ledger *fakeLedger, user uuid.UUID, origins []string) http.Handler {
	log := zap.NewNop()
	return NewRouter(
		&AuthHandler{AuthService: &fakeAuthService{token: "t"}, Logger: log},
		&LedgerHandler{Ledger: ledger, Logger: log},
		fakeAuth(user),
		origins,
		log,
	)
}

func sampleState() service.DayState {
	tea := models.TallyEntry{ID: 1, Name: "Tea", Price: decimal.NewFromInt(10), Count: 3}
	report := models.Report{
		ID:          uuid.New(),
		Date:        "2024-05-01",
		Items:       []models.ReportLineItem{{ID: 1, Name: "Tea", Price: tea.Price, Count: 3, Amount: decimal.NewFromInt(30)}},
		TotalQty:    3,
		TotalAmount: decimal.NewFromInt(30),
	}
	return service.DayState{
		Today:   models.DailyTally{Date: "2024-05-01", Categories: []models.TallyEntry{tea}},
		Report:  report,
		Reports: []models.Report{report},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestData(t *testing.T) {
	user := uuid.New()
	ledger := &fakeLedger{state: sampleState()}
	rec := do(t, newTestRouter(ledger, user), "GET", "/api/data", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, ledger.gotUser)

	var resp struct {
		Today   models.DailyTally `json:"today"`
		Reports []models.Report   `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-05-01", resp.Today.Date)
	require.Len(t, resp.Today.Categories, 1)
	assert.Equal(t, int64(3), resp.Today.Categories[0].Count)
	require.Len(t, resp.Reports, 1)
	assert.Contains(t, rec.Body.String(), `"price":10`)
}

func TestData_ServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := do(t, newTestRouter(&fakeLedger{err: tt.err}, uuid.New()), "GET", "/api/data", "")
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestUpdateToday(t *testing.T) {
	ledger := &fakeLedger{state: sampleState()}
	body := `{"today":{"date":"2024-05-01","categories":[{"id":1,"name":"Tea","price":10,"count":3},{"id":2,"count":0}]}}`
	rec := do(t, newTestRouter(ledger, uuid.New()), "POST", "/api/today", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-05-01", ledger.gotDate)
	assert.Equal(t, []models.CountUpdate{{ID: 1, Count: 3}, {ID: 2, Count: 0}}, ledger.gotUpdates)

	var resp struct {
		OK            bool              `json:"ok"`
		Today         models.DailyTally `json:"today"`
		UpdatedReport models.Report     `json:"updatedReport"`
		Reports       []models.Report   `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, int64(3), resp.UpdatedReport.TotalQty)
	assert.Len(t, resp.Reports, 1)
}

func TestUpdateToday_BadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing today", `{}`},
		{"missing categories", `{"today":{"date":"2024-05-01"}}`},
		{"missing count", `{"today":{"categories":[{"id":1}]}}`},
		{"negative count", `{"today":{"categories":[{"id":1,"count":-1}]}}`},
		{"fractional count", `{"today":{"categories":[{"id":1,"count":1.5}]}}`},
		{"string count", `{"today":{"categories":[{"id":1,"count":"3"}]}}`},
		{"malformed date", `{"today":{"date":"01/05/2024","categories":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			rec := do(t, newTestRouter(ledger, uuid.New()), "POST", "/api/today", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid today payload")
			assert.Nil(t, ledger.gotUpdates, "service must not be called")
		})
	}
}

func TestUpdateToday_ServiceValidationError(t *testing.T) {
	ledger := &fakeLedger{err: fmt.Errorf("%w: date 2024-04-30 is not the current day", service.ErrValidation)}
	rec := do(t, newTestRouter(ledger, uuid.New()), "POST", "/api/today", `{"today":{"date":"2024-04-30","categories":[]}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not the current day")
}

func TestUpdateToday_RejectsOtherContentTypes(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/today", strings.NewReader(`{"today":{"categories":[]}}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	newTestRouter(&fakeLedger{}, uuid.New()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestClose(t *testing.T) {
	state := sampleState()
	state.Today.Categories[0].Count = 0
	ledger := &fakeLedger{state: state}
	rec := do(t, newTestRouter(ledger, uuid.New()), "POST", "/api/close", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ledger.closed)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestReports(t *testing.T) {
	ledger := &fakeLedger{reports: []models.Report{}}
	rec := do(t, newTestRouter(ledger, uuid.New()), "GET", "/api/reports", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestDeleteReport(t *testing.T) {
	user := uuid.New()
	ledger := &fakeLedger{}
	rec := do(t, newTestRouter(ledger, user), "DELETE", "/api/reports/2024-05-01", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "2024-05-01", ledger.gotRef)
	assert.Equal(t, user, ledger.gotUser)
}

func TestDeleteReport_StorageError(t *testing.T) {
	rec := do(t, newTestRouter(&fakeLedger{err: errors.New("db down")}, uuid.New()), "DELETE", "/api/reports/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestExportReports(t *testing.T) {
	ledger := &fakeLedger{reports: sampleState().Reports}
	rec := do(t, newTestRouter(ledger, uuid.New()), "GET", "/api/reports/export", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05-01", rows[1][0])
}

func TestLedgerHandler_NoUserInContext(t *testing.T) {
	h := &LedgerHandler{Ledger: &fakeLedger{}, Logger: zap.NewNop()}
	rec := httptest.NewRecorder()

	h.Data(rec, httptest.NewRequest("GET", "/api/data", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestRouter(&fakeLedger{}, uuid.New())

	rec := do(t, r, "GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tea-shop backend", rec.Body.String())

	rec = do(t, r, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, r, "POST", "/api/auth/login", `{"phone":"9876543210","pin":"1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	ledger := &fakeLedger{}
	req := httptest.NewRequest("OPTIONS", "/api/today", nil)
	req.Header.Set("Origin", "https://till.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()

	newTestRouter(ledger, uuid.New()).ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300, "preflight must succeed")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Nil(t, ledger.gotUpdates, "preflight must not reach the handler")
}

func TestCORS_SimpleRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Origin", "https://till.example")
	rec := httptest.NewRecorder()

	newTestRouter(&fakeLedger{state: sampleState()}, uuid.New()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	r := newTestRouterWithOrigins(&fakeLedger{state: sampleState()}, uuid.New(), []string{"https://till.example"})

	allowed := httptest.NewRequest("GET", "/api/data", nil)
	allowed.Header.Set("Origin", "https://till.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, allowed)
	assert.Equal(t, "https://till.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest("GET", "/api/data", nil)
	other.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, other)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
