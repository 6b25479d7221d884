package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/services"
	"expensetracker/internal/store/memory"
)

var fixedNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	quiet := applog.New(applog.Config{Output: io.Discard})
	tracker := services.NewTracker(memory.New(),
		services.WithLogger(quiet),
		services.WithClock(func() time.Time { return fixedNow }))
	opts.Logger = quiet
	s := NewServer(tracker, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, t: t}
}

func (ts *testServer) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) submit(title, amount, date string) *httptest.ResponseRecorder {
	form := url.Values{"title": {title}, "amount": {amount}, "date": {date}}
	return ts.do(http.MethodPost, "/api/expenses", strings.NewReader(form.Encode()))
}

func (ts *testServer) view(year string) viewResponse {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/api/expenses?year="+year, nil)
	require.Equal(ts.t, http.StatusOK, rec.Code)
	var v viewResponse
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServer_EmptyView(t *testing.T) {
	ts := newTestServer(t, Options{})

	v := ts.view("")
	assert.Equal(t, 2024, v.Year)
	assert.Empty(t, v.Expenses)
	assert.Equal(t, "Found no expenses.", v.Message)
	require.Len(t, v.Chart.Months, 12)
	assert.Equal(t, "Jan", v.Chart.Months[0].MonthLabel)
	assert.Equal(t, "Dec", v.Chart.Months[11].MonthLabel)
	assert.Equal(t, "RM", v.Chart.Label)
	assert.Equal(t, "2024-03-10", v.DefaultDate)
	assert.Len(t, v.YearOptions, 11)
	assert.False(t, v.Edit.Active)
}

func TestServer_SubmitAndView(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.submit("Rent", "500.00", "2024-01-05")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventExpenseCreated)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventFormReset)

	rec = ts.submit("Food", "1045.50", "2024-01-20")
	require.Equal(t, http.StatusCreated, rec.Code)

	v := ts.view("2024")
	require.Len(t, v.Expenses, 2)
	assert.Empty(t, v.Message)
	assert.Equal(t, expenseRecord{Title: "Rent", Amount: 500, AmountDisplay: "RM 500.00", Date: "2024-01-05", OriginalIndex: 0}, v.Expenses[0])
	assert.Equal(t, "RM 1,045.50", v.Expenses[1].AmountDisplay)
	assert.Equal(t, 1, v.Expenses[1].OriginalIndex)
	assert.InDelta(t, 1545.50, v.Chart.Months[0].Total, 0.001)

	other := ts.view("2023")
	assert.Empty(t, other.Expenses)
}

func TestServer_SubmitValidation(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.submit("", "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body fieldErrorsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, FieldErrors{"title": msgRequired, "amount": msgRequired, "date": msgRequired}, body.Errors)

	rec = ts.do(http.MethodPost, "/api/expenses", strings.NewReader(`{"title":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_EditFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, ts.submit("Rent", "500", "2024-01-05").Code)

	rec := ts.do(http.MethodPost, "/api/expenses/0/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var edit editResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edit))
	assert.Equal(t, editResponse{Index: 0, Form: formValues{Title: "Rent", Amount: 500, Date: "2024-01-05"}}, edit)

	v := ts.view("2024")
	require.True(t, v.Edit.Active)
	require.NotNil(t, v.Edit.Index)
	assert.Equal(t, 0, *v.Edit.Index)

	rec = ts.submit("Rent2", "600", "2024-02-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventExpenseUpdated)

	v = ts.view("2024")
	require.Len(t, v.Expenses, 1)
	assert.Equal(t, "Rent2", v.Expenses[0].Title)
	assert.Zero(t, v.Chart.Months[0].Total)
	assert.InDelta(t, 600.0, v.Chart.Months[1].Total, 0.001)
	assert.False(t, v.Edit.Active)
}

func TestServer_CancelEdit(t *testing.T) {
	ts := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, ts.submit("Rent", "500", "2024-01-05").Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/expenses/0/edit", nil).Code)

	rec := ts.do(http.MethodPost, "/api/edit/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventFormReset)
	assert.False(t, ts.view("2024").Edit.Active)

	rec = ts.do(http.MethodPost, "/api/edit/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "cancelling when idle is a no-op")
}

func TestServer_DeleteAndStaleIndex(t *testing.T) {
	ts := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, ts.submit("Rent", "500", "2024-01-05").Code)

	rec := ts.do(http.MethodDelete, "/api/expenses/0", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventExpenseDeleted)
	assert.Empty(t, ts.view("2024").Expenses)

	rec = ts.do(http.MethodDelete, "/api/expenses/0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/expenses/7/edit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/expenses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_DeleteEditedRowResetsForm(t *testing.T) {
	ts := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, ts.submit("Rent", "500", "2024-01-05").Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/expenses/0/edit", nil).Code)

	rec := ts.do(http.MethodDelete, "/api/expenses/0", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventFormReset)

	rec = ts.submit("Food", "10", "2024-01-06")
	assert.Equal(t, http.StatusCreated, rec.Code, "session ended, submit adds")
}

func TestServer_Years(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/api/years", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var years yearsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &years))
	assert.Equal(t, 2024, years.DefaultYear)
	assert.Equal(t, []int{2024, 2023, 2022, 2021, 2020, 2019, 2018, 2017, 2016, 2015, 2014}, years.Years)
}

func TestServer_HealthReadyMetrics(t *testing.T) {
	notReady := errors.New("db gone")
	var readyErr error
	ts := newTestServer(t, Options{
		Metrics: metrics.New(),
		Ready:   func(context.Context) error { return readyErr },
	})

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/readyz", nil).Code)

	readyErr = notReady
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/readyz", nil).Code)

	rec := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "expensetracker_http_histogram_response_time_seconds")
}

func TestServer_MetricsDisabled(t *testing.T) {
	ts := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/metrics", nil).Code)
}

func TestServer_SecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/api/years", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})

	assert.Equal(t, http.StatusCreated, ts.submit("A", "1", "2024-01-01").Code)
	assert.Equal(t, http.StatusCreated, ts.submit("B", "1", "2024-01-01").Code)
	rec := ts.submit("C", "1", "2024-01-01")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/expenses", nil).Code, "reads are not limited")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "RM 545.50", formatAmount("RM", core.Money{Cents: 54550}))
	assert.Equal(t, "RM 0.00", formatAmount("RM", core.Money{}))
	assert.Equal(t, "$ 1,234,567.89", formatAmount("$", core.Money{Cents: 123456789}))
}
