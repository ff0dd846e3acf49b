package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/collector"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/model"
)

type fakeRunner struct {
	fn func(ctx context.Context, req model.SearchRequest, sink collector.Sink) ([]model.LeadRecord, error)
}

func (f *fakeRunner) Collect(ctx context.Context, req model.SearchRequest, sink collector.Sink) ([]model.LeadRecord, error) {
	return f.fn(ctx, req, sink)
}

func leadsFor(req model.SearchRequest, n int) []model.LeadRecord {
	out := make([]model.LeadRecord, n)
	for i := range out {
		out[i] = model.NewLeadRecord(model.Details{Name: fmt.Sprintf("%s #%d", req.Keyword, i+1)}, model.WebsiteAnalysis{}, time.Now())
	}
	return out
}

func newTestServer(t *testing.T, r Runner, rl config.RateLimitConfig) *echo.Echo {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "api.db"), "JP")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(Deps{Runner: r, Store: store, RateLimit: rl})
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, config.RateLimitConfig{})

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Equal(t, "success", decode(t, rec).Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestCollectStoresRun(t *testing.T) {
	runner := &fakeRunner{fn: func(_ context.Context, req model.SearchRequest, sink collector.Sink) ([]model.LeadRecord, error) {
		sink.Report(model.ProgressEvent{Current: 0, Total: req.MaxResults, Status: "searching for " + req.Keyword})
		sink.Report(model.ProgressEvent{Current: 2, Total: 2, Status: "collection complete"})
		return leadsFor(req, 2), nil
	}}
	e := newTestServer(t, runner, config.RateLimitConfig{})

	rec := do(e, http.MethodPost, "/collect", `{"region":"Kyoto","industry":"printing","max_results":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data collectResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	require.Len(t, data.Leads, 2)
	assert.Equal(t, "Kyoto printing #1", data.Leads[0].CompanyName)
	require.Len(t, data.Progress, 2)
	assert.Equal(t, "collection complete", data.Progress[1].Status)

	rec = do(e, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.Run
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, data.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Leads)

	rec = do(e, http.MethodGet, "/runs/"+data.RunID.String()+"/leads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored []storage.StoredLead
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stored))
	assert.Len(t, stored, 2)
}

func TestCollectValidation(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, config.RateLimitConfig{})

	for _, body := range []string{
		`{"keyword":"x","max_results":0}`,
		`{"keyword":"x","max_results":301}`,
		`{"max_results":5}`,
		`not json`,
	} {
		rec := do(e, http.MethodPost, "/collect", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "error", decode(t, rec).Status)
	}
}

func TestCollectSessionFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, model.SearchRequest, collector.Sink) ([]model.LeadRecord, error) {
		return nil, fmt.Errorf("%w: starting browser: %w", collector.ErrSession, errors.New("exec: chrome not found"))
	}}
	e := newTestServer(t, runner, config.RateLimitConfig{})

	rec := do(e, http.MethodPost, "/collect", `{"keyword":"x","max_results":1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCollectRejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &fakeRunner{fn: func(_ context.Context, req model.SearchRequest, _ collector.Sink) ([]model.LeadRecord, error) {
		close(started)
		<-release
		return leadsFor(req, 1), nil
	}}
	e := newTestServer(t, runner, config.RateLimitConfig{})

	done := make(chan int)
	go func() {
		done <- do(e, http.MethodPost, "/collect", `{"keyword":"slow","max_results":1}`).Code
	}()
	<-started

	rec := do(e, http.MethodPost, "/collect", `{"keyword":"fast","max_results":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestCollectRateLimit(t *testing.T) {
	runner := &fakeRunner{fn: func(_ context.Context, req model.SearchRequest, _ collector.Sink) ([]model.LeadRecord, error) {
		return leadsFor(req, 1), nil
	}}
	e := newTestServer(t, runner, config.RateLimitConfig{Requests: 1, Interval: time.Hour})

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/collect", `{"keyword":"a","max_results":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/collect", `{"keyword":"b","max_results":1}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/runs", "").Code)
}

func TestRunLeadsBadID(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, config.RateLimitConfig{})

	rec := do(e, http.MethodGet, "/runs/not-a-uuid/leads", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
