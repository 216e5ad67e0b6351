package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/store"
	"github.com/policyengine/simprof/pkg/engine"
	"github.com/policyengine/simprof/pkg/engine/synthetic"
)

var registerOnce sync.Once

// newTestServer wires a Server to a throwaway SQLite store and a small
// synthetic engine so profile requests complete in milliseconds.
func newTestServer(t *testing.T, opts Options) (http.Handler, store.Store) {
	t.Helper()
	registerOnce.Do(func() {
		engine.Register(synthetic.New(
			synthetic.WithParameterCount(3),
			synthetic.WithProjectionYears(2),
			synthetic.WithVersion("0.0.1-test"),
		))
	})

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	srv := New(context.Background(), st, opts)
	return srv.Handler(), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// waitForRun polls the run endpoint until the run reaches a terminal
// status.
func waitForRun(t *testing.T, h http.Handler, id string) model.Run {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for {
		rr := doJSON(t, h, http.MethodGet, "/api/v1/runs/"+id, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var run model.Run
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
		if run.Status == model.RunStatusComplete || run.Status == model.RunStatusFailed {
			return run
		}
		if time.Now().After(deadline) {
			t.Fatalf("run %s still %s after deadline", id, run.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := doJSON(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestEnginesEndpoint(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := doJSON(t, h, http.MethodGet, "/api/v1/engines", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Engines []struct {
			Country string `json:"country"`
			Version string `json:"version"`
		} `json:"engines"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	found := false
	for _, e := range body.Engines {
		if e.Country == "synthetic" {
			found = true
			assert.Equal(t, "0.0.1-test", e.Version)
		}
	}
	assert.True(t, found, "synthetic engine not listed")
}

func TestProfileValidation(t *testing.T) {
	h, _ := newTestServer(t, Options{ProfileEvery: time.Millisecond})

	tests := []struct {
		name     string
		body     any
		raw      string
		wantCode int
		wantBody string
	}{
		{name: "invalid json", raw: "not json", wantCode: http.StatusBadRequest, wantBody: "invalid request body"},
		{name: "missing country", body: map[string]string{}, wantCode: http.StatusBadRequest, wantBody: "country is required"},
		{name: "unknown country", body: map[string]string{"country": "atlantis"}, wantCode: http.StatusBadRequest, wantBody: "unknown country"},
		{name: "unknown reform", body: map[string]string{"country": "synthetic", "reform": "bogus"}, wantCode: http.StatusBadRequest, wantBody: "unknown reform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rr *httptest.ResponseRecorder
			if tt.raw != "" {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/profile", bytes.NewReader([]byte(tt.raw)))
				rr = httptest.NewRecorder()
				h.ServeHTTP(rr, req)
			} else {
				rr = doJSON(t, h, http.MethodPost, "/api/v1/profile", tt.body)
			}
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestProfileLifecycle(t *testing.T) {
	h, _ := newTestServer(t, Options{ProfileEvery: time.Millisecond})

	rr := doJSON(t, h, http.MethodPost, "/api/v1/profile", map[string]any{
		"country":       "synthetic",
		"income_points": 11,
	})
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	require.NotEmpty(t, resp["run_id"])

	run := waitForRun(t, h, resp["run_id"])
	require.Equal(t, model.RunStatusComplete, run.Status, "run error: %s", run.Error)
	assert.Equal(t, "synthetic", run.Country)
	assert.Equal(t, "synthetic-uprating", run.ReformName)
	require.NotNil(t, run.Result)
	assert.Equal(t, "synthetic", run.Result.Country)
	assert.Greater(t, run.Result.BaselineSeconds, 0.0)
	assert.Greater(t, run.Result.ReformSeconds, 0.0)
	assert.NotEmpty(t, run.Result.EngineVersion)

	list := doJSON(t, h, http.MethodGet, "/api/v1/runs?country=synthetic", nil)
	require.Equal(t, http.StatusOK, list.Code)

	var listBody struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listBody))
	require.NotEmpty(t, listBody.Runs)
	assert.Equal(t, resp["run_id"], listBody.Runs[0].ID)
}

func TestProfileRateLimited(t *testing.T) {
	h, _ := newTestServer(t, Options{ProfileEvery: time.Hour})

	body := map[string]any{"country": "synthetic", "income_points": 11}

	first := doJSON(t, h, http.MethodPost, "/api/v1/profile", body)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := doJSON(t, h, http.MethodPost, "/api/v1/profile", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "retry later")

	// Drain the accepted run so the next test does not race the global
	// profiler.
	var resp map[string]string
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	waitForRun(t, h, resp["run_id"])
}

func TestGetRunNotFound(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := doJSON(t, h, http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "run not found")
}

func TestListRunsBadPagination(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := doJSON(t, h, http.MethodGet, "/api/v1/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid limit")

	rr = doJSON(t, h, http.MethodGet, "/api/v1/runs?offset=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid offset")
}

func TestListRunsEmpty(t *testing.T) {
	h, _ := newTestServer(t, Options{})

	rr := doJSON(t, h, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"runs":[]`)
}
