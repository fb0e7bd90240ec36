package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gtu-cse396/sdbelt/internal/application"
	appdiag "github.com/gtu-cse396/sdbelt/internal/application/diagnosis"
	appscans "github.com/gtu-cse396/sdbelt/internal/application/scans"
	appsystem "github.com/gtu-cse396/sdbelt/internal/application/system"
	"github.com/gtu-cse396/sdbelt/internal/infra/ai/prompt"
	"github.com/gtu-cse396/sdbelt/internal/infra/db/sqlite"
	"github.com/gtu-cse396/sdbelt/internal/middleware"
)

const testKey = "secret-key"

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, Options{})
}

func newTestServerWith(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scanRepo := sqlite.NewScanRepository(db)
	diagRepo := sqlite.NewDiagnosisRepository(db)
	require.NoError(t, scanRepo.Migrate(ctx))
	require.NoError(t, diagRepo.Migrate(ctx))
	sysRepo := sqlite.NewSystemRepository(db)
	require.NoError(t, sysRepo.Migrate(ctx))

	clock := application.FixedClock{T: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)}
	logger := zaptest.NewLogger(t)
	scansSvc := &appscans.Service{
		Repo:      scanRepo,
		Clock:     clock,
		Location:  time.UTC,
		Threshold: 70,
		Logger:    logger,
	}
	diagSvc := appdiag.NewService(prompt.HeuristicClient{}, diagRepo, scanRepo, clock, logger)

	if opts.APIKeys == nil {
		opts.APIKeys = map[string]string{"detector-1": testKey}
	}
	opts.HealthCheckers = map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: db}}
	opts.Logger = logger
	opts.System = appsystem.NewService(sysRepo, clock, 30*time.Second, logger)

	h := NewRouter(scansSvc, diagSvc, opts)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, auth bool) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestRouter_IngestAndRead(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/v1/scans",
		`[{"productResult":"apple_Healthy","confidence":90,"x":1,"y":2},{"productResult":"apple_Healthy","confidence":80,"x":1,"y":2}]`, true)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var ingested struct {
		ID       int64           `json:"id"`
		Scan     json.RawMessage `json:"scan"`
		Accepted bool            `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &ingested))
	assert.True(t, ingested.Accepted)
	assert.JSONEq(t, `{"productId":"apple","healthRatio":1,"isSuccess":true,"errorMessage":null,"timestamp":"2024-01-01T10:00:00"}`, string(ingested.Scan))

	code, env = call(t, srv, http.MethodGet, "/api/v1/scans/1", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(ingested.Scan), string(env.Result))

	code, env = call(t, srv, http.MethodGet, "/api/v1/scans?productId=apple&startDate=2024-01-01T09:00:00", "", false)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Len(t, list, 1)

	code, env = call(t, srv, http.MethodGet, "/api/v1/scans?productId=pear", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Result))
}

func TestRouter_RecordResult(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/v1/scans/results",
		`{"productId":"SKU-1002","healthRatio":null,"isSuccess":false,"errorMessage":"sensor timeout","timestamp":"2024-01-01T10:05:00"}`, true)
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = call(t, srv, http.MethodGet, "/api/v1/scans/statistics", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"totalScans": 1,
		"successfulScans": 0,
		"failedScans": 1,
		"averageHealthRatio": null,
		"productStatistics": [
			{"productId":"SKU-1002","totalScans":1,"successfulScans":0,"failedScans":1,"averageHealthRatio":null}
		]
	}`, string(env.Result))

	code, env = call(t, srv, http.MethodPost, "/api/v1/diagnoses", "", true)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Contains(t, string(env.Result), "sensor")

	code, env = call(t, srv, http.MethodGet, "/api/v1/diagnoses", "", false)
	require.Equal(t, http.StatusOK, code)
	var diags []map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &diags))
	assert.Len(t, diags, 1)
}

func TestRouter_Page(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		code, _ := call(t, srv, http.MethodPost, "/api/v1/scans", `[{"productResult":"pear_Healthy","confidence":75}]`, true)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := call(t, srv, http.MethodGet, "/api/v1/scans/page?page=2&pageSize=2", "", false)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Data       []json.RawMessage `json:"data"`
		Page       int               `json:"page"`
		PageSize   int               `json:"pageSize"`
		TotalItems int64             `json:"totalItems"`
		TotalPages int               `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
}

func TestRouter_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   bool
		want   int
	}{
		{"no api key", http.MethodPost, "/api/v1/scans", `[]`, false, http.StatusUnauthorized},
		{"bad json", http.MethodPost, "/api/v1/scans", `{`, true, http.StatusBadRequest},
		{"bad start date", http.MethodGet, "/api/v1/scans?startDate=yesterday", "", false, http.StatusBadRequest},
		{"inverted range", http.MethodGet, "/api/v1/scans?startDate=2024-01-02T00:00&endDate=2024-01-01T00:00", "", false, http.StatusBadRequest},
		{"product id too long", http.MethodGet, "/api/v1/scans?productId=" + strings.Repeat("a", 129), "", false, http.StatusBadRequest},
		{"record product id too long", http.MethodPost, "/api/v1/scans/results", `{"productId":"` + strings.Repeat("a", 129) + `"}`, true, http.StatusBadRequest},
		{"bad threshold", http.MethodPost, "/api/v1/system/threshold", `seventy`, true, http.StatusBadRequest},
		{"threshold out of range", http.MethodPost, "/api/v1/system/threshold", `250`, true, http.StatusBadRequest},
		{"threshold without key", http.MethodPost, "/api/v1/system/threshold", `70`, false, http.StatusUnauthorized},
		{"bad log level", http.MethodPost, "/api/v1/system/logs", `{"level":"FATAL","message":"x"}`, true, http.StatusBadRequest},
		{"empty log message", http.MethodPost, "/api/v1/system/logs", `{"level":"INFO","message":""}`, true, http.StatusBadRequest},
		{"bad since", http.MethodGet, "/api/v1/system/logs?since=yesterday", "", false, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/scans?limit=ten", "", false, http.StatusBadRequest},
		{"non numeric id", http.MethodGet, "/api/v1/scans/abc", "", false, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/v1/scans/999", "", false, http.StatusNotFound},
		{"archive disabled", http.MethodPost, "/api/v1/scans/archive", "", true, http.StatusServiceUnavailable},
		{"nothing to diagnose", http.MethodPost, "/api/v1/diagnoses", "", true, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, srv, tt.method, tt.path, tt.body, tt.auth)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.want, env.Status)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestRouter_EmptyBatchIsStoredAsFailure(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodPost, "/api/v1/scans", `[]`, true)
	require.Equal(t, http.StatusCreated, code)
	assert.Contains(t, string(env.Result), "empty scan batch")
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", env.Message)

	code, _ = call(t, srv, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, srv, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Result), "requests_total")
}

func TestRouter_RecordStoresVerbatim(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"null timestamp", `{"productId":"pear","healthRatio":0.5,"isSuccess":true,"errorMessage":null,"timestamp":null}`},
		{"all absent", `{"productId":"Granny Smith #3","healthRatio":null,"isSuccess":null,"errorMessage":null,"timestamp":null}`},
		{"microseconds", `{"productId":"SKU-1","healthRatio":0.25,"isSuccess":true,"errorMessage":null,"timestamp":"2023-12-31T23:00:00.123456"}`},
		{"failure", `{"productId":"SKU-2","healthRatio":null,"isSuccess":false,"errorMessage":"sensor timeout","timestamp":"2024-01-01T09:59:00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, srv, http.MethodPost, "/api/v1/scans/results", tt.body, true)
			require.Equal(t, http.StatusCreated, code, env.Message)
			var created struct {
				ID int64 `json:"id"`
			}
			require.NoError(t, json.Unmarshal(env.Result, &created))

			code, env = call(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/scans/%d", created.ID), "", false)
			require.Equal(t, http.StatusOK, code)
			assert.JSONEq(t, tt.body, string(env.Result))
		})
	}
}

func TestRouter_Threshold(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodGet, "/api/v1/system/threshold", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"threshold":70}`, string(env.Result))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/system/threshold", strings.NewReader("90.0"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames := `[{"productResult":"apple_Healthy","confidence":90},{"productResult":"apple_Healthy","confidence":80}]`
	code, env = call(t, srv, http.MethodPost, "/api/v1/scans", frames, true)
	require.Equal(t, http.StatusCreated, code)
	var ingested struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &ingested))
	assert.False(t, ingested.Accepted, "85 is below the new threshold")

	code, _ = call(t, srv, http.MethodPost, "/api/v1/system/threshold", `{"threshold":0}`, true)
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, srv, http.MethodGet, "/api/v1/system/threshold", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"threshold":0}`, string(env.Result))
}

func TestRouter_SystemInfo(t *testing.T) {
	srv := newTestServer(t)

	code, env := call(t, srv, http.MethodGet, "/api/v1/system/info", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"INACTIVE"}`, string(env.Result))

	code, env = call(t, srv, http.MethodPost, "/api/v1/system/info",
		`{"timestamp":"2024-01-01T09:59:55Z","cpuDegree":51.2,"cpuUsage":17.5,"memoryUsage":"1834/7820 MiB"}`, true)
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = call(t, srv, http.MethodGet, "/api/v1/system/info", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"timestamp":"2024-01-01T09:59:55Z",
		"cpuDegree":51.2,
		"cpuUsage":17.5,
		"memoryUsage":"1834/7820 MiB",
		"cpuTemperature":51.2,
		"status":"ACTIVE"
	}`, string(env.Result))
}

func TestRouter_SystemLogs(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"timestamp":"2024-01-01T09:00:00Z","level":"INFO","message":"detector started"}`,
		`{"timestamp":"2024-01-01T09:30:00Z","level":"ERROR","message":"camera offline"}`,
	} {
		code, env := call(t, srv, http.MethodPost, "/api/v1/system/logs", body, true)
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/v1/system/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status int               `json:"status"`
		Result []json.RawMessage `json:"result"`
		Logs   []string          `json:"logs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Len(t, body.Result, 2)
	assert.Equal(t, []string{
		"2024-01-01T09:00:00Z [INFO] detector started",
		"2024-01-01T09:30:00Z [ERROR] camera offline",
	}, body.Logs)

	code, env := call(t, srv, http.MethodGet, "/api/v1/system/logs?level=error&since=2024-01-01T09:00:00Z", "", false)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "camera offline", list[0]["message"])
}

func TestRouter_WriteRateLimitIsPerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 0)
	t.Cleanup(rl.Stop)
	srv := newTestServerWith(t, Options{
		APIKeys:     map[string]string{"detector-1": testKey, "dashboard": "dash-key"},
		RateLimiter: rl,
	})

	post := func(key string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/system/threshold", strings.NewReader("70"))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+key)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post(testKey))
	assert.Equal(t, http.StatusTooManyRequests, post(testKey))
	assert.Equal(t, http.StatusOK, post("dash-key"), "same IP, different client, separate bucket")
	assert.Equal(t, http.StatusUnauthorized, post("wrong"), "auth runs before the limiter")
}
