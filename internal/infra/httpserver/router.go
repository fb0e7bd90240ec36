package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appdiag "github.com/gtu-cse396/sdbelt/internal/application/diagnosis"
	appscans "github.com/gtu-cse396/sdbelt/internal/application/scans"
	appsystem "github.com/gtu-cse396/sdbelt/internal/application/system"
	"github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
	domain "github.com/gtu-cse396/sdbelt/internal/domain/scans"
	"github.com/gtu-cse396/sdbelt/internal/domain/system"
	"github.com/gtu-cse396/sdbelt/internal/middleware"
)

const (
	maxBodyBytes      = 1 << 20
	maxThresholdBytes = 64
	maxFrames         = 256
)

// ErrBadRequest marks client input errors.
var ErrBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// Options configures NewRouter. Zero values disable the optional parts.
type Options struct {
	APIKeys        map[string]string
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.Metrics
	HealthCheckers map[string]middleware.HealthChecker
	Logger         *zap.Logger
	// System enables the /system/info and /system/logs routes.
	System *appsystem.Service
}

type Router struct {
	scansSvc  *appscans.Service
	diagSvc   *appdiag.Service
	systemSvc *appsystem.Service
	metrics   *middleware.Metrics
	logger    *zap.Logger
}

func NewRouter(scansSvc *appscans.Service, diagSvc *appdiag.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = middleware.NewMetrics()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := &Router{scansSvc: scansSvc, diagSvc: diagSvc, systemSvc: opts.System, metrics: metrics, logger: logger}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(logger))
	mux.Use(metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", metrics.Handler)

	mux.Route("/api/v1", func(rt chi.Router) {
		// reads are limited per remote IP
		rt.Group(func(rd chi.Router) {
			if opts.RateLimiter != nil {
				rd.Use(opts.RateLimiter.Middleware)
			}
			rd.Get("/scans", r.wrap(r.handleList))
			rd.Get("/scans/page", r.wrap(r.handlePage))
			rd.Get("/scans/statistics", r.wrap(r.handleStatistics))
			rd.Get("/scans/{id}", r.wrap(r.handleGet))
			rd.Get("/diagnoses", r.wrap(r.handleDiagnosisList))
			rd.Get("/system/threshold", r.wrap(r.handleThreshold))
			if r.systemSvc != nil {
				rd.Get("/system/info", r.wrap(r.handleSystemInfo))
				rd.Get("/system/logs", r.wrap(r.handleSystemLogs))
			}
		})

		// writes are limited per authenticated client and IP
		rt.Group(func(w chi.Router) {
			w.Use(middleware.APIKeyAuth(opts.APIKeys))
			if opts.RateLimiter != nil {
				w.Use(opts.RateLimiter.Middleware)
			}
			w.Post("/scans", r.wrap(r.handleIngest))
			w.Post("/scans/results", r.wrap(r.handleRecord))
			w.Post("/scans/archive", r.wrap(r.handleArchive))
			w.Post("/diagnoses", r.wrap(r.handleDiagnose))
			w.Post("/system/threshold", r.wrap(r.handleSetThreshold))
			if r.systemSvc != nil {
				w.Post("/system/info", r.wrap(r.handleSystemReport))
				w.Post("/system/logs", r.wrap(r.handleSystemLog))
			}
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			r.logger.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
				zap.Error(err))
		}
		_ = middleware.WriteJSON(w, code, err.Error(), nil)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, system.ErrInvalidLevel),
		errors.Is(err, system.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, diagnosis.ErrNothingToDiagnose):
		return http.StatusNotFound
	case errors.Is(err, diagnosis.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrArchiveDisabled), errors.Is(err, diagnosis.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decode(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// parseFilter reads productId, startDate, endDate and limit from the query string.
func parseFilter(req *http.Request) (domain.Filter, error) {
	q := req.URL.Query()
	f := domain.Filter{ProductID: middleware.SanitizeString(q.Get("productId"))}
	if err := middleware.ValidateProductID(f.ProductID); err != nil {
		return f, badRequest("%v", err)
	}
	for name, dst := range map[string]**domain.LocalDateTime{"startDate": &f.Start, "endDate": &f.End} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		ts, err := domain.ParseLocalDateTime(raw)
		if err != nil {
			return f, badRequest("%s: %v", name, err)
		}
		*dst = &ts
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, badRequest("endDate is before startDate")
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, badRequest("limit: %v", err)
		}
		f.Limit = middleware.ValidateLimit(n, domain.DefaultLimit, domain.MaxLimit)
	}
	return f, nil
}

func intParam(req *http.Request, name string) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s: %v", name, err)
	}
	return n, nil
}

// POST /api/v1/scans
// Body: [{"productResult":"apple_Healthy","confidence":91.5,"x":10,"y":20}, ...]
func (r *Router) handleIngest(w http.ResponseWriter, req *http.Request) error {
	var frames []domain.ScanRequest
	if err := decode(req, &frames); err != nil {
		return err
	}
	if err := middleware.ValidateBatchSize(len(frames), maxFrames); err != nil {
		return badRequest("%v", err)
	}

	res, err := r.scansSvc.Ingest(req.Context(), frames)
	if err != nil {
		return err
	}
	r.metrics.ScanRecorded(res.Scan.Succeeded())
	return middleware.WriteJSON(w, http.StatusCreated, "scan recorded", res)
}

// POST /api/v1/scans/results
// Body: one scan in its JSON form.
func (r *Router) handleRecord(w http.ResponseWriter, req *http.Request) error {
	var s domain.Result
	if err := decode(req, &s); err != nil {
		return err
	}
	if err := middleware.ValidateProductID(s.ProductID()); err != nil {
		return badRequest("%v", err)
	}
	id, err := r.scansSvc.Record(req.Context(), s)
	if err != nil {
		return err
	}
	r.metrics.ScanRecorded(s.Succeeded())
	return middleware.WriteJSON(w, http.StatusCreated, "scan recorded", map[string]any{"id": id})
}

// GET /api/v1/scans?limit=&startDate=&endDate=&productId=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	f, err := parseFilter(req)
	if err != nil {
		return err
	}
	list, err := r.scansSvc.List(req.Context(), f)
	if err != nil {
		return err
	}
	if list == nil {
		list = []domain.Result{}
	}
	return middleware.WriteJSON(w, http.StatusOK, "", list)
}

// GET /api/v1/scans/page?page=&pageSize=&startDate=&endDate=&productId=
func (r *Router) handlePage(w http.ResponseWriter, req *http.Request) error {
	f, err := parseFilter(req)
	if err != nil {
		return err
	}
	page, err := intParam(req, "page")
	if err != nil {
		return err
	}
	size, err := intParam(req, "pageSize")
	if err != nil {
		return err
	}
	p, err := r.scansSvc.Paginate(req.Context(), f, page, size)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "", p)
}

// GET /api/v1/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return badRequest("id must be numeric")
	}
	s, err := r.scansSvc.Get(req.Context(), domain.ID(id))
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "", s)
}

// GET /api/v1/scans/statistics?startDate=&endDate=&productId=
func (r *Router) handleStatistics(w http.ResponseWriter, req *http.Request) error {
	f, err := parseFilter(req)
	if err != nil {
		return err
	}
	st, err := r.scansSvc.Statistics(req.Context(), f)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "", st)
}

// POST /api/v1/scans/archive?startDate=&endDate=&productId=&limit=
func (r *Router) handleArchive(w http.ResponseWriter, req *http.Request) error {
	f, err := parseFilter(req)
	if err != nil {
		return err
	}
	res, err := r.scansSvc.Archive(req.Context(), f)
	if err != nil {
		return err
	}
	r.metrics.ArchiveWritten()
	return middleware.WriteJSON(w, http.StatusCreated, "archive written", res)
}

// POST /api/v1/diagnoses?startDate=&endDate=&productId=&limit=
func (r *Router) handleDiagnose(w http.ResponseWriter, req *http.Request) error {
	if r.diagSvc == nil {
		return diagnosis.ErrDisabled
	}
	f, err := parseFilter(req)
	if err != nil {
		return err
	}
	d, err := r.diagSvc.DiagnoseRecent(req.Context(), f)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusCreated, "diagnosis stored", d)
}

// GET /api/v1/diagnoses?page=&pageSize=
func (r *Router) handleDiagnosisList(w http.ResponseWriter, req *http.Request) error {
	if r.diagSvc == nil {
		return diagnosis.ErrDisabled
	}
	page, err := intParam(req, "page")
	if err != nil {
		return err
	}
	size, err := intParam(req, "pageSize")
	if err != nil {
		return err
	}
	list, err := r.diagSvc.List(req.Context(), page, size)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "", list)
}

// GET /api/v1/system/threshold
func (r *Router) handleThreshold(w http.ResponseWriter, req *http.Request) error {
	return middleware.WriteJSON(w, http.StatusOK, "", map[string]float64{"threshold": r.scansSvc.CurrentThreshold()})
}

// POST /api/v1/system/threshold
// Body: a plain number such as "70.0", or {"threshold":70}.
func (r *Router) handleSetThreshold(w http.ResponseWriter, req *http.Request) error {
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxThresholdBytes+1))
	if err != nil {
		return badRequest("reading body: %v", err)
	}
	if len(raw) > maxThresholdBytes {
		return badRequest("threshold body too large")
	}
	body := strings.TrimSpace(string(raw))

	var v float64
	if strings.HasPrefix(body, "{") {
		var in struct {
			Threshold *float64 `json:"threshold"`
		}
		if err := json.Unmarshal([]byte(body), &in); err != nil || in.Threshold == nil {
			return badRequest("expected {\"threshold\": <number>}")
		}
		v = *in.Threshold
	} else if v, err = strconv.ParseFloat(body, 64); err != nil {
		return badRequest("threshold must be a number, got %q", body)
	}

	if err := r.scansSvc.SetThreshold(v); err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "threshold updated", map[string]float64{"threshold": v})
}

// POST /api/v1/system/info
// Body: {"timestamp":"2024-01-01T10:00:00Z","cpuDegree":51.2,"cpuUsage":17.5,"memoryUsage":"1834/7820 MiB"}
func (r *Router) handleSystemReport(w http.ResponseWriter, req *http.Request) error {
	var st system.Status
	if err := decode(req, &st); err != nil {
		return err
	}
	stored, err := r.systemSvc.ReportStatus(req.Context(), st)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusCreated, "system status recorded", stored)
}

// GET /api/v1/system/info
func (r *Router) handleSystemInfo(w http.ResponseWriter, req *http.Request) error {
	info, err := r.systemSvc.Info(req.Context())
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, "", info)
}

// POST /api/v1/system/logs
// Body: {"timestamp":"2024-01-01T10:00:00Z","level":"INFO","message":"..."}
func (r *Router) handleSystemLog(w http.ResponseWriter, req *http.Request) error {
	var e system.LogEntry
	if err := decode(req, &e); err != nil {
		return err
	}
	stored, err := r.systemSvc.Log(req.Context(), e)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusCreated, "system log recorded", stored)
}

// logsEnvelope adds the rendered lines the desktop dashboard reads from "logs".
type logsEnvelope struct {
	middleware.Envelope
	Logs []string `json:"logs"`
}

// GET /api/v1/system/logs?level=&since=&limit=
func (r *Router) handleSystemLogs(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	var f system.LogFilter
	if raw := q.Get("level"); raw != "" {
		level, err := system.ParseLevel(raw)
		if err != nil {
			return err
		}
		f.Level = level
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest("since: %v", err)
		}
		f.Since = since
	}
	limit, err := intParam(req, "limit")
	if err != nil {
		return err
	}
	f.Limit = limit

	list, err := r.systemSvc.Logs(req.Context(), f)
	if err != nil {
		return err
	}
	lines := make([]string, len(list))
	for i, e := range list {
		lines[i] = e.Line()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(logsEnvelope{
		Envelope: middleware.Envelope{Status: http.StatusOK, Result: list},
		Logs:     lines,
	})
}
