package middleware

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores process counters. The zero value is not usable; call NewMetrics.
type Metrics struct {
	requestsTotal      atomic.Uint64
	requestsInProgress atomic.Int64
	requestsSuccess    atomic.Uint64
	requestsFailed     atomic.Uint64
	scansIngested      atomic.Uint64
	scansFailed        atomic.Uint64
	archives           atomic.Uint64
	startTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// ScanRecorded counts one stored scan.
func (m *Metrics) ScanRecorded(success bool) {
	m.scansIngested.Add(1)
	if !success {
		m.scansFailed.Add(1)
	}
}

func (m *Metrics) ArchiveWritten() { m.archives.Add(1) }

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return map[string]any{
		"requests_total":       m.requestsTotal.Load(),
		"requests_in_progress": m.requestsInProgress.Load(),
		"requests_success":     m.requestsSuccess.Load(),
		"requests_failed":      m.requestsFailed.Load(),
		"scans_ingested":       m.scansIngested.Load(),
		"scans_failed":         m.scansFailed.Load(),
		"archives_written":     m.archives.Load(),
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       ms.Alloc,
			"total_alloc_bytes": ms.TotalAlloc,
			"sys_bytes":         ms.Sys,
			"num_gc":            ms.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsTotal.Add(1)
		m.requestsInProgress.Add(1)
		defer m.requestsInProgress.Add(-1)

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.requestsSuccess.Add(1)
		} else {
			m.requestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, "", m.Snapshot())
}
