// Package system models the health reports the detector host sends next to its scans.
package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is one resource snapshot of the detector host.
type Status struct {
	Timestamp   time.Time   `json:"timestamp"`
	CPUDegree   float64     `json:"cpuDegree"`
	CPUUsage    float64     `json:"cpuUsage"`
	MemoryUsage MemoryUsage `json:"memoryUsage"`
}

// MemoryUsage is free text such as "1834/7820 MiB". Numbers are accepted too.
type MemoryUsage string

func (m *MemoryUsage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = MemoryUsage(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return errors.New("memoryUsage must be a string or a number")
	}
	*m = MemoryUsage(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Level is the severity of a LogEntry.
type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// ParseLevel is case-insensitive and accepts WARN for WARNING. Empty means INFO.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// LogEntry is a message the detector host wants shown on the dashboards.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Line renders the entry for list widgets: "2024-01-01T10:00:00Z [INFO] message".
func (e LogEntry) Line() string {
	return fmt.Sprintf("%s [%s] %s", e.Timestamp.UTC().Format(time.RFC3339), e.Level, e.Message)
}

// LogFilter selects stored log entries.
type LogFilter struct {
	Level Level     // empty means every level
	Since time.Time // zero means no lower bound; exclusive
	Limit int
}

// Info is what dashboards read from GET /system/info.
type Info struct {
	*Status
	CPUTemperature *float64 `json:"cpuTemperature,omitempty"`
	State          string   `json:"status"`
}

const (
	StateActive   = "ACTIVE"
	StateInactive = "INACTIVE"
)

// NewInfo reports the host as active when s is newer than staleAfter at now.
func NewInfo(s *Status, now time.Time, staleAfter time.Duration) Info {
	if s == nil {
		return Info{State: StateInactive}
	}
	deg := s.CPUDegree
	info := Info{Status: s, CPUTemperature: &deg, State: StateActive}
	if staleAfter > 0 && now.Sub(s.Timestamp) > staleAfter {
		info.State = StateInactive
	}
	return info
}
