package scans

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	localDateTimeLayout = "2006-01-02T15:04:05"
	localMinuteLayout   = "2006-01-02T15:04"
)

// Precision is the finest unit a LocalDateTime keeps. It matches DATETIME(6)
// and TIMESTAMP(6), so values survive every storage adapter unchanged.
const Precision = time.Microsecond

// LocalDateTime is a date and wall-clock time without a zone, truncated to Precision.
// The zero value is the zero instant; presence is tracked by Result.
type LocalDateTime struct {
	t time.Time
}

// NewLocalDateTime keeps the wall clock of t and drops its location.
func NewLocalDateTime(t time.Time) LocalDateTime {
	return Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond())
}

// Date builds a LocalDateTime from its fields. Sub-microsecond digits are dropped.
func Date(year int, month time.Month, day, hour, min, sec, nsec int) LocalDateTime {
	return LocalDateTime{t: time.Date(year, month, day, hour, min, sec, nsec, time.UTC).Truncate(Precision)}
}

// ParseLocalDateTime accepts "2006-01-02T15:04:05" with an optional fraction,
// and the short "2006-01-02T15:04" form.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(localDateTimeLayout, s, time.UTC); err == nil {
		return LocalDateTime{t: t.Truncate(Precision)}, nil
	}
	if t, err := time.ParseInLocation(localMinuteLayout, s, time.UTC); err == nil {
		return LocalDateTime{t: t}, nil
	}
	return LocalDateTime{}, fmt.Errorf("invalid local date-time %q", s)
}

// Time returns the wall clock as a UTC time.Time, which is what the SQL drivers store.
func (l LocalDateTime) Time() time.Time { return l.t }

// In interprets the wall clock in loc.
func (l LocalDateTime) In(loc *time.Location) time.Time {
	return time.Date(l.t.Year(), l.t.Month(), l.t.Day(),
		l.t.Hour(), l.t.Minute(), l.t.Second(), l.t.Nanosecond(), loc)
}

func (l LocalDateTime) IsZero() bool { return l.t.IsZero() }

func (l LocalDateTime) Before(o LocalDateTime) bool { return l.t.Before(o.t) }

func (l LocalDateTime) After(o LocalDateTime) bool { return l.t.After(o.t) }

// String renders the ISO-8601 local form; the fraction is printed only when non-zero.
func (l LocalDateTime) String() string {
	s := l.t.Format(localDateTimeLayout)
	if ns := l.t.Nanosecond(); ns != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", ns), "0")
		s += "." + frac
	}
	return s
}

func (l LocalDateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LocalDateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("local date-time must be a string: %w", err)
	}
	v, err := ParseLocalDateTime(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}
