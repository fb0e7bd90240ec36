package diagnosis

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNothingToDiagnose is returned when the filter matches no failed scans.
var ErrNothingToDiagnose = errors.New("no failed scans to diagnose")

// ErrDisabled is returned when no AI client is configured.
var ErrDisabled = errors.New("diagnosis not configured")
