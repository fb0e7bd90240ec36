package scans

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Frame states reported by the detector.
const (
	StateHealthy = "Healthy"
	StateRotten  = "Rotten"
)

// ScanRequest is one classified camera frame posted by the detector.
type ScanRequest struct {
	ProductResult string  `json:"productResult"`
	Confidence    float64 `json:"confidence"` // percent, 0-100
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

var ErrMalformedLabel = errors.New("malformed product result")

// ParseProductResult splits a detector label of the form "<productId>_<state>".
// The product id may itself contain underscores; the state is the last segment.
func ParseProductResult(label string) (productID, state string, err error) {
	label = strings.TrimSpace(label)
	i := strings.LastIndex(label, "_")
	if i <= 0 || i == len(label)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	productID, state = label[:i], label[i+1:]
	switch strings.ToLower(state) {
	case "healthy":
		state = StateHealthy
	case "rotten":
		state = StateRotten
	default:
		return "", "", fmt.Errorf("%w: unknown state %q", ErrMalformedLabel, state)
	}
	return productID, state, nil
}

// ErrInvalidThreshold rejects acceptance thresholds outside the score range.
var ErrInvalidThreshold = errors.New("threshold must be a number in [-100, 100]")

// ValidateThreshold checks that v can be compared against a signed health score.
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || v < -100 || v > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, v)
	}
	return nil
}

// Evaluation is the outcome of Evaluate: the stored result plus the signed
// health score the detector uses for its accept/reject decision.
type Evaluation struct {
	Result     Result
	Score      float64 // mean of +confidence (healthy) / -confidence (rotten)
	AllHealthy bool
	Accepted   bool // AllHealthy && Score >= threshold
}

// Evaluate turns a batch of frames for one product into a Result stamped at now.
// Problems with the batch produce a failed result instead of an error.
func Evaluate(frames []ScanRequest, threshold float64, now LocalDateTime) Evaluation {
	fail := func(productID, msg string) Evaluation {
		return Evaluation{Result: New(Params{
			ProductID:    productID,
			IsSuccess:    Bool(false),
			ErrorMessage: String(msg),
			Timestamp:    Time(now),
		})}
	}

	if len(frames) == 0 {
		return fail("", "empty scan batch")
	}

	var (
		productID  string
		seen       = map[string]struct{}{}
		healthy    float64
		total      float64
		score      float64
		allHealthy = true
	)
	for i, f := range frames {
		id, state, err := ParseProductResult(f.ProductResult)
		if err != nil {
			return fail(productID, fmt.Sprintf("frame %d: %v", i, err))
		}
		if f.Confidence < 0 || f.Confidence > 100 {
			return fail(id, fmt.Sprintf("frame %d: confidence %.2f outside [0, 100]", i, f.Confidence))
		}
		if productID == "" {
			productID = id
		}
		seen[id] = struct{}{}

		total += f.Confidence
		if state == StateHealthy {
			healthy += f.Confidence
			score += f.Confidence
		} else {
			allHealthy = false
			score -= f.Confidence
		}
	}

	if len(seen) > 1 {
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return fail(productID, "inconsistent product ids: "+strings.Join(ids, ", "))
	}

	ratio := 0.0
	if total > 0 {
		ratio = healthy / total
	}
	ratio = clamp01(ratio)
	score /= float64(len(frames))

	return Evaluation{
		Result: New(Params{
			ProductID:   productID,
			HealthRatio: Float(ratio),
			IsSuccess:   Bool(true),
			Timestamp:   Time(now),
		}),
		Score:      score,
		AllHealthy: allHealthy,
		Accepted:   allHealthy && score >= threshold,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
