package prompt

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
)

// Counts per failure category; Total is the number of failures seen.
type Counts struct {
	Sensor   int `json:"sensor"`
	Network  int `json:"network"`
	Detector int `json:"detector"`
	Data     int `json:"data"`
	Unknown  int `json:"unknown"`
	Total    int `json:"total"`
}

type Cause struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Summary  string `json:"summary"`
}

// Report matches the schema in GetSystemPrompt.
type Report struct {
	ProductID string  `json:"product_id"`
	Counts    Counts  `json:"counts"`
	Causes    []Cause `json:"causes"`
	Advice    string  `json:"advice"`
}

var detectors = []struct {
	category string
	re       *regexp.Regexp
	summary  string
}{
	{"sensor", regexp.MustCompile(`(?i)sensor|camera|timeout|timed out|no frame|exposure`), "Camera or sensor did not deliver usable frames."},
	{"network", regexp.MustCompile(`(?i)connect|network|refused|unreachable|socket|http`), "Detector could not reach the server reliably."},
	{"detector", regexp.MustCompile(`(?i)inconsistent product|confidence|model|inference`), "Detector output was unstable or out of range."},
	{"data", regexp.MustCompile(`(?i)malformed|empty scan batch|invalid|parse`), "Posted frames were malformed or empty."},
}

// Classify builds a Report from failure lines without calling a model.
func Classify(productID string, failures []string) Report {
	byCat := map[string]int{}
	for _, f := range failures {
		cat := "unknown"
		for _, d := range detectors {
			if d.re.MatchString(f) {
				cat = d.category
				break
			}
		}
		byCat[cat]++
	}

	r := Report{ProductID: productID}
	r.Counts = Counts{
		Sensor:   byCat["sensor"],
		Network:  byCat["network"],
		Detector: byCat["detector"],
		Data:     byCat["data"],
		Unknown:  byCat["unknown"],
		Total:    len(failures),
	}

	summaries := map[string]string{"unknown": "Failures without a recognizable cause."}
	for _, d := range detectors {
		summaries[d.category] = d.summary
	}
	for cat, n := range byCat {
		r.Causes = append(r.Causes, Cause{Category: cat, Count: n, Summary: summaries[cat]})
	}
	sort.Slice(r.Causes, func(i, j int) bool {
		if r.Causes[i].Count != r.Causes[j].Count {
			return r.Causes[i].Count > r.Causes[j].Count
		}
		return r.Causes[i].Category < r.Causes[j].Category
	})

	switch {
	case len(r.Causes) == 0:
		r.Advice = "No failures to analyze."
	case r.Causes[0].Category == "sensor":
		r.Advice = "Inspect camera mounting, lighting and cabling; most failures come from the capture stage."
	case r.Causes[0].Category == "network":
		r.Advice = "Check connectivity between the detector host and the server, and retry queued batches."
	case r.Causes[0].Category == "detector":
		r.Advice = "Review the detection model and confidence settings; frames disagree too often."
	case r.Causes[0].Category == "data":
		r.Advice = "Verify the detector's label format (<productId>_<Healthy|Rotten>) and batch assembly."
	default:
		r.Advice = "Review the raw error messages; no single cause dominates."
	}
	return r
}

// HeuristicClient implements diagnosis.Client offline, used when no API key is configured.
type HeuristicClient struct{}

func (HeuristicClient) Diagnose(_ context.Context, productID string, failures []string) (string, error) {
	b, err := json.Marshal(Classify(productID, failures))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
