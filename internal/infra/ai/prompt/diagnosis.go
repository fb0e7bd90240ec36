package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a reliability engineer for a conveyor-belt produce scanning line. Cameras classify each product as healthy or rotten and a server records one scan per product. You receive the error messages of failed scans. Produce one valid JSON object only (no markdown, no commentary).

Requirements:
- Group the failures into causes; each cause has a category, a count, and a short summary.
- Categories: sensor, network, detector, data, unknown.
- counts.total must equal the number of failure lines you were given.
- advice is one or two sentences an operator can act on.

Schema (example with empty values):
{
  "product_id": "<string or empty>",
  "counts": {"sensor": 0, "network": 0, "detector": 0, "data": 0, "unknown": 0, "total": 0},
  "causes": [
    {"category": "<sensor|network|detector|data|unknown>", "count": 0, "summary": "<string>"}
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt lists the failures, one per line.
func GetUserPrompt(productID string, failures []string) string {
	var b strings.Builder
	if productID != "" {
		fmt.Fprintf(&b, "Product: %s\n", productID)
	}
	fmt.Fprintf(&b, "Failed scans (%d):\n", len(failures))
	for _, f := range failures {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("Respond with the JSON per schema.")
	return b.String()
}
