package prompt

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	failures := []string{
		"[2024-01-01T10:05:00] apple: sensor timeout",
		"[2024-01-01T10:06:00] apple: camera offline",
		"[2024-01-01T10:07:00] apple: frame 1: malformed product result: \"apple\"",
		"[2024-01-01T10:08:00] apple: inconsistent product ids: apple, pear",
		"[-] apple: something odd",
	}

	r := Classify("apple", failures)

	assert.Equal(t, "apple", r.ProductID)
	assert.Equal(t, Counts{Sensor: 2, Detector: 1, Data: 1, Unknown: 1, Total: 5}, r.Counts)
	require.Len(t, r.Causes, 4)
	assert.Equal(t, "sensor", r.Causes[0].Category)
	assert.Equal(t, 2, r.Causes[0].Count)
	// ties break alphabetically
	assert.Equal(t, []string{"data", "detector", "unknown"},
		[]string{r.Causes[1].Category, r.Causes[2].Category, r.Causes[3].Category})
	assert.Contains(t, r.Advice, "camera")
}

func TestClassify_Empty(t *testing.T) {
	r := Classify("", nil)

	assert.Zero(t, r.Counts.Total)
	assert.Empty(t, r.Causes)
	assert.Equal(t, "No failures to analyze.", r.Advice)
}

func TestHeuristicClient_Diagnose(t *testing.T) {
	out, err := HeuristicClient{}.Diagnose(context.Background(), "pear", []string{"connection refused"})
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 1, r.Counts.Network)
	assert.Equal(t, "pear", r.ProductID)
}

func TestGetUserPrompt(t *testing.T) {
	p := GetUserPrompt("apple", []string{"sensor timeout", "camera offline"})

	assert.Contains(t, p, "apple")
	assert.Contains(t, p, "sensor timeout")
	assert.Contains(t, p, "camera offline")
	assert.True(t, strings.Contains(GetSystemPrompt(), "counts"))
}
