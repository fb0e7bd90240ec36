package diagnosis

import "time"

// DiagnosisID identifier type
type DiagnosisID string

// Diagnosis is a model-written explanation of recent scan failures, kept for auditing.
type Diagnosis struct {
	ID        DiagnosisID `json:"id"`
	ProductID string      `json:"productId,omitempty"`
	Failures  int         `json:"failures"`
	Result    string      `json:"result"` // JSON string from the model
	CreatedAt time.Time   `json:"createdAt"`
}
