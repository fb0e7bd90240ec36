package scans

import "encoding/json"

// resultJSON is the wire shape shared with the desktop and mobile clients.
// Absent fields are written as null.
type resultJSON struct {
	ProductID    string         `json:"productId"`
	HealthRatio  *float64       `json:"healthRatio"`
	IsSuccess    *bool          `json:"isSuccess"`
	ErrorMessage *string        `json:"errorMessage"`
	Timestamp    *LocalDateTime `json:"timestamp"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	p := r.Params()
	return json.Marshal(resultJSON{
		ProductID:    p.ProductID,
		HealthRatio:  p.HealthRatio,
		IsSuccess:    p.IsSuccess,
		ErrorMessage: p.ErrorMessage,
		Timestamp:    p.Timestamp,
	})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var w resultJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = New(Params{
		ProductID:    w.ProductID,
		HealthRatio:  w.HealthRatio,
		IsSuccess:    w.IsSuccess,
		ErrorMessage: w.ErrorMessage,
		Timestamp:    w.Timestamp,
	})
	return nil
}
