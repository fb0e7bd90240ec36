package scans

// ID is the storage key assigned by a Repository. It is not part of Result.
type ID int64

// Result is the outcome of one product scan on the belt.
//
// A Result is immutable: fields are unexported and every modifier returns a
// copy. It is a comparable value, so two results with the same fields are ==.
type Result struct {
	productID string

	healthRatio    float64
	hasHealthRatio bool

	success    bool
	hasSuccess bool

	errorMessage    string
	hasErrorMessage bool

	timestamp    LocalDateTime
	hasTimestamp bool
}

// Params carries the construction inputs for New. Nil pointers mean absent.
type Params struct {
	ProductID    string
	HealthRatio  *float64
	IsSuccess    *bool
	ErrorMessage *string
	Timestamp    *LocalDateTime
}

// New builds a Result. It accepts any combination of fields and never fails.
func New(p Params) Result {
	r := Result{productID: p.ProductID}
	if p.HealthRatio != nil {
		r.healthRatio, r.hasHealthRatio = *p.HealthRatio, true
	}
	if p.IsSuccess != nil {
		r.success, r.hasSuccess = *p.IsSuccess, true
	}
	if p.ErrorMessage != nil {
		r.errorMessage, r.hasErrorMessage = *p.ErrorMessage, true
	}
	if p.Timestamp != nil {
		r.timestamp, r.hasTimestamp = *p.Timestamp, true
	}
	return r
}

// Params returns fresh construction inputs equal to r's fields.
func (r Result) Params() Params {
	p := Params{ProductID: r.productID}
	if r.hasHealthRatio {
		v := r.healthRatio
		p.HealthRatio = &v
	}
	if r.hasSuccess {
		v := r.success
		p.IsSuccess = &v
	}
	if r.hasErrorMessage {
		v := r.errorMessage
		p.ErrorMessage = &v
	}
	if r.hasTimestamp {
		v := r.timestamp
		p.Timestamp = &v
	}
	return p
}

func (r Result) ProductID() string { return r.productID }

func (r Result) HealthRatio() (float64, bool) { return r.healthRatio, r.hasHealthRatio }

func (r Result) IsSuccess() (bool, bool) { return r.success, r.hasSuccess }

func (r Result) ErrorMessage() (string, bool) { return r.errorMessage, r.hasErrorMessage }

func (r Result) Timestamp() (LocalDateTime, bool) { return r.timestamp, r.hasTimestamp }

// Succeeded reports true only when isSuccess is present and true.
func (r Result) Succeeded() bool { return r.hasSuccess && r.success }

// Equal reports structural equality.
func (r Result) Equal(o Result) bool { return r == o }

func (r Result) WithProductID(id string) Result {
	r.productID = id
	return r
}

func (r Result) WithHealthRatio(v float64) Result {
	r.healthRatio, r.hasHealthRatio = v, true
	return r
}

func (r Result) WithoutHealthRatio() Result {
	r.healthRatio, r.hasHealthRatio = 0, false
	return r
}

func (r Result) WithSuccess(v bool) Result {
	r.success, r.hasSuccess = v, true
	return r
}

func (r Result) WithErrorMessage(msg string) Result {
	r.errorMessage, r.hasErrorMessage = msg, true
	return r
}

func (r Result) WithTimestamp(ts LocalDateTime) Result {
	r.timestamp, r.hasTimestamp = ts, true
	return r
}

// SoftCheck lists usage-contract violations without rejecting the value.
// An empty slice means the result looks well formed.
func (r Result) SoftCheck() []string {
	var issues []string
	if r.productID == "" {
		issues = append(issues, "productId is empty")
	}
	if r.hasHealthRatio && (r.healthRatio < 0 || r.healthRatio > 1) {
		issues = append(issues, "healthRatio outside [0, 1]")
	}
	if r.hasSuccess && !r.success && (!r.hasErrorMessage || r.errorMessage == "") {
		issues = append(issues, "failed scan without errorMessage")
	}
	if r.hasSuccess && r.success && r.hasErrorMessage {
		issues = append(issues, "successful scan carries errorMessage")
	}
	return issues
}

// Float, Bool, String and Time return pointers for Params literals.
func Float(v float64) *float64 { return &v }

func Bool(v bool) *bool { return &v }

func String(v string) *string { return &v }

func Time(v LocalDateTime) *LocalDateTime { return &v }
