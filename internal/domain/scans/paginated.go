package scans

import "math"

const (
	DefaultLimit    = 100
	MaxLimit        = 1000
	DefaultPageSize = 20
)

// Filter narrows List and Paginate. Zero fields do not filter.
type Filter struct {
	ProductID string
	Start     *LocalDateTime
	End       *LocalDateTime
	Limit     int
}

// NormalizedLimit applies the default and the upper bound.
func (f Filter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

// Page represents a paginated response with data and metadata
type Page struct {
	Data       []Result `json:"data"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}

// NormalizePage returns page and pageSize with defaults applied.
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxLimit {
		pageSize = MaxLimit
	}
	return page, pageSize
}

// NewPage fills the pagination metadata.
func NewPage(data []Result, page, pageSize int, total int64) Page {
	if data == nil {
		data = []Result{}
	}
	return Page{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}
