package scans

import "sort"

// ProductStatistics aggregates results for a single product.
type ProductStatistics struct {
	ProductID          string   `json:"productId"`
	TotalScans         int      `json:"totalScans"`
	SuccessfulScans    int      `json:"successfulScans"`
	FailedScans        int      `json:"failedScans"`
	AverageHealthRatio *float64 `json:"averageHealthRatio"`
}

// Statistics is the summary served to the dashboards.
type Statistics struct {
	TotalScans         int                 `json:"totalScans"`
	SuccessfulScans    int                 `json:"successfulScans"`
	FailedScans        int                 `json:"failedScans"`
	AverageHealthRatio *float64            `json:"averageHealthRatio"`
	ProductStatistics  []ProductStatistics `json:"productStatistics"`
}

type healthAcc struct {
	sum float64
	n   int
}

func (a *healthAcc) add(r Result) {
	if v, ok := r.HealthRatio(); ok {
		a.sum += v
		a.n++
	}
}

func (a healthAcc) mean() *float64 {
	if a.n == 0 {
		return nil
	}
	v := a.sum / float64(a.n)
	return &v
}

// Compute summarizes results. A result without isSuccess counts as failed.
func Compute(results []Result) Statistics {
	var (
		st       Statistics
		overall  healthAcc
		byID     = map[string]*ProductStatistics{}
		byHealth = map[string]*healthAcc{}
	)
	for _, r := range results {
		ps, ok := byID[r.ProductID()]
		if !ok {
			ps = &ProductStatistics{ProductID: r.ProductID()}
			byID[r.ProductID()] = ps
			byHealth[r.ProductID()] = &healthAcc{}
		}
		st.TotalScans++
		ps.TotalScans++
		if r.Succeeded() {
			st.SuccessfulScans++
			ps.SuccessfulScans++
		} else {
			st.FailedScans++
			ps.FailedScans++
		}
		overall.add(r)
		byHealth[r.ProductID()].add(r)
	}

	st.AverageHealthRatio = overall.mean()
	st.ProductStatistics = make([]ProductStatistics, 0, len(byID))
	for id, ps := range byID {
		ps.AverageHealthRatio = byHealth[id].mean()
		st.ProductStatistics = append(st.ProductStatistics, *ps)
	}
	sort.Slice(st.ProductStatistics, func(i, j int) bool {
		return st.ProductStatistics[i].ProductID < st.ProductStatistics[j].ProductID
	})
	return st
}
