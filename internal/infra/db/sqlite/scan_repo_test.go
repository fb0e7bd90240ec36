package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

func newTestScanRepo(t *testing.T) *ScanRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewScanRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	// Migrate is idempotent
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func at(minute int) domain.LocalDateTime {
	return domain.Date(2024, time.January, 1, 10, minute, 0, 0)
}

func TestScanRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestScanRepo(t)

	tests := []struct {
		name string
		r    domain.Result
	}{
		{"full success", domain.New(domain.Params{
			ProductID:   "SKU-1001",
			HealthRatio: domain.Float(0.92),
			IsSuccess:   domain.Bool(true),
			Timestamp:   domain.Time(at(0)),
		})},
		{"failure", domain.New(domain.Params{
			ProductID:    "SKU-1002",
			IsSuccess:    domain.Bool(false),
			ErrorMessage: domain.String("sensor timeout"),
			Timestamp:    domain.Time(at(5)),
		})},
		{"all absent", domain.New(domain.Params{ProductID: "SKU-1003"})},
		{"fractional timestamp", domain.New(domain.Params{
			ProductID: "SKU-1004",
			Timestamp: domain.Time(domain.Date(2024, time.February, 29, 23, 59, 59, 123456789)),
		})},
		{"empty message", domain.New(domain.Params{
			ProductID:    "SKU-1005",
			ErrorMessage: domain.String(""),
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := repo.Save(ctx, tt.r)
			require.NoError(t, err)
			assert.Positive(t, int64(id))

			got, err := repo.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, tt.r.Equal(got), "want %+v, got %+v", tt.r.Params(), got.Params())
		})
	}
}

func TestScanRepository_GetNotFound(t *testing.T) {
	repo := newTestScanRepo(t)

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func seedScans(t *testing.T, repo *ScanRepository) {
	t.Helper()
	ctx := context.Background()
	for i, r := range []domain.Result{
		domain.New(domain.Params{ProductID: "apple", IsSuccess: domain.Bool(true), HealthRatio: domain.Float(0.9), Timestamp: domain.Time(at(1))}),
		domain.New(domain.Params{ProductID: "pear", IsSuccess: domain.Bool(true), HealthRatio: domain.Float(0.4), Timestamp: domain.Time(at(2))}),
		domain.New(domain.Params{ProductID: "apple", IsSuccess: domain.Bool(false), ErrorMessage: domain.String("camera offline"), Timestamp: domain.Time(at(3))}),
		domain.New(domain.Params{ProductID: "apple"}),
		domain.New(domain.Params{ProductID: "apple", IsSuccess: domain.Bool(true), HealthRatio: domain.Float(1), Timestamp: domain.Time(at(4))}),
	} {
		_, err := repo.Save(ctx, r)
		require.NoError(t, err, "seed %d", i)
	}
}

func productsOf(list []domain.Result) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ProductID())
	}
	return out
}

func TestScanRepository_ListNewestFirst(t *testing.T) {
	repo := newTestScanRepo(t)
	seedScans(t, repo)

	list, err := repo.List(context.Background(), domain.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 5)

	var minutes []int
	for _, r := range list[:4] {
		ts, ok := r.Timestamp()
		require.True(t, ok)
		minutes = append(minutes, ts.Time().Minute())
	}
	assert.Equal(t, []int{4, 3, 2, 1}, minutes)

	_, ok := list[4].Timestamp()
	assert.False(t, ok, "undated scans sort last")
}

func TestScanRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestScanRepo(t)
	seedScans(t, repo)

	start, end := at(2), at(3)
	tests := []struct {
		name string
		f    domain.Filter
		want []string
	}{
		{"product", domain.Filter{ProductID: "pear"}, []string{"pear"}},
		{"range", domain.Filter{Start: &start, End: &end}, []string{"apple", "pear"}},
		{"start only", domain.Filter{Start: &end}, []string{"apple", "apple"}},
		{"product and range", domain.Filter{ProductID: "apple", Start: &start}, []string{"apple", "apple"}},
		{"limit", domain.Filter{Limit: 2}, []string{"apple", "apple"}},
		{"no match", domain.Filter{ProductID: "plum"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.List(ctx, tt.f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, productsOf(list))
		})
	}
}

func TestScanRepository_Paginate(t *testing.T) {
	ctx := context.Background()
	repo := newTestScanRepo(t)
	seedScans(t, repo)

	p, err := repo.Paginate(ctx, domain.Filter{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, p.Data, 2)
	assert.Equal(t, int64(5), p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p, err = repo.Paginate(ctx, domain.Filter{}, 3, 2)
	require.NoError(t, err)
	assert.Len(t, p.Data, 1)

	p, err = repo.Paginate(ctx, domain.Filter{ProductID: "apple"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.Total)
	assert.Len(t, p.Data, 4)

	p, err = repo.Paginate(ctx, domain.Filter{ProductID: "plum"}, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, p.Data)
	assert.Empty(t, p.Data)
	assert.Equal(t, 0, p.TotalPages)
}
