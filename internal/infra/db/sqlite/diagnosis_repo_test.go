package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
)

func TestDiagnosisRepository_SaveAndPaginate(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewDiagnosisRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	base := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, &domain.Diagnosis{
			ID:        domain.DiagnosisID(id),
			ProductID: "apple",
			Failures:  i + 1,
			Result:    `{"summary":"` + id + `"}`,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := repo.Paginate(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.DiagnosisID("c"), list[0].ID)
	assert.Equal(t, domain.DiagnosisID("b"), list[1].ID)
	assert.Equal(t, 3, list[0].Failures)
	assert.True(t, list[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	list, err = repo.Paginate(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.DiagnosisID("a"), list[0].ID)
}

func TestDiagnosisRepository_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewDiagnosisRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	d := &domain.Diagnosis{ID: "x", Failures: 1, Result: ""}
	require.NoError(t, repo.Save(ctx, d))
	d.Failures = 7
	require.NoError(t, repo.Save(ctx, d))

	list, err := repo.Paginate(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].Failures)
	assert.Equal(t, "{}", list[0].Result)
}
