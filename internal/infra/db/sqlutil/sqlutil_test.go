package sqlutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

func TestDialect_Where(t *testing.T) {
	start := scans.Date(2024, time.January, 1, 0, 0, 0, 0)
	end := scans.Date(2024, time.January, 2, 0, 0, 0, 0)
	f := scans.Filter{ProductID: "apple", Start: &start, End: &end}

	where, args := Dialect{Placeholder: Dollar, EncodeTime: TimeValue}.Where(f)
	assert.Equal(t, " WHERE product_id = $1 AND scanned_at >= $2 AND scanned_at <= $3", where)
	assert.Equal(t, []any{"apple", start.Time(), end.Time()}, args)

	where, args = Dialect{Placeholder: QuestionMark, EncodeTime: TextValue}.Where(scans.Filter{Start: &start})
	assert.Equal(t, " WHERE scanned_at >= ?", where)
	assert.Equal(t, []any{"2024-01-01T00:00:00.000000"}, args)

	where, args = Dialect{Placeholder: QuestionMark, EncodeTime: TextValue}.Where(scans.Filter{})
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestDialect_InsertArgs(t *testing.T) {
	d := Dialect{Placeholder: QuestionMark, EncodeTime: TextValue}

	args := d.InsertArgs(scans.New(scans.Params{ProductID: "apple"}))
	assert.Equal(t, []any{"apple", sql.NullFloat64{}, sql.NullBool{}, sql.NullString{}, nil}, args)

	args = d.InsertArgs(scans.New(scans.Params{
		ProductID:    "apple",
		HealthRatio:  scans.Float(0.5),
		IsSuccess:    scans.Bool(false),
		ErrorMessage: scans.String("camera offline"),
		Timestamp:    scans.Time(scans.Date(2024, time.January, 1, 10, 0, 0, 5_000)),
	}))
	assert.Equal(t, []any{
		"apple",
		sql.NullFloat64{Float64: 0.5, Valid: true},
		sql.NullBool{Bool: false, Valid: true},
		sql.NullString{String: "camera offline", Valid: true},
		"2024-01-01T10:00:00.000005",
	}, args)
}

func TestNullLocalDateTime_Scan(t *testing.T) {
	want := scans.Date(2024, time.January, 1, 10, 5, 0, 0)

	tests := []struct {
		name string
		src  any
	}{
		{"time", time.Date(2024, time.January, 1, 10, 5, 0, 0, time.UTC)},
		{"text", "2024-01-01T10:05:00.000000"},
		{"bytes with space", []byte("2024-01-01 10:05:00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n NullLocalDateTime
			require.NoError(t, n.Scan(tt.src))
			assert.True(t, n.Valid)
			assert.Equal(t, want, n.Value)
		})
	}

	var n NullLocalDateTime
	require.NoError(t, n.Scan(nil))
	assert.False(t, n.Valid)
	assert.Error(t, n.Scan(42))
}

func TestDialect_TimestampRoundTrip(t *testing.T) {
	values := []scans.LocalDateTime{
		scans.Date(2024, time.January, 1, 10, 0, 0, 0),
		scans.Date(2024, time.March, 9, 23, 59, 59, 999_999_000),
		scans.Date(2024, time.January, 1, 10, 0, 0, 123_456_789),
		scans.NewLocalDateTime(time.Date(2024, time.June, 5, 8, 30, 0, 1, time.FixedZone("TRT", 3*60*60))),
	}
	dialects := map[string]Dialect{
		"mysql":    {Placeholder: QuestionMark, EncodeTime: TimeValue},
		"postgres": {Placeholder: Dollar, EncodeTime: TimeValue},
		"sqlite":   {Placeholder: QuestionMark, EncodeTime: TextValue},
	}
	for name, d := range dialects {
		for _, ts := range values {
			t.Run(name+"/"+ts.String(), func(t *testing.T) {
				var n NullLocalDateTime
				require.NoError(t, n.Scan(storedAs(d.EncodeTime(ts))))
				require.True(t, n.Valid)
				assert.Equal(t, ts, n.Value)

				r := scans.New(scans.Params{ProductID: "apple", Timestamp: scans.Time(ts)})
				back := scans.New(scans.Params{ProductID: "apple", Timestamp: scans.Time(n.Value)})
				assert.True(t, r.Equal(back))
			})
		}
	}
}

// storedAs mimics a microsecond column: drivers hand back what the column kept.
func storedAs(v any) any {
	if tv, ok := v.(time.Time); ok {
		return tv.Round(time.Microsecond)
	}
	return v
}
