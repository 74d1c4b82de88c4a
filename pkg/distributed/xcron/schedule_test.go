package xcron

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Parse
// ============================================================================

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"three fields", "*/5 * *", "*/5 * * * * *"},
		{"six fields", "0 30 9 * * mon-fri", "0 30 9 * * mon-fri"},
		{"tabs and extra spaces", " 12\t*   * ", "12 * * * * *"},
		{"list and range", "0,15,30-35 * *", "0,15,30-35 * * * * *"},
		{"month names", "0 0 0 1 Jan,March,dec *", "0 0 0 1 Jan,March,dec *"},
		{"full short name", "0 0 0 * may *", "0 0 0 * may *"},
		{"weekday range", "0 0 0 * * MON-Fri", "0 0 0 * * MON-Fri"},
		{"step on day", "0 0 0 */31 * *", "0 0 0 */31 * *"},
		{"step on month", "0 0 0 1 */3 *", "0 0 0 1 */3 *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want error
	}{
		{"empty", "", ErrInvalidExpression},
		{"blank", "  \t ", ErrInvalidExpression},
		{"one field", "*", ErrFieldCount},
		{"four fields", "* * * *", ErrFieldCount},
		{"seven fields", "* * * * * * *", ErrFieldCount},
		{"second out of range", "60 * *", ErrOutOfRange},
		{"hour out of range", "0 0 24", ErrOutOfRange},
		{"day zero", "0 0 0 0 * *", ErrOutOfRange},
		{"month 13", "0 0 0 * 13 *", ErrOutOfRange},
		{"weekday zero", "0 0 0 * * 0", ErrOutOfRange},
		{"weekday eight", "0 0 0 * * 8", ErrOutOfRange},
		{"step zero", "*/0 * *", ErrInvalidStep},
		{"step too large", "*/60 * *", ErrInvalidStep},
		{"step not a number", "*/x * *", ErrInvalidStep},
		{"step in list", "*/5,7 * *", ErrInvalidStep},
		{"reversed range", "30-10 * *", ErrInvalidRange},
		{"reversed name range", "0 0 0 * * fri-mon", ErrInvalidRange},
		{"two letter prefix", "0 0 0 * ja *", ErrUnknownName},
		{"unknown month", "0 0 0 * foo *", ErrUnknownName},
		{"name in second field", "mon * *", ErrInvalidExpression},
		{"empty list element", "1,,2 * *", ErrInvalidExpression},
		{"trailing comma", "1, * *", ErrInvalidExpression},
		{"open range", "1- * *", ErrInvalidExpression},
		{"garbage", "1x * *", ErrInvalidExpression},
		{"negative", "-1 * *", ErrInvalidExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Parse(tt.expr)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestMustParse(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { MustParse("*/5 * *") })
	assert.Panics(t, func() { MustParse("bad") })
}

// ============================================================================
// Matches
// ============================================================================

func TestMatches_EveryFiveSeconds(t *testing.T) {
	t.Parallel()

	s := MustParse("*/5 * *")
	base := time.Date(2024, 3, 15, 10, 20, 0, 0, time.UTC)
	for sec := 0; sec < 60; sec++ {
		ts := base.Add(time.Duration(sec) * time.Second)
		assert.Equal(t, sec%5 == 0, s.Matches(ts), "second %d", sec)
	}
}

func TestMatches_AtSecondTwelve(t *testing.T) {
	t.Parallel()

	s := MustParse("12 * *")
	base := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	for sec := 0; sec < 60; sec++ {
		ts := base.Add(time.Duration(sec) * time.Second)
		assert.Equal(t, sec == 12, s.Matches(ts), "second %d", sec)
	}
}

func TestMatches_Fields(t *testing.T) {
	t.Parallel()

	// 2024-01-07 是周日，2024-01-08 是周一
	sunday := time.Date(2024, 1, 7, 9, 30, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		at   time.Time
		want bool
	}{
		{"sunday is 7", "0 30 9 * * 7", sunday, true},
		{"sunday by name", "0 30 9 * * Sunday", sunday, true},
		{"monday is 1", "0 30 9 * * 1", monday, true},
		{"weekday range excludes sunday", "0 30 9 * * mon-fri", sunday, false},
		{"weekday range includes monday", "0 30 9 * * mon-fri", monday, true},
		{"month name", "0 30 9 * jan *", monday, true},
		{"month range", "0 30 9 * feb-dec *", monday, false},
		{"day of month", "0 30 9 8 * *", monday, true},
		{"day step", "0 30 9 */4 * *", monday, true},
		{"day step miss", "0 30 9 */4 * *", sunday, false},
		{"hour miss", "0 30 10 * * *", monday, false},
		{"minute list", "0 0,30 9", monday, true},
		{"second miss", "1 30 9", monday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MustParse(tt.expr).Matches(tt.at))
		})
	}
}

func TestMatchesMillis(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("UTC+8", 8*3600)
	// 01:00:12 UTC == 09:00:12 UTC+8
	ms := time.Date(2024, 5, 1, 1, 0, 12, 500_000_000, time.UTC).UnixMilli()

	assert.True(t, MustParse("12 0 9").MatchesMillis(ms, shanghai))
	assert.False(t, MustParse("12 0 9").MatchesMillis(ms, time.UTC))
	assert.True(t, MustParse("12 0 1").MatchesMillis(ms, time.UTC))
	assert.True(t, MustParse("12 * *").MatchesMillis(ms, nil))
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	const expr = "*/7 0-30,45 */2 1-20 jan-oct mon,wed-sat"
	a := MustParse(expr)
	b := MustParse(expr)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := ts.AddDate(0, 0, 14)
	for ; ts.Before(end); ts = ts.Add(13 * time.Second) {
		require.Equal(t, a.Matches(ts), b.Matches(ts), "diverged at %s", ts)
	}
}
