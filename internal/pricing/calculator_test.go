package pricing

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestCalculator() *Calculator {
	return NewCalculator(Standard, func() time.Time { return fixedNow })
}

func TestQuoteScenarios(t *testing.T) {
	calc := newTestCalculator()
	hundred := decimal.NewFromInt(100)

	tests := []struct {
		name      string
		age       time.Duration
		wantPrice int64
		wantIntv  int64
	}{
		{"fresh listing", 0, 102, 0},
		{"one interval", 20 * time.Hour, 82, 1},
		{"five intervals", 100 * time.Hour, 33, 5},
		{"twenty intervals", 400 * time.Hour, 1, 20},
		{"twenty three intervals", 460 * time.Hour, 1, 23},
		{"rounds to zero", 480 * time.Hour, 0, 24},
		{"just before first interval", 20*time.Hour - time.Millisecond, 102, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := calc.Quote(Input{BasePrice: hundred, CreatedAt: fixedNow.Add(-tt.age)})
			assert.Equal(t, tt.wantPrice, q.EffectivePrice)
			assert.Equal(t, tt.wantIntv, q.Intervals)
		})
	}
}

func TestQuoteMissingCreatedAtIsFresh(t *testing.T) {
	calc := newTestCalculator()

	q := calc.Quote(Input{BasePrice: decimal.NewFromInt(100)})

	assert.Equal(t, Quote{EffectivePrice: 102, Intervals: 0}, q)
	assert.True(t, q.Live())
}

func TestQuoteFutureTimestampClampsToZeroIntervals(t *testing.T) {
	calc := newTestCalculator()

	q := calc.Quote(Input{BasePrice: decimal.NewFromInt(100), CreatedAt: fixedNow.Add(72 * time.Hour)})

	assert.Equal(t, int64(0), q.Intervals)
	assert.Equal(t, int64(102), q.EffectivePrice)
}

func TestQuoteNonPositivePrice(t *testing.T) {
	calc := newTestCalculator()

	for _, base := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-40)} {
		q := calc.Quote(Input{BasePrice: base, CreatedAt: fixedNow})
		assert.Equal(t, int64(0), q.EffectivePrice)
		assert.False(t, q.Live())
	}
}

func TestQuoteHugeAge(t *testing.T) {
	calc := newTestCalculator()

	q := calc.Quote(Input{BasePrice: decimal.RequireFromString("99999999.99"), CreatedAt: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)})

	assert.Equal(t, int64(0), q.EffectivePrice)
	assert.Greater(t, q.Intervals, int64(maxExactIntervals))
}

func TestQuoteIsMonotonic(t *testing.T) {
	calc := newTestCalculator()
	created := fixedNow.Add(-1000 * time.Hour)

	for _, base := range []string{"0.49", "1", "7.5", "100", "2500.25", "99999999.99"} {
		in := Input{BasePrice: decimal.RequireFromString(base), CreatedAt: created}
		prev := calc.QuoteAt(in, created)
		for step := 1; step <= 600; step++ {
			now := created.Add(time.Duration(step) * 3 * time.Hour)
			q := calc.QuoteAt(in, now)
			require.LessOrEqualf(t, q.EffectivePrice, prev.EffectivePrice, "base=%s step=%d", base, step)
			require.GreaterOrEqual(t, q.EffectivePrice, int64(0))
			require.GreaterOrEqual(t, q.Intervals, prev.Intervals)
			prev = q
		}
	}
}

func TestQuoteOnlyChangesAtIntervalBoundaries(t *testing.T) {
	calc := newTestCalculator()
	created := fixedNow
	in := Input{BasePrice: decimal.NewFromInt(250), CreatedAt: created}

	for k := int64(0); k < 10; k++ {
		start := calc.QuoteAt(in, created.Add(time.Duration(k)*20*time.Hour))
		end := calc.QuoteAt(in, created.Add(time.Duration(k+1)*20*time.Hour-time.Second))
		assert.Equal(t, start, end, "interval %d", k)
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	calc := newTestCalculator()
	in := Input{BasePrice: decimal.RequireFromString("37.40"), CreatedAt: fixedNow.Add(-137 * time.Hour)}

	first := calc.Quote(in)
	second := calc.Quote(in)

	assert.Equal(t, first, second)
}

func TestIntervalsMatchesFloorOfHours(t *testing.T) {
	calc := newTestCalculator()

	for _, hours := range []float64{0, 0.5, 19.99, 20, 39.9, 40, 123.4, 999} {
		created := fixedNow.Add(-time.Duration(hours * float64(time.Hour)))
		want := int64(math.Floor(hours / 20))
		assert.Equal(t, want, calc.Intervals(created, fixedNow), "hours=%v", hours)
	}
	assert.Equal(t, int64(0), calc.Intervals(fixedNow.Add(time.Hour), fixedNow))
}

func TestConsumerPriceAndElapsedHours(t *testing.T) {
	calc := newTestCalculator()

	assert.True(t, decimal.RequireFromString("45.90").Equal(calc.ConsumerPrice(decimal.NewFromInt(45))))
	assert.True(t, calc.ConsumerPrice(decimal.NewFromInt(-1)).IsZero())
	assert.Equal(t, int64(480), calc.ElapsedHours(24))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"float", 12.5, "12.5"},
		{"int", 40, "40"},
		{"numeric string", " 19.99 ", "19.99"},
		{"json number", json.Number("7.25"), "7.25"},
		{"garbage string", "twelve", "0"},
		{"negative", -3.0, "0"},
		{"nan", math.NaN(), "0"},
		{"nil", nil, "0"},
		{"bool", true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.in)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), ParseTimestamp("2025-03-01T10:30:00Z"))
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 123456000, time.UTC), ParseTimestamp("2025-03-01T10:30:00.123456"))
	assert.True(t, ParseTimestamp("2025-03-01T12:30:00+02:00").Equal(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)))
	assert.True(t, ParseTimestamp("").IsZero())
	assert.True(t, ParseTimestamp("yesterday").IsZero())
}
