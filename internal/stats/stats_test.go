package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/stats"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"30d", 30},
		{"7d", 7},
		{"90d", 90},
		{"365d", 90},  // clamped to the maximum
		{"", 30},      // default
		{"abc", 30},   // malformed
		{"-5d", 30},   // negative
		{"0d", 30},    // zero
		{" 14d ", 14}, // whitespace tolerated
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stats.ParsePeriod(tt.in), "ParsePeriod(%q)", tt.in)
	}
}

func outcome(result, country string, durationMs int64, createdAt time.Time) *domain.VerificationOutcome {
	return &domain.VerificationOutcome{
		Result:     result,
		Country:    country,
		DurationMs: durationMs,
		CreatedAt:  createdAt,
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	outcomes := []*domain.VerificationOutcome{
		outcome(domain.ResultSuccess, "US", 100, now.Add(-1*time.Hour)),
		outcome(domain.ResultSuccess, "US", 200, now.Add(-2*time.Hour)),
		outcome(domain.ResultFailed, "DE", 300, now.AddDate(0, 0, -1)),
		outcome(domain.ResultBlocked, "KP", 400, now.AddDate(0, 0, -2)),
		outcome(domain.ResultSuspicious, "", 500, now.AddDate(0, 0, -2)),
		// Outside the window, ignored
		outcome(domain.ResultSuccess, "US", 999, now.AddDate(0, 0, -40)),
	}

	s := stats.Aggregate(outcomes, 30, now)

	assert.Equal(t, "30d", s.Period)
	assert.Equal(t, 5, s.TotalVerifications)
	assert.Equal(t, 2, s.SuccessCount)
	assert.InDelta(t, 0.4, s.SuccessRate, 1e-9)
	assert.InDelta(t, 300.0, s.AvgDurationMs, 1e-9)

	assert.Equal(t, map[string]int{
		domain.ActionAllow:     3,
		domain.ActionBlock:     1,
		domain.ActionChallenge: 1,
	}, s.Actions)

	// Empty countries are excluded; ties break by country code
	require.Len(t, s.TopCountries, 3)
	assert.Equal(t, stats.CountryCount{Country: "US", Count: 2}, s.TopCountries[0])
	assert.Equal(t, stats.CountryCount{Country: "DE", Count: 1}, s.TopCountries[1])
	assert.Equal(t, stats.CountryCount{Country: "KP", Count: 1}, s.TopCountries[2])

	// Daily breakdown is ascending and sums to the total
	require.Len(t, s.DailyBreakdown, 3)
	sum := 0
	for i, d := range s.DailyBreakdown {
		sum += d.Count
		if i > 0 {
			assert.Less(t, s.DailyBreakdown[i-1].Date, d.Date)
		}
	}
	assert.Equal(t, s.TotalVerifications, sum)
	assert.Equal(t, "2026-08-29", s.DailyBreakdown[2].Date)
}

func TestAggregateEmpty(t *testing.T) {
	s := stats.Aggregate(nil, 30, time.Now())

	assert.Equal(t, 0, s.TotalVerifications)
	assert.Zero(t, s.SuccessRate)
	assert.Zero(t, s.AvgDurationMs)
	assert.Empty(t, s.TopCountries)
	assert.Empty(t, s.DailyBreakdown)
}
