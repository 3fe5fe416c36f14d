// Package stats aggregates the verification outcome log into time-bucketed
// summaries. Aggregation is a pure function over outcome rows; nothing here
// mutates state.
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/humanproof/humanproof/internal/domain"
)

// Period bounds. Requests outside them clamp rather than error.
const (
	DefaultPeriodDays = 30
	MaxPeriodDays     = 90
)

// CountryCount is one entry of the top-countries breakdown.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// DailyCount is one entry of the daily breakdown.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Summary is the aggregated view of a tenant's outcome log.
type Summary struct {
	Period             string         `json:"period"`
	TotalVerifications int            `json:"total_verifications"`
	SuccessCount       int            `json:"success_count"`
	SuccessRate        float64        `json:"success_rate"`
	AvgDurationMs      float64        `json:"avg_duration_ms"`
	Actions            map[string]int `json:"actions"`
	TopCountries       []CountryCount `json:"top_countries"`
	DailyBreakdown     []DailyCount   `json:"daily_breakdown"`
}

// ParsePeriod parses a period like "30d" into a day count. Malformed or
// out-of-range values fall back to the default.
func ParsePeriod(period string) int {
	s := strings.TrimSuffix(strings.TrimSpace(period), "d")
	if s == "" {
		return DefaultPeriodDays
	}
	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 {
		return DefaultPeriodDays
	}
	if days > MaxPeriodDays {
		return MaxPeriodDays
	}
	return days
}

// Aggregate summarizes outcome rows over the given day window ending at
// now. Rows outside the window are ignored. The daily breakdown is sorted
// ascending by date and its counts sum to TotalVerifications.
func Aggregate(outcomes []*domain.VerificationOutcome, days int, now time.Time) *Summary {
	since := now.AddDate(0, 0, -days)

	s := &Summary{
		Period:  fmt.Sprintf("%dd", days),
		Actions: map[string]int{},
	}

	countries := map[string]int{}
	daily := map[string]int{}
	var totalDuration int64

	for _, o := range outcomes {
		if o.CreatedAt.Before(since) || o.CreatedAt.After(now) {
			continue
		}

		s.TotalVerifications++
		if o.Result == domain.ResultSuccess {
			s.SuccessCount++
		}
		s.Actions[actionForResult(o.Result)]++
		totalDuration += o.DurationMs
		if o.Country != "" {
			countries[o.Country]++
		}
		daily[o.CreatedAt.UTC().Format("2006-01-02")]++
	}

	if s.TotalVerifications > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalVerifications)
		s.AvgDurationMs = float64(totalDuration) / float64(s.TotalVerifications)
	}

	s.TopCountries = topCountries(countries, 5)

	s.DailyBreakdown = make([]DailyCount, 0, len(daily))
	for date, count := range daily {
		s.DailyBreakdown = append(s.DailyBreakdown, DailyCount{Date: date, Count: count})
	}
	sort.Slice(s.DailyBreakdown, func(i, j int) bool {
		return s.DailyBreakdown[i].Date < s.DailyBreakdown[j].Date
	})

	return s
}

// topCountries returns the n most frequent countries, ties broken by
// country code so output is stable.
func topCountries(counts map[string]int, n int) []CountryCount {
	out := make([]CountryCount, 0, len(counts))
	for country, count := range counts {
		out = append(out, CountryCount{Country: country, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Country < out[j].Country
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func actionForResult(result string) string {
	switch result {
	case domain.ResultBlocked:
		return domain.ActionBlock
	case domain.ResultSuspicious:
		return domain.ActionChallenge
	default:
		return domain.ActionAllow
	}
}
