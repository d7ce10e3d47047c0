// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"math"
	"slices"

	"github.com/bassosimone/runtimex"
)

// PerformanceStats contains latency statistics in milliseconds.
//
// When Valid is false there were no resolved outcomes with a latency and
// all the other fields are absent, which is not the same as zero.
type PerformanceStats struct {
	Min    float64
	Max    float64
	Median float64
	Mean   float64
	Count  int
	Valid  bool
}

// ComputePerformanceStats computes latency statistics over the outcomes
// with [StatusResolved] and a valid latency. Non-finite latencies are ignored.
func ComputePerformanceStats(outcomes []Outcome) PerformanceStats {
	samples := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		ms := o.Latency.Millis
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			continue
		}
		if o.Status == StatusResolved && o.Latency.Valid {
			samples = append(samples, o.Latency.Millis)
		}
	}
	if len(samples) <= 0 {
		return PerformanceStats{}
	}
	slices.Sort(samples)

	var sum float64
	for _, v := range samples {
		sum += v
	}

	stats := PerformanceStats{
		Min:   samples[0],
		Max:   samples[len(samples)-1],
		Mean:  sum / float64(len(samples)),
		Count: len(samples),
		Valid: true,
	}
	if mid := len(samples) / 2; len(samples)%2 == 1 {
		stats.Median = samples[mid]
	} else {
		stats.Median = (samples[mid-1] + samples[mid]) / 2
	}
	runtimex.Assert(stats.Min <= stats.Median && stats.Median <= stats.Max)
	return stats
}

// BlockingStats contains overall blocking statistics.
type BlockingStats struct {
	// Total is the number of outcomes.
	Total int

	// Resolved is the number of [StatusResolved] outcomes.
	Resolved int

	// Blocked is the number of [StatusBlocked] outcomes.
	Blocked int

	// Errors is the number of [StatusError] outcomes.
	Errors int

	// BlockedPercentage is Blocked/(Resolved+Blocked)*100 or 0.
	BlockedPercentage float64

	// ErrorRate is Errors/Total*100 or 0.
	ErrorRate float64
}

// ComputeBlockingStats computes overall blocking statistics.
//
// Errors are excluded from the blocked percentage denominator.
func ComputeBlockingStats(outcomes []Outcome) BlockingStats {
	var stats BlockingStats
	for _, o := range outcomes {
		switch o.Status {
		case StatusResolved:
			stats.Resolved++
		case StatusBlocked:
			stats.Blocked++
		case StatusError:
			stats.Errors++
		}
	}
	stats.Total = len(outcomes)
	stats.BlockedPercentage = percentage(stats.Blocked, stats.Resolved+stats.Blocked)
	stats.ErrorRate = percentage(stats.Errors, stats.Total)
	return stats
}

// percentage returns part/whole*100 or zero when whole is zero.
func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// CategoryBlockingStats contains the blocking statistics of a category.
type CategoryBlockingStats struct {
	// Category is the domain category.
	Category DomainCategory

	// NonError is the number of resolved plus blocked outcomes.
	NonError int

	// Blocked is the number of blocked outcomes.
	Blocked int

	// BlockedPercentage is Blocked/NonError*100 or 0.
	BlockedPercentage float64
}

// ComputeCategorizedBlockingStats computes blocking statistics for each
// of the given categories, returned in the same order.
func ComputeCategorizedBlockingStats(outcomes []Outcome, categories []DomainCategory) []CategoryBlockingStats {
	type counters struct{ resolved, blocked int }
	byCategory := make(map[DomainCategory]*counters, len(categories))
	for _, c := range categories {
		byCategory[c] = &counters{}
	}
	for _, o := range outcomes {
		cnt, found := byCategory[o.Category]
		if !found {
			continue
		}
		switch o.Status {
		case StatusResolved:
			cnt.resolved++
		case StatusBlocked:
			cnt.blocked++
		}
	}
	out := make([]CategoryBlockingStats, 0, len(categories))
	for _, c := range categories {
		cnt := byCategory[c]
		out = append(out, CategoryBlockingStats{
			Category:          c,
			NonError:          cnt.resolved + cnt.blocked,
			Blocked:           cnt.blocked,
			BlockedPercentage: percentage(cnt.blocked, cnt.resolved+cnt.blocked),
		})
	}
	return out
}

// BlockedUsefulDomains returns the sorted unique useful domains that were blocked.
func BlockedUsefulDomains(outcomes []Outcome) []string {
	return selectDomains(outcomes, CategoryUseful, StatusBlocked)
}

// BlockedUselessDomains returns the sorted unique useless domains that were blocked.
func BlockedUselessDomains(outcomes []Outcome) []string {
	return selectDomains(outcomes, CategoryUseless, StatusBlocked)
}

// PassedUselessDomains returns the sorted unique useless domains that were resolved.
func PassedUselessDomains(outcomes []Outcome) []string {
	return selectDomains(outcomes, CategoryUseless, StatusResolved)
}

func selectDomains(outcomes []Outcome, category DomainCategory, status QueryStatus) []string {
	out := []string{}
	for _, o := range outcomes {
		if o.Category == category && o.Status == status {
			out = append(out, o.Domain)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
