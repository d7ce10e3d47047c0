// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ResolverReport bundles the statistics of a single resolver.
type ResolverReport struct {
	// Resolver is the resolver the report refers to.
	Resolver DoHResolver

	// Performance contains the latency statistics.
	Performance PerformanceStats

	// Blocking contains the overall blocking statistics.
	Blocking BlockingStats

	// Categories contains the per-category blocking statistics
	// in the order returned by [AllDomainCategories].
	Categories []CategoryBlockingStats

	// BlockedUseful lists useful domains that were blocked.
	BlockedUseful []string

	// BlockedUseless lists useless domains that were blocked.
	BlockedUseless []string

	// PassedUseless lists useless domains that were resolved.
	PassedUseless []string
}

// NewResolverReport computes a [ResolverReport] from the resolver's outcomes.
func NewResolverReport(resolver DoHResolver, outcomes []Outcome) ResolverReport {
	return ResolverReport{
		Resolver:       resolver,
		Performance:    ComputePerformanceStats(outcomes),
		Blocking:       ComputeBlockingStats(outcomes),
		Categories:     ComputeCategorizedBlockingStats(outcomes, AllDomainCategories()),
		BlockedUseful:  BlockedUsefulDomains(outcomes),
		BlockedUseless: BlockedUselessDomains(outcomes),
		PassedUseless:  PassedUselessDomains(outcomes),
	}
}

// Analyze computes a [ResolverReport] for each resolver, in the same order.
//
// Every resolver gets a report, including resolvers without outcomes, and
// a partial outcome set (e.g., after an interrupted run) is analyzed as is.
// The per-resolver computations share no mutable state and run in parallel.
func Analyze(store *Store, resolvers []DoHResolver) []ResolverReport {
	reports := make([]ResolverReport, len(resolvers))
	group := &errgroup.Group{}
	group.SetLimit(runtime.GOMAXPROCS(0))
	for idx, resolver := range resolvers {
		group.Go(func() error {
			reports[idx] = NewResolverReport(resolver, store.Query(ByResolver(resolver.URL)))
			return nil
		})
	}
	_ = group.Wait()
	return reports
}
