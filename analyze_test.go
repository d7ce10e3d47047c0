// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	r1 := DoHResolver{URL: "https://r1.example/dns-query", Name: "r1.example"}
	r2 := DoHResolver{URL: "https://r2.example/dns-query", Name: "r2.example"}
	idle := DoHResolver{URL: "https://idle.example/dns-query", Name: "idle.example"}

	store := NewStore()
	store.AddAll([]Outcome{
		{Domain: "a.example", Resolver: r1.URL, Category: CategoryUseful, Status: StatusResolved, Latency: LatencyMillis(10)},
		{Domain: "b.example", Resolver: r1.URL, Category: CategoryUseless, Status: StatusBlocked, Latency: LatencyMillis(20)},
		{Domain: "a.example", Resolver: r2.URL, Category: CategoryUseful, Status: StatusBlocked, Latency: LatencyMillis(30)},
		{Domain: "b.example", Resolver: r2.URL, Category: CategoryUseless, Status: StatusError},
	})

	reports := Analyze(store, []DoHResolver{r1, r2, idle})
	require.Len(t, reports, 3)

	assert.Equal(t, r1, reports[0].Resolver)
	assert.Equal(t, 50.0, reports[0].Blocking.BlockedPercentage)
	assert.Equal(t, 10.0, reports[0].Performance.Median)
	assert.Equal(t, []string{"b.example"}, reports[0].BlockedUseless)
	assert.Equal(t, []string{}, reports[0].BlockedUseful)

	assert.Equal(t, r2, reports[1].Resolver)
	assert.Equal(t, 100.0, reports[1].Blocking.BlockedPercentage)
	assert.Equal(t, 50.0, reports[1].Blocking.ErrorRate)
	assert.False(t, reports[1].Performance.Valid)
	assert.Equal(t, []string{"a.example"}, reports[1].BlockedUseful)

	// a resolver without outcomes still gets an all-zero report
	assert.Equal(t, idle, reports[2].Resolver)
	assert.Equal(t, 0, reports[2].Blocking.Total)
	assert.False(t, reports[2].Performance.Valid)
	require.Len(t, reports[2].Categories, 3)
	for _, c := range reports[2].Categories {
		assert.Equal(t, 0.0, c.BlockedPercentage)
	}
}

func TestAnalyzeAfterInterruptedRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := DoHResolver{URL: "https://r1.example/resolve", Name: "r1.example"}
	prober := NewProber(nil, FormatJSON)
	prober.Logger = log.New(io.Discard)
	prober.NewQuerier = func(DoHResolver) (Querier, error) {
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			return []string{"8.8.8.8"}, nil
		}), nil
	}
	domains := DefaultDomains(5)
	pending := prober.Run(ctx, domains, []DoHResolver{resolver})

	store := NewStore()
	store.AddAll(NewClassifier(NonRoutableRanges(), nil).ClassifyAll(pending))
	reports := Analyze(store, []DoHResolver{resolver})

	require.Len(t, reports, 1)
	assert.Equal(t, resolver, reports[0].Resolver)
	assert.Equal(t, len(domains), reports[0].Blocking.Total)
	assert.Equal(t, len(domains), reports[0].Blocking.Errors)
	assert.Equal(t, 100.0, reports[0].Blocking.ErrorRate)
}
