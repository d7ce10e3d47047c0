// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcQuerier implements [Querier] using a function.
type funcQuerier func(ctx context.Context, domain string) ([]string, error)

func (fn funcQuerier) QueryA(ctx context.Context, domain string) ([]string, error) {
	return fn(ctx, domain)
}

// newTestProber returns a [*Prober] using the given querier for every resolver.
func newTestProber(querier func(resolver DoHResolver) (Querier, error)) *Prober {
	prober := NewProber(nil, FormatJSON)
	prober.Logger = log.New(io.Discard)
	prober.NewQuerier = querier
	return prober
}

var (
	proberDomains = []Domain{
		{Name: "a.example", Category: CategoryUseful},
		{Name: "b.example", Category: CategoryUseless},
		{Name: "c.example", Category: CategoryQuestionable},
	}
	proberResolvers = []DoHResolver{
		{URL: "https://r1.example/resolve", Name: "r1.example"},
		{URL: "https://r2.example/resolve", Name: "r2.example"},
	}
)

func TestProberRunOrderingAndFailures(t *testing.T) {
	brokenErr := errors.New("r2 is down")
	prober := newTestProber(func(resolver DoHResolver) (Querier, error) {
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			if resolver.Name == "r2.example" && domain == "b.example" {
				return nil, brokenErr
			}
			if domain == "c.example" {
				return []string{}, nil
			}
			return []string{"8.8.8.8"}, nil
		}), nil
	})

	got := prober.Run(context.Background(), proberDomains, proberResolvers)
	require.Len(t, got, len(proberDomains)*len(proberResolvers))

	for di, domain := range proberDomains {
		for ri, resolver := range proberResolvers {
			o := got[di*len(proberResolvers)+ri]
			assert.Equal(t, domain.Name, o.Domain)
			assert.Equal(t, domain.Category, o.Category)
			assert.Equal(t, resolver.URL, o.Resolver)
		}
	}

	// a.example / r1 succeeds with a latency
	assert.Equal(t, []string{"8.8.8.8"}, got[0].Addrs)
	assert.True(t, got[0].Latency.Valid)
	assert.GreaterOrEqual(t, got[0].Latency.Millis, 0.0)
	assert.NoError(t, got[0].TransportErr)

	// b.example / r2 fails without latency
	assert.ErrorIs(t, got[3].TransportErr, brokenErr)
	assert.False(t, got[3].Latency.Valid)
	assert.Equal(t, []string{}, got[3].Addrs)

	// c.example is an empty answer, which is not a failure
	assert.NoError(t, got[4].TransportErr)
	assert.Equal(t, []string{}, got[4].Addrs)
	assert.True(t, got[4].Latency.Valid)
}

func TestProberRunConcurrencyLimit(t *testing.T) {
	const limit = 3
	var (
		inflight atomic.Int64
		peak     atomic.Int64
	)
	prober := newTestProber(func(DoHResolver) (Querier, error) {
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			current := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				old := peak.Load()
				if current <= old || peak.CompareAndSwap(old, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return []string{"8.8.8.8"}, nil
		}), nil
	})
	prober.Concurrency = limit

	var domains []Domain
	for range 20 {
		domains = append(domains, proberDomains...)
	}
	got := prober.Run(context.Background(), domains, proberResolvers)
	require.Len(t, got, len(domains)*len(proberResolvers))
	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Positive(t, peak.Load())
}

func TestProberRunTimeout(t *testing.T) {
	prober := newTestProber(func(DoHResolver) (Querier, error) {
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), nil
	})
	prober.Timeout = 10 * time.Millisecond

	got := prober.Run(context.Background(), proberDomains[:1], proberResolvers[:1])
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].TransportErr, context.DeadlineExceeded)
	assert.False(t, got[0].Latency.Valid)
}

func TestProberRunQuerierCreationFailure(t *testing.T) {
	expectedErr := errors.New("unsupported resolver")
	var calls atomic.Int64
	prober := newTestProber(func(resolver DoHResolver) (Querier, error) {
		if resolver.Name == "r1.example" {
			return nil, expectedErr
		}
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			calls.Add(1)
			return []string{"8.8.8.8"}, nil
		}), nil
	})

	got := prober.Run(context.Background(), proberDomains, proberResolvers)
	require.Len(t, got, 6)
	for idx, o := range got {
		if idx%2 == 0 {
			assert.ErrorIs(t, o.TransportErr, expectedErr)
			continue
		}
		assert.NoError(t, o.TransportErr)
	}
	assert.Equal(t, int64(3), calls.Load())
}

func TestProberRunCanceledContext(t *testing.T) {
	var mu sync.Mutex
	var queried []string
	prober := newTestProber(func(DoHResolver) (Querier, error) {
		return funcQuerier(func(ctx context.Context, domain string) ([]string, error) {
			mu.Lock()
			queried = append(queried, domain)
			mu.Unlock()
			return []string{"8.8.8.8"}, nil
		}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := prober.Run(ctx, proberDomains, proberResolvers)
	require.Len(t, got, 6)
	for _, o := range got {
		assert.ErrorIs(t, o.TransportErr, context.Canceled)
	}
	assert.Empty(t, queried)
}

func TestProberRunNothingToDo(t *testing.T) {
	prober := newTestProber(func(DoHResolver) (Querier, error) {
		return nil, errors.New("no querier")
	})
	assert.Empty(t, prober.Run(context.Background(), proberDomains, nil))
	assert.Empty(t, prober.Run(context.Background(), nil, proberResolvers))
}
