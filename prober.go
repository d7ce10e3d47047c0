// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"net/http"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the default maximum number of in-flight queries.
	DefaultConcurrency = 20

	// DefaultTimeout is the default per-query timeout.
	DefaultTimeout = 5 * time.Second
)

// Prober queries every domain with every resolver.
//
// Construct using [NewProber].
type Prober struct {
	// Concurrency is the maximum number of in-flight queries.
	//
	// Set by [NewProber] to [DefaultConcurrency].
	Concurrency int

	// Timeout is the timeout of each query.
	//
	// Set by [NewProber] to [DefaultTimeout].
	Timeout time.Duration

	// Logger is the logger to use.
	//
	// Set by [NewProber] to [log.Default].
	Logger *log.Logger

	// NewQuerier creates the [Querier] for a resolver.
	//
	// Set by [NewProber] to a function using [NewQuerier] with the
	// user-provided client and format.
	NewQuerier func(resolver DoHResolver) (Querier, error)
}

// NewProber creates a new [*Prober] using [NewQuerier] with the given client,
// which may be nil to use [http.DefaultClient], and format.
func NewProber(client HTTPClient, format QueryFormat) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Logger:      log.Default(),
		NewQuerier: func(resolver DoHResolver) (Querier, error) {
			return NewQuerier(resolver, client, format)
		},
	}
}

// proberTarget is a resolver along with its querier.
type proberTarget struct {
	resolver DoHResolver
	querier  Querier
	err      error
}

// Run queries each domain with each resolver and returns exactly one
// [PendingOutcome] per pair, ordered by domain and then by resolver.
//
// Failures never escape: they become outcomes whose TransportErr is set.
// When ctx is done, the pairs not yet started fail with the context error.
func (p *Prober) Run(ctx context.Context, domains []Domain, resolvers []DoHResolver) []PendingOutcome {
	logger := loggerOrDefault(p.Logger)

	// 1. create a querier for each resolver
	targets := make([]proberTarget, 0, len(resolvers))
	for _, resolver := range resolvers {
		querier, err := p.NewQuerier(resolver)
		if err != nil {
			logger.Warn("cannot create querier", "resolver", resolver.URL, "error", err)
		}
		targets = append(targets, proberTarget{resolver, querier, err})
	}

	// 2. fan out with at most Concurrency queries in flight
	outcomes := make([]PendingOutcome, len(domains)*len(targets))
	group := &errgroup.Group{}
	group.SetLimit(max(p.Concurrency, 1))
	for di, domain := range domains {
		for ri, target := range targets {
			idx := di*len(targets) + ri
			if err := ctx.Err(); err != nil {
				outcomes[idx] = newFailedOutcome(domain, target.resolver, err)
				continue
			}
			group.Go(func() error {
				outcomes[idx] = p.probe(ctx, logger, domain, target)
				return nil
			})
		}
	}
	_ = group.Wait()

	// 3. make sure we did not leave any hole
	for idx := range outcomes {
		runtimex.Assert(outcomes[idx].Resolver != "")
	}
	return outcomes
}

// probe performs a single measurement.
func (p *Prober) probe(ctx context.Context, logger *log.Logger, domain Domain, target proberTarget) PendingOutcome {
	if target.err != nil {
		return newFailedOutcome(domain, target.resolver, target.err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	t0 := time.Now()
	addrs, err := target.querier.QueryA(ctx, domain.Name)
	elapsed := time.Since(t0)
	if err != nil {
		logger.Debug("query failed", "domain", domain.Name, "resolver", target.resolver.Name, "error", err)
		return newFailedOutcome(domain, target.resolver, err)
	}

	logger.Debug("query done", "domain", domain.Name, "resolver", target.resolver.Name,
		"addrs", addrs, "elapsed", elapsed)
	return PendingOutcome{
		Domain:   domain.Name,
		Resolver: target.resolver.URL,
		Category: domain.Category,
		Addrs:    addrs,
		Latency:  LatencyMillis(float64(elapsed) / float64(time.Millisecond)),
	}
}

func newFailedOutcome(domain Domain, resolver DoHResolver, err error) PendingOutcome {
	return PendingOutcome{
		Domain:       domain.Name,
		Resolver:     resolver.URL,
		Category:     domain.Category,
		Addrs:        []string{},
		TransportErr: err,
	}
}
