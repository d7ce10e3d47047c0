// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"slices"
	"sync"
)

// Filter is an equality predicate used by [*Store.Query].
type Filter func(*Outcome) bool

// ByResolver selects outcomes for the given resolver identifier.
func ByResolver(resolver string) Filter {
	return func(o *Outcome) bool { return o.Resolver == resolver }
}

// ByDomain selects outcomes for the given domain name.
func ByDomain(domain string) Filter {
	return func(o *Outcome) bool { return o.Domain == domain }
}

// ByStatus selects outcomes with the given status.
func ByStatus(status QueryStatus) Filter {
	return func(o *Outcome) bool { return o.Status == status }
}

// ByCategory selects outcomes with the given domain category.
func ByCategory(category DomainCategory) Filter {
	return func(o *Outcome) bool { return o.Category == category }
}

// Store is an append-only, in-memory collection of classified outcomes.
//
// The zero value is ready to use. A [*Store] is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	outcomes []Outcome
}

// NewStore creates an empty [*Store].
func NewStore() *Store {
	return &Store{}
}

// Add appends an outcome.
func (s *Store) Add(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// AddAll appends all the outcomes preserving their order.
func (s *Store) AddAll(outcomes []Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcomes...)
	s.mu.Unlock()
}

// Len returns the number of stored outcomes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}

// Query returns, in insertion order, a copy of the outcomes matching all the
// filters. Without filters, it returns every outcome.
func (s *Store) Query(filters ...Filter) []Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Outcome, 0, len(s.outcomes))
	for idx := range s.outcomes {
		if matchAll(&s.outcomes[idx], filters) {
			out = append(out, s.outcomes[idx])
		}
	}
	return out
}

func matchAll(o *Outcome, filters []Filter) bool {
	for _, f := range filters {
		if !f(o) {
			return false
		}
	}
	return true
}

// Resolvers returns the sorted distinct resolver identifiers seen so far.
func (s *Store) Resolvers() []string {
	return s.distinct(func(o *Outcome) string { return o.Resolver })
}

// Domains returns the sorted distinct domain names seen so far.
func (s *Store) Domains() []string {
	return s.distinct(func(o *Outcome) string { return o.Domain })
}

func (s *Store) distinct(key func(*Outcome) string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []string{}
	for idx := range s.outcomes {
		k := key(&s.outcomes[idx])
		if _, found := seen[k]; found {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
