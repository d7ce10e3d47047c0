// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"fmt"
	"strings"
)

// DomainCategory is the editorial category assigned to a domain.
type DomainCategory int

const (
	// CategoryUseful is a domain whose blocking is a false positive.
	CategoryUseful DomainCategory = iota

	// CategoryQuestionable is a borderline domain.
	CategoryQuestionable

	// CategoryUseless is a domain we expect a filtering resolver to block.
	CategoryUseless
)

// AllDomainCategories returns all the categories in canonical order.
func AllDomainCategories() []DomainCategory {
	return []DomainCategory{CategoryUseful, CategoryQuestionable, CategoryUseless}
}

// String implements [fmt.Stringer].
func (c DomainCategory) String() string {
	switch c {
	case CategoryUseful:
		return "Useful"
	case CategoryQuestionable:
		return "Questionable"
	case CategoryUseless:
		return "Useless"
	default:
		return fmt.Sprintf("DomainCategory(%d)", int(c))
	}
}

// ParseDomainCategory parses the case-insensitive name of a category.
func ParseDomainCategory(s string) (DomainCategory, error) {
	for _, c := range AllDomainCategories() {
		if strings.EqualFold(strings.TrimSpace(s), c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown domain category: %q", s)
}

// QueryStatus is the final classification of a query.
type QueryStatus int

const (
	// StatusError means the transport failed: timeout, connection failure,
	// non-2xx HTTP status or unparsable payload.
	StatusError QueryStatus = iota

	// StatusResolved means the resolver returned a usable answer.
	StatusResolved

	// StatusBlocked means the answer looks like censorship.
	StatusBlocked
)

// String implements [fmt.Stringer].
func (s QueryStatus) String() string {
	switch s {
	case StatusError:
		return "Error"
	case StatusResolved:
		return "Resolved"
	case StatusBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("QueryStatus(%d)", int(s))
	}
}

// Domain is an entry of the domain catalog.
type Domain struct {
	// Name is the lowercase domain name.
	Name string

	// Category is the immutable category.
	Category DomainCategory
}

// DoHResolver is an entry of the resolver catalog.
type DoHResolver struct {
	// URL is the resolver URL and its unique identifier.
	URL string

	// Name is the short name derived from the URL host.
	Name string
}

// Latency is an optional duration in milliseconds.
//
// The zero value is an absent latency.
type Latency struct {
	// Millis is the latency in milliseconds.
	Millis float64

	// Valid is true when Millis is meaningful.
	Valid bool
}

// LatencyMillis returns a valid [Latency].
func LatencyMillis(ms float64) Latency {
	return Latency{Millis: ms, Valid: true}
}

// PendingOutcome is the result of querying a resolver before classification.
//
// The transport either failed, and TransportErr is not nil, or succeeded, in
// which case Addrs holds the A records (possibly none) and Latency is valid.
// Use [Classify] to obtain the final [Outcome].
type PendingOutcome struct {
	// Domain is the queried domain name.
	Domain string

	// Resolver is the resolver identifier (its URL).
	Resolver string

	// Category is the domain category.
	Category DomainCategory

	// Addrs contains the A record data in response order.
	Addrs []string

	// Latency is the time to receive and parse the response.
	Latency Latency

	// TransportErr is the transport error or nil.
	TransportErr error
}

// Provisional returns the status implied by the transport alone: [StatusError]
// when the transport failed, [StatusResolved] otherwise.
func (p PendingOutcome) Provisional() QueryStatus {
	if p.TransportErr != nil {
		return StatusError
	}
	return StatusResolved
}

// Outcome is a classified query result.
//
// Construct using [Classify]. Outcomes are immutable by convention: the
// [*Store] returns copies and nothing in this package modifies them.
type Outcome struct {
	// Domain is the queried domain name.
	Domain string

	// Resolver is the resolver identifier (its URL).
	Resolver string

	// Category is the domain category.
	Category DomainCategory

	// Addrs contains the A record data in response order.
	Addrs []string

	// Latency is valid iff the transport produced a parsed response.
	Latency Latency

	// Status is the final status.
	Status QueryStatus

	// Reason explains the status.
	Reason BlockingReason

	// Evidence describes, for each address of a [StatusBlocked] outcome,
	// why it is a sinkhole. It is empty for other outcomes.
	Evidence []string

	// Err is the transport error, if Status is [StatusError].
	Err error
}

// BlockingReason explains why [Classify] chose a status.
type BlockingReason string

const (
	// ReasonNone is used for resolved outcomes.
	ReasonNone BlockingReason = ""

	// ReasonTransportError is used for [StatusError] outcomes.
	ReasonTransportError BlockingReason = "transport error"

	// ReasonEmptyAnswer is used when there were no A records.
	ReasonEmptyAnswer BlockingReason = "empty answer"

	// ReasonNonRoutable is used when every address is non-routable.
	ReasonNonRoutable BlockingReason = "non-routable"

	// ReasonCustomBlocklist is used when every address is blocked evidence
	// and at least one of them is in the custom blocklist.
	ReasonCustomBlocklist BlockingReason = "custom blocklist"
)
