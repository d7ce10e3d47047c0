// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import "slices"

// Classify turns a [PendingOutcome] into a final [Outcome].
//
// The rules are evaluated in this order:
//
//  1. a transport failure yields [StatusError];
//
//  2. an answer without A records yields [StatusBlocked], since censoring
//     resolvers often answer NXDOMAIN or an empty answer section;
//
//  3. if any address is not a valid IPv4 literal, we stop and return
//     [StatusResolved] regardless of the other addresses;
//
//  4. if every address is inside ranges or inside custom, we return
//     [StatusBlocked], otherwise [StatusResolved].
//
// A blocked outcome with addresses carries one Evidence entry per address:
// the description of the matching range or "custom blocklist".
//
// Rule 3 means that one malformed literal masks an otherwise sinkholed
// answer. This is probably not what the authors of the detection logic
// meant, but it is observable behavior and existing reports depend on it.
//
// This function does not modify its arguments; custom may be nil.
func Classify(p PendingOutcome, ranges []NonRoutableRange, custom *CustomBlocklist) Outcome {
	out := Outcome{
		Domain:   p.Domain,
		Resolver: p.Resolver,
		Category: p.Category,
		Addrs:    slices.Clone(p.Addrs),
		Latency:  p.Latency,
	}

	// 1. transport failures are terminal
	if p.Provisional() == StatusError {
		out.Status = StatusError
		out.Reason = ReasonTransportError
		out.Err = p.TransportErr
		return out
	}

	// 2. no A records at all
	if len(p.Addrs) <= 0 {
		out.Status = StatusBlocked
		out.Reason = ReasonEmptyAnswer
		return out
	}

	// 3. per-address vote
	var sawCustom bool
	evidence := make([]string, 0, len(p.Addrs))
	for _, addr := range p.Addrs {
		value, err := ParseIPv4(addr)
		if err != nil {
			out.Status = StatusResolved
			out.Reason = ReasonNone
			return out
		}
		inCustom := custom.Contains(addr)
		r, inRange := findRange(value, ranges)
		switch {
		case inCustom:
			evidence = append(evidence, string(ReasonCustomBlocklist))
		case inRange:
			evidence = append(evidence, r.Description)
		default:
			out.Status = StatusResolved
			out.Reason = ReasonNone
			return out
		}
		sawCustom = sawCustom || inCustom
	}

	// 4. every address is blocked evidence
	out.Status = StatusBlocked
	out.Evidence = evidence
	out.Reason = ReasonNonRoutable
	if sawCustom {
		out.Reason = ReasonCustomBlocklist
	}
	return out
}

// Classifier bundles the range catalog and the custom blocklist.
//
// Construct using [NewClassifier].
type Classifier struct {
	// Ranges is the non-routable range catalog.
	//
	// Set by [NewClassifier] to the user-provided value.
	Ranges []NonRoutableRange

	// Custom is the OPTIONAL custom blocklist.
	//
	// Set by [NewClassifier] to the user-provided value.
	Custom *CustomBlocklist
}

// NewClassifier creates a new [*Classifier].
func NewClassifier(ranges []NonRoutableRange, custom *CustomBlocklist) *Classifier {
	return &Classifier{Ranges: ranges, Custom: custom}
}

// Classify is like the [Classify] function using the classifier's settings.
func (c *Classifier) Classify(p PendingOutcome) Outcome {
	return Classify(p, c.Ranges, c.Custom)
}

// ClassifyAll classifies each pending outcome, preserving order.
func (c *Classifier) ClassifyAll(pending []PendingOutcome) []Outcome {
	out := make([]Outcome, 0, len(pending))
	for _, p := range pending {
		out = append(out, c.Classify(p))
	}
	return out
}
