// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"
)

// Querier resolves the A records of a domain using a single resolver.
//
// A nil error with an empty list means that the resolver answered but
// there were no A records (e.g., NXDOMAIN). A non-nil error means that
// the transport failed.
type Querier interface {
	QueryA(ctx context.Context, domain string) ([]string, error)
}

// DNSTransport performs a DNS messages exchange.
type DNSTransport interface {
	Exchange(ctx context.Context, query *dnscodec.Query) (*dnscodec.Response, error)
}

// RcodeError is returned by transports when the response is valid for the
// query but its RCODE is not NOERROR.
type RcodeError struct {
	Rcode int
}

// Error implements error.
func (e *RcodeError) Error() string {
	if name, found := dns.RcodeToString[e.Rcode]; found {
		return "dns response code: " + name
	}
	return fmt.Sprintf("dns response code: %d", e.Rcode)
}

// parseResponse parses the response to a query sent over the wire.
//
// A response that matches the query but carries a failure RCODE is mapped
// to [*RcodeError] before [dnscodec.ParseResponse] turns it into an opaque
// error, so callers can tell a negative answer from a broken exchange.
func parseResponse(queryMsg, respMsg *dns.Msg) (*dnscodec.Response, error) {
	if respMsg.Response && respMsg.Id == queryMsg.Id && respMsg.Rcode != dns.RcodeSuccess {
		return nil, &RcodeError{Rcode: respMsg.Rcode}
	}
	return dnscodec.ParseResponse(queryMsg, respMsg)
}

// TransportQuerier implements [Querier] using a [DNSTransport].
//
// Construct using [NewTransportQuerier].
type TransportQuerier struct {
	// Transport is the [DNSTransport] to use.
	//
	// Set by [NewTransportQuerier] to the user-provided value.
	Transport DNSTransport
}

// NewTransportQuerier creates a new [*TransportQuerier].
func NewTransportQuerier(txp DNSTransport) *TransportQuerier {
	return &TransportQuerier{Transport: txp}
}

// Ensure that [*TransportQuerier] implements [Querier].
var _ Querier = &TransportQuerier{}

// QueryA implements [Querier].
func (tq *TransportQuerier) QueryA(ctx context.Context, domain string) ([]string, error) {
	query := dnscodec.NewQuery(domain, dns.TypeA)
	resp, err := tq.Transport.Exchange(ctx, query)

	// 1. negative answers are answers without records
	var rcodeErr *RcodeError
	switch {
	case errors.As(err, &rcodeErr):
		return []string{}, nil
	case errors.Is(err, dnscodec.ErrNoData):
		return []string{}, nil
	case err != nil:
		return nil, err
	}

	// 2. a CNAME-only answer is also an answer without records
	addrs, err := resp.RecordsA()
	if errors.Is(err, dnscodec.ErrNoData) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// QueryFormat selects how we talk to DoH resolvers.
type QueryFormat string

const (
	// FormatJSON uses the DoH JSON API (application/dns-json).
	FormatJSON QueryFormat = "json"

	// FormatWire uses RFC 8484 (application/dns-message).
	FormatWire QueryFormat = "wire"
)

// ParseQueryFormat parses a [QueryFormat].
func ParseQueryFormat(s string) (QueryFormat, error) {
	switch QueryFormat(s) {
	case FormatJSON, FormatWire:
		return QueryFormat(s), nil
	default:
		return "", fmt.Errorf("unknown query format: %q", s)
	}
}

// NewQuerier returns the [Querier] suitable for the resolver.
//
// DoH resolvers use client and the given format. Resolvers using the
// udp scheme use [*DNSOverUDPTransport] with a [*net.Dialer].
func NewQuerier(resolver DoHResolver, client HTTPClient, format QueryFormat) (Querier, error) {
	parsed, err := url.Parse(resolver.URL)
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "udp":
		endpoint, err := resolveEndpoint(parsed.Host)
		if err != nil {
			return nil, err
		}
		return NewTransportQuerier(NewDNSOverUDPTransport(&net.Dialer{}, endpoint)), nil
	case "https", "http":
		if client == nil {
			client = http.DefaultClient
		}
		if format == FormatWire {
			return NewTransportQuerier(NewDoHWireTransport(client, resolver.URL)), nil
		}
		return NewDoHJSONQuerier(client, resolver.URL), nil
	default:
		return nil, fmt.Errorf("unsupported resolver URL scheme: %q", resolver.URL)
	}
}

// resolveEndpoint parses an "ip:port" endpoint; we do not resolve names
// because resolving a resolver's name would itself be a DNS measurement.
func resolveEndpoint(hostport string) (netip.AddrPort, error) {
	endpoint, err := netip.ParseAddrPort(hostport)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("udp resolver must be ip:port: %w", err)
	}
	return endpoint, nil
}
