//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/doudp.go
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/dnsoverudp.go
//

package dohblock

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"
)

// NetDialer abstracts over [*net.Dialer].
type NetDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DNSOverUDPTransport implements [DNSTransport] for DNS over UDP.
//
// We use it for udp:// resolvers, which serve as an unencrypted baseline: when
// a DoH resolver and the network's plain DNS disagree, the comparison tells
// whether blocking happens at the resolver or on path.
//
// Construct using [NewDNSOverUDPTransport].
type DNSOverUDPTransport struct {
	// Dialer is the [NetDialer] to use to create connections.
	//
	// Set by [NewDNSOverUDPTransport] to the user-provided value.
	Dialer NetDialer

	// Endpoint is the server endpoint to use to query.
	//
	// Set by [NewDNSOverUDPTransport] to the user-provided value.
	Endpoint netip.AddrPort
}

// NewDNSOverUDPTransport creates a new [*DNSOverUDPTransport].
func NewDNSOverUDPTransport(dialer NetDialer, endpoint netip.AddrPort) *DNSOverUDPTransport {
	return &DNSOverUDPTransport{
		Dialer:   dialer,
		Endpoint: endpoint,
	}
}

// Ensure that [*DNSOverUDPTransport] implements [DNSTransport].
var _ DNSTransport = &DNSOverUDPTransport{}

// Exchange implements [DNSTransport].
//
// A response carrying a failure RCODE yields a [*RcodeError].
func (dt *DNSOverUDPTransport) Exchange(ctx context.Context, query *dnscodec.Query) (*dnscodec.Response, error) {
	// 1. create the connection
	conn, err := dt.Dialer.DialContext(ctx, "udp", dt.Endpoint.String())
	if err != nil {
		return nil, err
	}

	// 2. close the connection as soon as the context is done, so that
	// a pending read returns when the per-query timeout expires
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer conn.Close()
		<-ctx.Done()
	}()

	// 3. use a single connection for the exchange
	return dt.ExchangeWithConn(ctx, conn, query)
}

// SendQuery sends a [*dnscodec.Query] using a [net.Conn].
//
// We only honor deadlines from the context.
func (dt *DNSOverUDPTransport) SendQuery(ctx context.Context, conn net.Conn, query *dnscodec.Query) (*dns.Msg, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	query = query.Clone()
	query.MaxSize = dnscodec.QueryMaxResponseSizeUDP
	queryMsg, err := query.NewMsg()
	if err != nil {
		return nil, err
	}
	rawQuery, err := queryMsg.Pack()
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(rawQuery); err != nil {
		return nil, err
	}
	return queryMsg, nil
}

// RecvResponse receives the response to queryMsg using a [net.Conn].
//
// We only honor deadlines from the context.
func (dt *DNSOverUDPTransport) RecvResponse(
	ctx context.Context, conn net.Conn, queryMsg *dns.Msg) (*dnscodec.Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	buff := make([]byte, dnscodec.QueryMaxResponseSizeUDP)
	count, err := conn.Read(buff)
	if err != nil {
		return nil, err
	}
	respMsg := new(dns.Msg)
	if err := respMsg.Unpack(buff[:count]); err != nil {
		return nil, err
	}
	return parseResponse(queryMsg, respMsg)
}

// ExchangeWithConn sends a [*dnscodec.Query] and receives a [*dnscodec.Response].
func (dt *DNSOverUDPTransport) ExchangeWithConn(ctx context.Context,
	conn net.Conn, query *dnscodec.Query) (*dnscodec.Response, error) {
	queryMsg, err := dt.SendQuery(ctx, conn, query)
	if err != nil {
		return nil, err
	}
	return dt.RecvResponse(ctx, conn, queryMsg)
}
