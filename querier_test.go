// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"testing"

	"github.com/bassosimone/dnscodec"
	"github.com/bassosimone/dnstest"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUDPQuerier creates a querier backed by a UDP test server.
func newUDPQuerier(t *testing.T, handler *dnstest.Handler) *TransportQuerier {
	t.Helper()

	server := dnstest.MustNewUDPServer(&net.ListenConfig{}, "127.0.0.1:0", handler)
	t.Cleanup(server.Close)

	endpoint, err := netip.ParseAddrPort(server.Address())
	require.NoError(t, err)
	return NewTransportQuerier(NewDNSOverUDPTransport(&net.Dialer{}, endpoint))
}

type transportStub struct {
	exchange func(context.Context, *dnscodec.Query) (*dnscodec.Response, error)
}

func (ts transportStub) Exchange(ctx context.Context, query *dnscodec.Query) (*dnscodec.Response, error) {
	return ts.exchange(ctx, query)
}

func TestTransportQuerierQueryA(t *testing.T) {
	type testCase struct {
		// name is the subtest name.
		name string

		// domain is the domain to query.
		domain string

		// setup configures the handler records.
		setup func(*dnstest.HandlerConfig)

		// want contains the expected addresses.
		want []string
	}

	tests := []testCase{
		{
			name:   "A records",
			domain: "example.com",
			setup: func(config *dnstest.HandlerConfig) {
				config.AddNetipAddr("example.com", netip.MustParseAddr("93.184.216.34"))
			},
			want: []string{"93.184.216.34"},
		},

		{
			name:   "A records through CNAME",
			domain: "www.example.com",
			setup: func(config *dnstest.HandlerConfig) {
				config.AddCNAME("www.example.com", "example.com")
				config.AddNetipAddr("example.com", netip.MustParseAddr("10.10.34.34"))
			},
			want: []string{"10.10.34.34"},
		},

		{
			name:   "only AAAA records",
			domain: "example.com",
			setup: func(config *dnstest.HandlerConfig) {
				config.AddNetipAddr("example.com", netip.MustParseAddr("2001:db8::1"))
			},
			want: []string{},
		},

		{
			name:   "unknown name",
			domain: "example.com",
			setup:  func(config *dnstest.HandlerConfig) {},
			want:   []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := dnstest.NewHandlerConfig()
			tc.setup(config)
			querier := newUDPQuerier(t, dnstest.NewHandler(config))
			got, err := querier.QueryA(context.Background(), tc.domain)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransportQuerierQueryACanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	querier := newUDPQuerier(t, dnstest.NewHandler(dnstest.NewHandlerConfig()))
	got, err := querier.QueryA(ctx, "example.com")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestTransportQuerierErrorMapping(t *testing.T) {
	type testCase struct {
		// name is the subtest name.
		name string

		// err is the error returned by the transport.
		err error

		// wantErr indicates whether we expect a transport error.
		wantErr bool
	}

	tests := []testCase{
		{name: "nxdomain", err: &RcodeError{Rcode: dns.RcodeNameError}},
		{name: "servfail", err: &RcodeError{Rcode: dns.RcodeServerFailure}},
		{name: "no data", err: dnscodec.ErrNoData},
		{name: "wrapped no data", err: errors.Join(errors.New("parse"), dnscodec.ErrNoData)},
		{name: "invalid response", err: dnscodec.ErrInvalidResponse, wantErr: true},
		{name: "network failure", err: errors.New("connection refused"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			querier := NewTransportQuerier(transportStub{
				exchange: func(context.Context, *dnscodec.Query) (*dnscodec.Response, error) {
					return nil, tc.err
				},
			})
			got, err := querier.QueryA(context.Background(), "example.com")
			if tc.wantErr {
				require.ErrorIs(t, err, tc.err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{}, got)
		})
	}
}

func TestTransportQuerierSendsAQuery(t *testing.T) {
	var got *dnscodec.Query
	querier := NewTransportQuerier(transportStub{
		exchange: func(_ context.Context, query *dnscodec.Query) (*dnscodec.Response, error) {
			got = query
			return nil, errors.New("stop")
		},
	})
	_, _ = querier.QueryA(context.Background(), "example.com")
	require.NotNil(t, got)
	assert.Equal(t, dns.TypeA, got.Type)
	assert.Equal(t, "example.com", got.Name)
}

func TestRcodeErrorString(t *testing.T) {
	assert.Equal(t, "dns response code: SERVFAIL", (&RcodeError{Rcode: dns.RcodeServerFailure}).Error())
	assert.Equal(t, "dns response code: 4095", (&RcodeError{Rcode: 4095}).Error())
}

func TestNewQuerier(t *testing.T) {
	t.Run("udp", func(t *testing.T) {
		q, err := NewQuerier(DoHResolver{URL: "udp://8.8.8.8:53"}, nil, FormatJSON)
		require.NoError(t, err)
		tq, ok := q.(*TransportQuerier)
		require.True(t, ok)
		udp, ok := tq.Transport.(*DNSOverUDPTransport)
		require.True(t, ok)
		assert.Equal(t, netip.MustParseAddrPort("8.8.8.8:53"), udp.Endpoint)
	})

	t.Run("udp with hostname", func(t *testing.T) {
		_, err := NewQuerier(DoHResolver{URL: "udp://dns.google:53"}, nil, FormatJSON)
		require.Error(t, err)
	})

	t.Run("wire", func(t *testing.T) {
		q, err := NewQuerier(DoHResolver{URL: "https://dns.google/dns-query"}, nil, FormatWire)
		require.NoError(t, err)
		tq, ok := q.(*TransportQuerier)
		require.True(t, ok)
		doh, ok := tq.Transport.(*DoHWireTransport)
		require.True(t, ok)
		assert.Equal(t, "https://dns.google/dns-query", doh.URL)
		assert.Equal(t, http.DefaultClient, doh.Client)
	})

	t.Run("json", func(t *testing.T) {
		client := &http.Client{}
		q, err := NewQuerier(DoHResolver{URL: "https://dns.google/resolve"}, client, FormatJSON)
		require.NoError(t, err)
		jq, ok := q.(*DoHJSONQuerier)
		require.True(t, ok)
		assert.Same(t, client, jq.Client)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewQuerier(DoHResolver{URL: "ftp://dns.example/"}, nil, FormatJSON)
		require.Error(t, err)
	})
}
