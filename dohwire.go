//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/dnsoverhttps.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/dohttps.go
//

package dohblock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"
)

// dohMaxResponseSize bounds the DoH response body we are willing to read.
const dohMaxResponseSize = 64 * 1024

// Errors emitted by the DoH transports.
var (
	// ErrHTTPStatus indicates a non-2xx HTTP status code.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrContentType indicates an unexpected response content type.
	ErrContentType = errors.New("unexpected content type")
)

// HTTPClient abstracts over [*http.Client].
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoHWireTransport implements [DNSTransport] for RFC 8484 DNS over HTTPS.
//
// Construct using [NewDoHWireTransport].
type DoHWireTransport struct {
	// Client is the HTTPClient to use to query.
	//
	// Set by [NewDoHWireTransport] to the user-provided value.
	Client HTTPClient

	// URL is the server URL to use to query.
	//
	// Set by [NewDoHWireTransport] to the user-provided value.
	URL string
}

// NewDoHWireTransport creates a new [*DoHWireTransport].
func NewDoHWireTransport(client HTTPClient, URL string) *DoHWireTransport {
	return &DoHWireTransport{
		Client: client,
		URL:    URL,
	}
}

// Ensure that [*DoHWireTransport] implements [DNSTransport].
var _ DNSTransport = &DoHWireTransport{}

// Exchange implements [DNSTransport].
//
// A response carrying a failure RCODE yields a [*RcodeError].
func (dt *DoHWireTransport) Exchange(ctx context.Context, query *dnscodec.Query) (*dnscodec.Response, error) {
	// 1. Mutate and serialize the query
	//
	// For DoH we leave the query ID to zero, which is what the RFC
	// suggests to do to maximize cache friendliness.
	query = query.Clone()
	query.ID = 0
	query.MaxSize = dns.DefaultMsgSize
	queryMsg, err := query.NewMsg()
	if err != nil {
		return nil, err
	}
	rawQuery, err := queryMsg.Pack()
	if err != nil {
		return nil, err
	}

	// 2. Create and send the HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, dt.URL, bytes.NewReader(rawQuery))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/dns-message")
	httpReq.Header.Set("Accept", "application/dns-message")
	httpResp, err := dt.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		httpResp.Body.Close()
	}()

	// 3. Ensure that the response makes sense
	if err := checkHTTPResponse(httpResp, "application/dns-message"); err != nil {
		return nil, err
	}

	// 4. Read a bounded body and parse it
	rawResp, err := io.ReadAll(io.LimitReader(httpResp.Body, dohMaxResponseSize))
	if err != nil {
		return nil, err
	}
	respMsg := &dns.Msg{}
	if err := respMsg.Unpack(rawResp); err != nil {
		return nil, err
	}
	return parseResponse(queryMsg, respMsg)
}

// checkHTTPResponse ensures the status is 2xx and the media type is the expected one.
func checkHTTPResponse(resp *http.Response, mediaType string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}
	got, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || got != mediaType {
		return fmt.Errorf("%w: %q", ErrContentType, resp.Header.Get("Content-Type"))
	}
	return nil
}
