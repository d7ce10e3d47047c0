// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/miekg/dns"
)

// dohJSONResponse is the subset of the DoH JSON API response we use.
//
// See https://developers.google.com/speed/public-dns/docs/doh/json.
type dohJSONResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		TTL  int    `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// DoHJSONQuerier implements [Querier] using the DoH JSON API supported by
// Google, Cloudflare, Quad9 and most public DoH providers.
//
// Construct using [NewDoHJSONQuerier].
type DoHJSONQuerier struct {
	// Client is the HTTPClient to use to query.
	//
	// Set by [NewDoHJSONQuerier] to the user-provided value.
	Client HTTPClient

	// URL is the server URL to use to query.
	//
	// Set by [NewDoHJSONQuerier] to the user-provided value.
	URL string
}

// NewDoHJSONQuerier creates a new [*DoHJSONQuerier].
func NewDoHJSONQuerier(client HTTPClient, URL string) *DoHJSONQuerier {
	return &DoHJSONQuerier{Client: client, URL: URL}
}

// Ensure that [*DoHJSONQuerier] implements [Querier].
var _ Querier = &DoHJSONQuerier{}

// QueryA implements [Querier].
//
// We return the data of every A record verbatim (modulo surrounding
// whitespace) without validating it, so that a malformed address reaches
// [Classify]. A NXDOMAIN or SERVFAIL status usually comes without answers
// and therefore yields an empty list.
func (dq *DoHJSONQuerier) QueryA(ctx context.Context, domain string) ([]string, error) {
	// 1. Create and send the HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, dq.URL, nil)
	if err != nil {
		return nil, err
	}
	params := httpReq.URL.Query()
	params.Set("name", domain)
	params.Set("type", "A")
	httpReq.URL.RawQuery = params.Encode()
	httpReq.Header.Set("Accept", "application/dns-json")
	httpResp, err := dq.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		httpResp.Body.Close()
	}()

	// 2. Ensure that the status code makes sense; providers disagree on
	// the content type (application/json vs application/dns-json) so we
	// let the JSON parser decide whether the body is acceptable
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, httpResp.StatusCode)
	}

	// 3. Parse a bounded body
	var resp dohJSONResponse
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, dohMaxResponseSize)).Decode(&resp); err != nil {
		return nil, err
	}

	// 4. Extract the A records
	addrs := []string{}
	for _, answer := range resp.Answer {
		data := strings.TrimSpace(answer.Data)
		if answer.Type != int(dns.TypeA) || data == "" {
			continue
		}
		addrs = append(addrs, data)
	}
	return addrs, nil
}
