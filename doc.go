// SPDX-License-Identifier: GPL-3.0-or-later

// Package dohblock measures DNS-level blocking performed by DNS-over-HTTPS resolvers.
//
// We query a categorized catalog of domains with each resolver, classify each
// answer as resolved, blocked, or failed, and aggregate per-resolver statistics.
//
// The pipeline is:
//
//  1. [LoadDomainsFile], [LoadResolversFile] and [LoadCustomBlocklistFile] load
//     the catalogs, degrading to empty (or built-in) lists with a warning when a
//     source is missing;
//
//  2. [*Prober] issues one A query per (domain, resolver) pair using a [Querier]
//     under a concurrency cap and produces a [PendingOutcome] for each pair;
//
//  3. [Classify] turns each [PendingOutcome] into an [Outcome] using the
//     [NonRoutableRanges] catalog and the [*CustomBlocklist];
//
//  4. [*Store] holds the outcomes and supports filtering them by field;
//
//  5. [Analyze] computes a [ResolverReport] per resolver, which [WriteSummaryCSV],
//     [WriteMatrixCSV] and [WriteAuditCSV] serialize.
//
// We implement these [Querier] flavors:
//
//  1. the DoH JSON API: implemented by [DoHJSONQuerier]
//
//  2. RFC 8484 DoH: implemented by [DoHWireTransport] wrapped by [TransportQuerier]
//
//  3. DNS over UDP, useful as a baseline: implemented by [DNSOverUDPTransport]
//     wrapped by [TransportQuerier]
//
// For example:
//
//	resolver, _ := dohblock.ParseResolver("https://dns.google/resolve")
//	prober := dohblock.NewProber(http.DefaultClient, dohblock.FormatJSON)
//	pending := prober.Run(ctx, dohblock.DefaultDomains(100), []dohblock.DoHResolver{resolver})
//	store := dohblock.NewStore()
//	store.AddAll(dohblock.NewClassifier(dohblock.NonRoutableRanges(), nil).ClassifyAll(pending))
//	reports := dohblock.Analyze(store, []dohblock.DoHResolver{resolver})
//
// The classification and statistics code is pure and synchronous; only the
// [*Prober] performs I/O.
package dohblock
