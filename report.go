// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// WriteMatrixCSV writes one row per domain and one column per resolver.
//
// Each cell contains the status followed, when there are any, by the
// addresses separated by semicolons and by the blocking evidence within
// square brackets. Pairs without an outcome are empty.
func WriteMatrixCSV(w io.Writer, domains []Domain, resolvers []DoHResolver, store *Store) error {
	type pair struct{ domain, resolver string }
	cells := make(map[pair]Outcome)
	for _, o := range store.Query() {
		cells[pair{o.Domain, o.Resolver}] = o
	}

	cw := csv.NewWriter(w)
	header := []string{"domain", "category"}
	for _, r := range resolvers {
		header = append(header, r.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range domains {
		row := []string{d.Name, d.Category.String()}
		for _, r := range resolvers {
			o, found := cells[pair{d.Name, r.URL}]
			row = append(row, matrixCell(o, found))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func matrixCell(o Outcome, found bool) string {
	if !found {
		return ""
	}
	cell := o.Status.String()
	if len(o.Addrs) > 0 {
		cell += " " + strings.Join(o.Addrs, ";")
	}
	if len(o.Evidence) > 0 {
		cell += " [" + strings.Join(o.Evidence, ";") + "]"
	}
	return cell
}

// WriteSummaryCSV writes one row per resolver with its statistics.
//
// Absent latency statistics are written as empty cells.
func WriteSummaryCSV(w io.Writer, reports []ResolverReport) error {
	cw := csv.NewWriter(w)
	header := []string{
		"resolver", "url", "total", "resolved", "blocked", "errors",
		"blocked_pct", "error_rate_pct",
		"latency_min_ms", "latency_max_ms", "latency_median_ms", "latency_mean_ms",
	}
	for _, c := range AllDomainCategories() {
		header = append(header, strings.ToLower(c.String())+"_blocked_pct")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range reports {
		row := []string{
			r.Resolver.Name,
			r.Resolver.URL,
			strconv.Itoa(r.Blocking.Total),
			strconv.Itoa(r.Blocking.Resolved),
			strconv.Itoa(r.Blocking.Blocked),
			strconv.Itoa(r.Blocking.Errors),
			formatFloat(r.Blocking.BlockedPercentage),
			formatFloat(r.Blocking.ErrorRate),
		}
		row = append(row, latencyCells(r.Performance)...)
		for _, c := range r.Categories {
			row = append(row, formatFloat(c.BlockedPercentage))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func latencyCells(ps PerformanceStats) []string {
	if !ps.Valid {
		return []string{"", "", "", ""}
	}
	return []string{
		formatFloat(ps.Min),
		formatFloat(ps.Max),
		formatFloat(ps.Median),
		formatFloat(ps.Mean),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Names of the audit lists written by [WriteAuditCSV].
const (
	AuditBlockedUseful  = "blocked_useful"
	AuditBlockedUseless = "blocked_useless"
	AuditPassedUseless  = "passed_useless"
)

// WriteAuditCSV writes the domain lists used to review false positives
// and false negatives, one row per (resolver, list, domain).
func WriteAuditCSV(w io.Writer, reports []ResolverReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"resolver", "list", "domain"}); err != nil {
		return err
	}
	for _, r := range reports {
		lists := []struct {
			name    string
			domains []string
		}{
			{AuditBlockedUseful, r.BlockedUseful},
			{AuditBlockedUseless, r.BlockedUseless},
			{AuditPassedUseless, r.PassedUseless},
		}
		for _, list := range lists {
			for _, domain := range list.domains {
				if err := cw.Write([]string{r.Resolver.Name, list.name, domain}); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
