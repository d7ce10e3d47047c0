// SPDX-License-Identifier: GPL-3.0-or-later

// Package app implements the dohblock command.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bassosimone/dohblock"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Names of the files written in the output directory.
const (
	MatrixFile  = "matrix.csv"
	SummaryFile = "summary.csv"
	AuditFile   = "audit.csv"
)

// Run parses the command line and runs a measurement.
func Run(ctx context.Context, args []string, stderr io.Writer) error {
	logger := log.NewWithOptions(stderr, log.Options{ReportTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, falling back to the process environment")
	}

	cfg := dohblock.DefaultConfig()
	cfg.ApplyEnv(os.Getenv, logger)

	var formatFlag string
	fset := flag.NewFlagSet("dohblock", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&cfg.ResolversPath, "resolvers", cfg.ResolversPath, "file with one resolver URL per line (required)")
	fset.StringVar(&cfg.DomainsPath, "domains", cfg.DomainsPath, "file with extra domains, as name[,category] per line")
	fset.StringVar(&cfg.CustomBlocklistPath, "custom-blocking-ips", cfg.CustomBlocklistPath, "file with sinkhole IPv4 addresses, one per line")
	fset.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory where to write the CSV reports")
	fset.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "maximum number of concurrent queries")
	fset.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of each query")
	fset.StringVar(&formatFlag, "format", string(cfg.Format), "DoH format: json or wire")
	fset.IntVar(&cfg.TargetDomains, "target", cfg.TargetDomains, "number of domains to measure (0 means all)")
	verbose := fset.Bool("verbose", false, "log each query")
	if err := fset.Parse(args); err != nil {
		return err
	}
	cfg.Format = dohblock.QueryFormat(formatFlag)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := Measure(ctx, cfg, http.DefaultClient, logger)
	return err
}

// Measure loads the catalogs, runs the measurement, writes the reports
// in the output directory and returns the per-resolver reports.
func Measure(ctx context.Context, cfg dohblock.Config, client dohblock.HTTPClient,
	logger *log.Logger) ([]dohblock.ResolverReport, error) {
	// 1. load the configuration sources
	ranges := dohblock.NonRoutableRanges()
	custom := dohblock.NewCustomBlocklist()
	if cfg.CustomBlocklistPath != "" {
		custom = dohblock.LoadCustomBlocklistFile(cfg.CustomBlocklistPath, logger)
	}
	domains := dohblock.LoadDomainsFile(cfg.DomainsPath, cfg.TargetDomains, logger)
	if len(domains) <= 0 {
		return nil, dohblock.ErrNoDomains
	}
	resolvers := dohblock.LoadResolversFile(cfg.ResolversPath, logger)
	if len(resolvers) <= 0 {
		return nil, dohblock.ErrNoResolvers
	}
	logger.Info("loaded configuration", "domains", len(domains), "resolvers", len(resolvers),
		"non_routable_ranges", len(ranges), "custom_blocking_ips", custom.Len())

	// 2. query every domain with every resolver
	prober := dohblock.NewProber(client, cfg.Format)
	prober.Concurrency = cfg.Concurrency
	prober.Timeout = cfg.Timeout
	prober.Logger = logger
	logger.Info("running queries", "count", len(domains)*len(resolvers), "concurrency", cfg.Concurrency)
	pending := prober.Run(ctx, domains, resolvers)

	// 3. classify and store
	store := dohblock.NewStore()
	store.AddAll(dohblock.NewClassifier(ranges, custom).ClassifyAll(pending))

	// 4. aggregate, including after an interruption
	if err := ctx.Err(); err != nil {
		logger.Warn("measurement interrupted, reporting partial results", "error", err)
	}
	reports := dohblock.Analyze(store, resolvers)
	for _, r := range reports {
		logger.Info("resolver summary",
			"resolver", r.Resolver.Name,
			"resolved", r.Blocking.Resolved,
			"blocked", r.Blocking.Blocked,
			"errors", r.Blocking.Errors,
			"blocked_pct", fmt.Sprintf("%.2f", r.Blocking.BlockedPercentage),
			"blocked_useful", len(r.BlockedUseful),
			"passed_useless", len(r.PassedUseless),
		)
	}

	// 5. write the reports
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{MatrixFile, func(w io.Writer) error { return dohblock.WriteMatrixCSV(w, domains, resolvers, store) }},
		{SummaryFile, func(w io.Writer) error { return dohblock.WriteSummaryCSV(w, reports) }},
		{AuditFile, func(w io.Writer) error { return dohblock.WriteAuditCSV(w, reports) }},
	}
	for _, entry := range writers {
		path := filepath.Join(cfg.OutputDir, entry.name)
		if err := writeFile(path, entry.write); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("wrote report", "path", path)
	}
	return reports, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	filep, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(filep); err != nil {
		filep.Close()
		return err
	}
	return filep.Close()
}
