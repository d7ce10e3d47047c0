// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultQueryFormat is the default [QueryFormat].
const DefaultQueryFormat = FormatJSON

// Config contains the settings of a measurement run.
type Config struct {
	// ResolversPath is the MANDATORY file listing resolver URLs.
	ResolversPath string

	// DomainsPath is the OPTIONAL file listing extra domains.
	DomainsPath string

	// CustomBlocklistPath is the OPTIONAL file listing sinkhole addresses.
	CustomBlocklistPath string

	// OutputDir is the directory where we write the CSV reports.
	OutputDir string

	// Concurrency is the maximum number of in-flight queries.
	Concurrency int

	// Timeout is the per-query timeout.
	Timeout time.Duration

	// Format selects the DoH wire format.
	Format QueryFormat

	// TargetDomains is the domain catalog size; zero means no limit.
	TargetDomains int
}

// DefaultConfig returns a [Config] with default values.
func DefaultConfig() Config {
	return Config{
		OutputDir:     ".",
		Concurrency:   DefaultConcurrency,
		Timeout:       DefaultTimeout,
		Format:        DefaultQueryFormat,
		TargetDomains: DefaultTargetDomains,
	}
}

// Environment variables read by [*Config.ApplyEnv].
const (
	EnvResolvers       = "DOHBLOCK_RESOLVERS"
	EnvDomains         = "DOHBLOCK_DOMAINS"
	EnvCustomBlocklist = "DOHBLOCK_CUSTOM_BLOCKING_IPS"
	EnvOutputDir       = "DOHBLOCK_OUTPUT_DIR"
	EnvConcurrency     = "DOHBLOCK_CONCURRENCY"
	EnvTimeout         = "DOHBLOCK_TIMEOUT"
	EnvFormat          = "DOHBLOCK_FORMAT"
)

// ApplyEnv overrides the fields whose environment variable is set and
// non-empty. Unparsable values are ignored with a warning.
func (c *Config) ApplyEnv(getenv func(string) string, logger *log.Logger) {
	logger = loggerOrDefault(logger)
	paths := []struct {
		key   string
		field *string
	}{
		{EnvResolvers, &c.ResolversPath},
		{EnvDomains, &c.DomainsPath},
		{EnvCustomBlocklist, &c.CustomBlocklistPath},
		{EnvOutputDir, &c.OutputDir},
	}
	for _, entry := range paths {
		if v := getenv(entry.key); v != "" {
			*entry.field = v
		}
	}
	if v := getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Warn("invalid concurrency override", "env", EnvConcurrency, "value", v)
		} else {
			c.Concurrency = n
		}
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("invalid timeout override", "env", EnvTimeout, "value", v)
		} else {
			c.Timeout = d
		}
	}
	if v := getenv(EnvFormat); v != "" {
		f, err := ParseQueryFormat(v)
		if err != nil {
			logger.Warn("invalid format override", "env", EnvFormat, "value", v)
		} else {
			c.Format = f
		}
	}
}

// Validate returns an error if the configuration cannot be used.
func (c *Config) Validate() error {
	var errv []error
	if c.ResolversPath == "" {
		errv = append(errv, errors.New("missing resolvers file"))
	}
	if c.Concurrency <= 0 {
		errv = append(errv, fmt.Errorf("concurrency must be positive: %d", c.Concurrency))
	}
	if c.Timeout <= 0 {
		errv = append(errv, fmt.Errorf("timeout must be positive: %s", c.Timeout))
	}
	if _, err := ParseQueryFormat(string(c.Format)); err != nil {
		errv = append(errv, err)
	}
	if c.TargetDomains < 0 {
		errv = append(errv, fmt.Errorf("target domains must not be negative: %d", c.TargetDomains))
	}
	return errors.Join(errv...)
}
