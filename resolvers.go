// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"

	"github.com/charmbracelet/log"
)

// ErrNoResolvers indicates that the resolver catalog is empty.
var ErrNoResolvers = errors.New("no resolvers to measure")

// ParseResolver validates a resolver URL and derives its short name.
//
// We accept "https" and "http" URLs with a host, which are DoH resolvers,
// and "udp://host:port" URLs, which are plain DNS resolvers useful as a
// baseline. The short name is the URL host.
func ParseResolver(rawURL string) (DoHResolver, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return DoHResolver{}, err
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return DoHResolver{}, fmt.Errorf("resolver URL without host: %q", rawURL)
	}
	switch parsed.Scheme {
	case "https", "http":
	case "udp":
		if _, err := resolveEndpoint(parsed.Host); err != nil {
			return DoHResolver{}, err
		}
	default:
		return DoHResolver{}, fmt.Errorf("unsupported resolver URL scheme: %q", rawURL)
	}
	return DoHResolver{URL: rawURL, Name: parsed.Host}, nil
}

// LoadResolvers reads one resolver URL per line from r.
//
// Blank lines and "#" comments are skipped. Invalid or duplicate URLs
// are skipped with a warning. Resolvers sharing a host are renamed with
// [DisambiguateResolverNames]. The returned error only reports failures
// reading from r.
func LoadResolvers(r io.Reader, logger *log.Logger) ([]DoHResolver, error) {
	logger = loggerOrDefault(logger)
	seen := make(map[string]struct{})
	out := []DoHResolver{}
	err := scanLines(r, func(lineno int, line string) {
		resolver, err := ParseResolver(line)
		if err != nil {
			logger.Warn("skipping invalid resolver URL", "line", lineno, "value", line, "error", err)
			return
		}
		if _, found := seen[resolver.URL]; found {
			logger.Warn("skipping duplicate resolver URL", "line", lineno, "value", line)
			return
		}
		seen[resolver.URL] = struct{}{}
		out = append(out, resolver)
	})
	return DisambiguateResolverNames(out), err
}

// DisambiguateResolverNames returns a copy of resolvers where names shared
// by more than one resolver become host plus path, and, should those still
// collide, the full URL. The URL is unique, so the resulting names are too.
func DisambiguateResolverNames(resolvers []DoHResolver) []DoHResolver {
	out := slices.Clone(resolvers)
	renameCollisions(out, func(r DoHResolver) string {
		parsed, err := url.Parse(r.URL)
		if err != nil {
			return r.URL
		}
		return parsed.Host + parsed.EscapedPath()
	})
	renameCollisions(out, func(r DoHResolver) string {
		return r.URL
	})
	return out
}

// renameCollisions applies rename to every resolver whose name is not unique.
func renameCollisions(resolvers []DoHResolver, rename func(DoHResolver) string) {
	count := make(map[string]int)
	for _, r := range resolvers {
		count[r.Name]++
	}
	for idx := range resolvers {
		if count[resolvers[idx].Name] > 1 {
			resolvers[idx].Name = rename(resolvers[idx])
		}
	}
}

// LoadResolversFile is like [LoadResolvers] but reads from path.
//
// A missing or unreadable file is logged as a warning and yields what we
// could load, possibly nothing.
func LoadResolversFile(path string, logger *log.Logger) []DoHResolver {
	logger = loggerOrDefault(logger)
	filep, err := os.Open(path)
	if err != nil {
		logger.Warn("cannot open resolvers file", "path", path, "error", err)
		return []DoHResolver{}
	}
	defer filep.Close()
	resolvers, err := LoadResolvers(filep, logger)
	if err != nil {
		logger.Warn("cannot read resolvers file", "path", path, "error", err)
	}
	return resolvers
}
