// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"bufio"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

// CustomBlocklist is an operator-supplied set of IPv4 literals known to be
// used as sinkholes. Membership is an exact string match.
//
// The zero value is not ready to use; construct using [NewCustomBlocklist].
type CustomBlocklist struct {
	addrs map[string]struct{}
}

// NewCustomBlocklist creates a [*CustomBlocklist] containing the valid addrs.
//
// Invalid literals are silently ignored.
func NewCustomBlocklist(addrs ...string) *CustomBlocklist {
	bl := &CustomBlocklist{addrs: make(map[string]struct{}, len(addrs))}
	for _, addr := range addrs {
		if IsValidIPv4(addr) {
			bl.addrs[addr] = struct{}{}
		}
	}
	return bl
}

// Contains returns whether addr is in the blocklist. A nil blocklist is empty.
func (bl *CustomBlocklist) Contains(addr string) bool {
	if bl == nil {
		return false
	}
	_, found := bl.addrs[addr]
	return found
}

// Len returns the number of addresses in the blocklist.
func (bl *CustomBlocklist) Len() int {
	if bl == nil {
		return 0
	}
	return len(bl.addrs)
}

// Addrs returns the sorted addresses in the blocklist.
func (bl *CustomBlocklist) Addrs() []string {
	if bl == nil {
		return nil
	}
	out := make([]string, 0, len(bl.addrs))
	for addr := range bl.addrs {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

// LoadCustomBlocklist reads newline-delimited IPv4 literals from r.
//
// Lines are trimmed; blank lines and lines starting with "#" are skipped;
// lines that are not valid IPv4 literals are dropped with a warning. The
// returned error only reports failures reading from r, in which case the
// blocklist contains whatever was read before the failure.
func LoadCustomBlocklist(r io.Reader, logger *log.Logger) (*CustomBlocklist, error) {
	logger = loggerOrDefault(logger)
	bl := NewCustomBlocklist()
	err := scanLines(r, func(lineno int, line string) {
		if !IsValidIPv4(line) {
			logger.Warn("skipping invalid custom blocking address", "line", lineno, "value", line)
			return
		}
		bl.addrs[line] = struct{}{}
	})
	return bl, err
}

// LoadCustomBlocklistFile is like [LoadCustomBlocklist] but reads from a file.
//
// A missing or unreadable file is not fatal: we log a warning and return
// what we could load, possibly an empty blocklist.
func LoadCustomBlocklistFile(path string, logger *log.Logger) *CustomBlocklist {
	logger = loggerOrDefault(logger)
	filep, err := os.Open(path)
	if err != nil {
		logger.Warn("cannot open custom blocking addresses file", "path", path, "error", err)
		return NewCustomBlocklist()
	}
	defer filep.Close()
	bl, err := LoadCustomBlocklist(filep, logger)
	if err != nil {
		logger.Warn("cannot read custom blocking addresses file", "path", path, "error", err)
	}
	logger.Debug("loaded custom blocking addresses", "path", path, "count", bl.Len())
	return bl
}

// scanLines calls fn for each trimmed, non-blank, non-comment line of r.
func scanLines(r io.Reader, fn func(lineno int, line string)) error {
	scanner := bufio.NewScanner(r)
	var lineno int
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(lineno, line)
	}
	return scanner.Err()
}

// loggerOrDefault returns logger or the charmbracelet/log default logger.
func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
