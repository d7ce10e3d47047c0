// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"cmp"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/idna"
)

// DefaultTargetDomains is the default size of the domain catalog.
const DefaultTargetDomains = 100

// ErrNoDomains indicates that the domain catalog is empty.
var ErrNoDomains = errors.New("no domains to measure")

// builtinDomains are always part of the catalog.
var builtinDomains = []Domain{
	{"rutube.ru", CategoryUseful},
	{"vkvideo.ru", CategoryUseful},
	{"photosight.ru", CategoryQuestionable},
	{"rutracker.org", CategoryQuestionable},
	{"pinterest.com", CategoryQuestionable},
	{"forcesafesearch.google.com", CategoryUseful},
	{"familysearch.yandex.ru", CategoryUseful},
	{"restrict.youtube.com", CategoryUseful},
	{"tiktok.com", CategoryUseless},
	{"xxx.com", CategoryUseless},
	{"pornhub.com", CategoryUseless},
	{"reddit.com", CategoryQuestionable},
	{"tinder.com", CategoryUseless},
	{"onlyfans.com", CategoryUseless},
}

// fillerDomains complete the catalog up to the target size.
var fillerDomains = []Domain{
	// social networks and time wasters
	{"instagram.com", CategoryUseless},
	{"facebook.com", CategoryUseless},
	{"twitter.com", CategoryUseless},
	{"discord.com", CategoryQuestionable},
	{"tumblr.com", CategoryUseless},
	{"4chan.org", CategoryUseless},
	{"twitch.tv", CategoryQuestionable},

	// adult content
	{"chaturbate.com", CategoryUseless},
	{"stripchat.com", CategoryUseless},
	{"xhamster.com", CategoryUseless},
	{"redtube.com", CategoryUseless},
	{"xvideos.com", CategoryUseless},
	{"eroprofile.com", CategoryUseless},
	{"hentai.xxx", CategoryUseless},
	{"youporn.com", CategoryUseless},
	{"spankbang.com", CategoryUseless},
	{"manyvids.com", CategoryUseless},

	// ads and analytics
	{"google-analytics.com", CategoryUseless},
	{"doubleclick.net", CategoryUseless},
	{"facebook.net", CategoryUseless},
	{"ad.doubleclick.net", CategoryUseless},
	{"ads.google.com", CategoryUseless},
	{"tracking.com", CategoryUseless},
	{"analytics.yandex.ru", CategoryUseless},
	{"mc.yandex.ru", CategoryUseless},
	{"ads.vk.com", CategoryUseless},
	{"googlesyndication.com", CategoryUseless},
	{"amazon-adsystem.com", CategoryUseless},
	{"adnxs.com", CategoryUseless},
	{"criteo.com", CategoryUseless},
	{"taboola.com", CategoryUseless},
	{"outbrain.com", CategoryUseless},
	{"quantserve.com", CategoryUseless},
	{"mixpanel.com", CategoryUseless},
	{"segment.com", CategoryUseless},
	{"hotjar.com", CategoryUseless},
	{"datadoghq.com", CategoryUseless},
	{"newrelic.com", CategoryUseless},
	{"sentry.io", CategoryUseless},
	{"bat.bing.com", CategoryUseless},
	{"ads.yahoo.com", CategoryUseless},
	{"ads.msn.com", CategoryUseless},

	// VPN providers
	{"nordvpn.com", CategoryUseful},
	{"expressvpn.com", CategoryUseful},
	{"protonvpn.com", CategoryUseful},
	{"surfshark.com", CategoryUseful},
	{"privateinternetaccess.com", CategoryUseful},
	{"cyberghostvpn.com", CategoryUseful},
	{"purevpn.com", CategoryUseful},
	{"vyprvpn.com", CategoryUseful},
	{"ipvanish.com", CategoryUseful},
	{"torguard.net", CategoryUseful},

	// general purpose
	{"google.com", CategoryUseful},
	{"yandex.ru", CategoryUseful},
	{"youtube.com", CategoryUseful},
	{"wikipedia.org", CategoryUseful},
	{"github.com", CategoryUseful},
	{"stackoverflow.com", CategoryUseful},
	{"microsoft.com", CategoryUseful},
	{"apple.com", CategoryUseful},
	{"cloudflare.com", CategoryUseful},
	{"openai.com", CategoryUseful},
	{"amazon.com", CategoryUseful},
	{"ebay.com", CategoryUseful},
	{"aliexpress.com", CategoryUseful},
	{"telegram.org", CategoryUseful},
	{"signal.org", CategoryUseful},
	{"whatsapp.com", CategoryUseful},
	{"zoom.us", CategoryUseful},
	{"slack.com", CategoryUseful},
	{"getpocket.com", CategoryUseful},
	{"evernote.com", CategoryUseful},
	{"dropbox.com", CategoryUseful},
	{"onedrive.live.com", CategoryUseful},
	{"drive.google.com", CategoryUseful},
	{"translate.google.com", CategoryUseful},
	{"bing.com", CategoryUseful},
	{"duckduckgo.com", CategoryUseful},
	{"mozilla.org", CategoryUseful},
	{"brave.com", CategoryUseful},
	{"torproject.org", CategoryUseful},
	{"fsf.org", CategoryUseful},
	{"opensource.org", CategoryUseful},
}

// NormalizeDomain lowercases, trims and IDNA-encodes a domain name.
func NormalizeDomain(name string) (string, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return "", errors.New("empty domain name")
	}
	return idna.Lookup.ToASCII(name)
}

// domainCatalog accumulates unique domains in insertion order.
type domainCatalog struct {
	byName map[string]struct{}
	list   []Domain
	target int
}

func (dc *domainCatalog) full() bool {
	return dc.target > 0 && len(dc.list) >= dc.target
}

func (dc *domainCatalog) add(d Domain) bool {
	if _, found := dc.byName[d.Name]; found {
		return false
	}
	dc.byName[d.Name] = struct{}{}
	dc.list = append(dc.list, d)
	return true
}

// DefaultDomains returns the built-in catalog filled up to target entries.
//
// A zero or negative target means every built-in domain.
func DefaultDomains(target int) []Domain {
	dc := newDomainCatalog(target)
	return dc.sorted()
}

func newDomainCatalog(target int) *domainCatalog {
	dc := &domainCatalog{byName: make(map[string]struct{}), target: target}
	for _, d := range builtinDomains {
		dc.add(d)
	}
	for _, d := range fillerDomains {
		if dc.full() {
			break
		}
		dc.add(d)
	}
	return dc
}

// sorted returns the domains ordered by category and name, capped at target.
func (dc *domainCatalog) sorted() []Domain {
	out := slices.Clone(dc.list)
	slices.SortFunc(out, func(a, b Domain) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Name, b.Name))
	})
	if dc.target > 0 && len(out) > dc.target {
		out = out[:dc.target]
	}
	return out
}

// LoadDomains returns the built-in catalog extended with the domains read
// from extra, which may be nil.
//
// Each line of extra is either "name" or "name,category". Without a category
// we use [CategoryQuestionable]. Names are normalized with [NormalizeDomain]
// and deduplicated; invalid lines are skipped with a warning. We stop adding
// domains once the catalog contains target entries (zero means no limit). The
// result is sorted by category and name.
func LoadDomains(extra io.Reader, target int, logger *log.Logger) ([]Domain, error) {
	logger = loggerOrDefault(logger)
	dc := newDomainCatalog(target)
	if extra == nil {
		return dc.sorted(), nil
	}
	err := scanLines(extra, func(lineno int, line string) {
		if dc.full() {
			return
		}
		d, err := parseDomainLine(line)
		if err != nil {
			logger.Warn("skipping invalid domain", "line", lineno, "value", line, "error", err)
			return
		}
		if !dc.add(d) {
			logger.Debug("skipping duplicate domain", "line", lineno, "domain", d.Name)
		}
	})
	return dc.sorted(), err
}

func parseDomainLine(line string) (Domain, error) {
	name, rawCategory, hasCategory := strings.Cut(line, ",")
	normalized, err := NormalizeDomain(name)
	if err != nil {
		return Domain{}, err
	}
	d := Domain{Name: normalized, Category: CategoryQuestionable}
	if hasCategory {
		if d.Category, err = ParseDomainCategory(rawCategory); err != nil {
			return Domain{}, err
		}
	}
	return d, nil
}

// LoadDomainsFile is like [LoadDomains] but reads the extra domains from path.
//
// An empty path means no extra domains. A missing or unreadable file is logged
// as a warning and we fall back to the built-in catalog.
func LoadDomainsFile(path string, target int, logger *log.Logger) []Domain {
	logger = loggerOrDefault(logger)
	if path == "" {
		return DefaultDomains(target)
	}
	filep, err := os.Open(path)
	if err != nil {
		logger.Warn("cannot open domains file", "path", path, "error", err)
		return DefaultDomains(target)
	}
	defer filep.Close()
	domains, err := LoadDomains(filep, target, logger)
	if err != nil {
		logger.Warn("cannot read domains file", "path", path, "error", err)
	}
	return domains
}
