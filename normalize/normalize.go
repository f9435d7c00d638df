// Package normalize provides per-publisher URL normalizers.
//
// Every normalizer is idempotent and never fails: when it cannot make sense
// of its input or of the AU configuration it returns the URL unchanged.
package normalize

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"

	"github.com/lehigh-university-libraries/auplugins/au"
)

// Normalizer rewrites a URL for one AU.
type Normalizer interface {
	Normalize(raw string, cfg au.Config) string
}

// Func adapts a function to Normalizer.
type Func func(raw string, cfg au.Config) string

// Normalize implements Normalizer.
func (f Func) Normalize(raw string, cfg au.Config) string {
	return f(raw, cfg)
}

// Chain applies normalizers in order. A normalizer that panics is skipped.
type Chain []Normalizer

// Normalize implements Normalizer.
func (c Chain) Normalize(raw string, cfg au.Config) string {
	for _, n := range c {
		raw = guard(n, raw, cfg)
	}
	return raw
}

func guard(n Normalizer, raw string, cfg au.Config) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("url normalizer failed", "url", raw, "error", fmt.Sprint(r))
			out = raw
		}
	}()
	return n.Normalize(raw, cfg)
}

// Identity leaves URLs alone.
var Identity Normalizer = Func(func(raw string, _ au.Config) string { return raw })

// splitURL cuts raw into the part before the query, the raw query and the
// fragment (with its '#').
func splitURL(raw string) (base, query, fragment string, hasQuery bool) {
	base = raw
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base, fragment = base[:i], base[i:]
	}
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base, query, hasQuery = base[:i], base[i+1:], true
	}
	return base, query, fragment, hasQuery
}

// RemoveQueryArgs drops the named query arguments and keeps the others in
// their original order and encoding.
func RemoveQueryArgs(names ...string) Normalizer {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	return Func(func(raw string, _ au.Config) string {
		base, query, fragment, hasQuery := splitURL(raw)
		if !hasQuery {
			return raw
		}
		var kept []string
		for _, pair := range strings.Split(query, "&") {
			if pair == "" {
				continue
			}
			key, _, _ := strings.Cut(pair, "=")
			if k, err := url.QueryUnescape(key); err == nil {
				key = k
			}
			if !drop[key] {
				kept = append(kept, pair)
			}
		}
		if len(kept) == 0 {
			return base + fragment
		}
		return base + "?" + strings.Join(kept, "&") + fragment
	})
}

// SortQueryArgs orders query arguments by name so equivalent URLs compare
// equal.
func SortQueryArgs() Normalizer {
	return Func(func(raw string, _ au.Config) string {
		out, err := purell.NormalizeURLString(raw, purell.FlagSortQuery)
		if err != nil {
			return raw
		}
		return out
	})
}

// sameHost reports whether u is on the AU's base host and returns the base
// URL. Ports are ignored.
func sameHost(u *url.URL, cfg au.Config) (*url.URL, bool) {
	base, err := cfg.BaseURL()
	if err != nil || base.Host == "" {
		return nil, false
	}
	return base, strings.EqualFold(u.Hostname(), base.Hostname())
}

// ForceHTTPS rewrites http URLs on the AU's own base host to https, dropping
// an explicit :80. Other hosts are left alone.
func ForceHTTPS() Normalizer {
	return Func(func(raw string, cfg au.Config) string {
		u, err := url.Parse(raw)
		if err != nil || !strings.EqualFold(u.Scheme, "http") {
			return raw
		}
		if _, ok := sameHost(u, cfg); !ok {
			return raw
		}
		rest := raw[len(u.Scheme):]
		if u.Port() == "80" {
			rest = strings.Replace(rest, u.Host, u.Hostname(), 1)
		}
		return "https" + rest
	})
}

// MatchBaseScheme gives URLs on the AU's base host the scheme of base_url.
func MatchBaseScheme() Normalizer {
	return Func(func(raw string, cfg au.Config) string {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" {
			return raw
		}
		base, ok := sameHost(u, cfg)
		if !ok || strings.EqualFold(u.Scheme, base.Scheme) {
			return raw
		}
		return strings.ToLower(base.Scheme) + raw[len(u.Scheme):]
	})
}

// AddWWW inserts "www." when base_url has it and the URL is on the same host
// without it.
func AddWWW() Normalizer {
	return Func(func(raw string, cfg au.Config) string {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return raw
		}
		base, err := cfg.BaseURL()
		if err != nil {
			return raw
		}
		baseHost := strings.ToLower(base.Hostname())
		bare, hasWWW := strings.CutPrefix(baseHost, "www.")
		if !hasWWW || !strings.EqualFold(u.Hostname(), bare) {
			return raw
		}
		i := strings.Index(raw, u.Host)
		if i < 0 {
			return raw
		}
		return raw[:i] + "www." + raw[i:]
	})
}

// StripSubstring removes every occurrence of s.
func StripSubstring(s string) Normalizer {
	return Func(func(raw string, _ au.Config) string {
		if s == "" {
			return raw
		}
		for strings.Contains(raw, s) {
			raw = strings.ReplaceAll(raw, s, "")
		}
		return raw
	})
}

// StripPattern removes every match of re, repeating until a pass changes
// nothing so that matches exposed by a removal go too. Each pass that changes
// the string shortens it, which bounds the loop.
func StripPattern(re *regexp.Regexp) Normalizer {
	return Func(func(raw string, _ au.Config) string {
		for re.MatchString(raw) {
			next := re.ReplaceAllString(raw, "")
			if next == raw {
				break
			}
			raw = next
		}
		return raw
	})
}

// DefaultPurellFlags are safe for any site: lowercase scheme and host, drop
// the default port, and canonical percent-encoding.
const DefaultPurellFlags = purell.FlagsSafe

// Purell applies generic purell normalization.
func Purell(flags purell.NormalizationFlags) Normalizer {
	return Func(func(raw string, _ au.Config) string {
		out, err := purell.NormalizeURLString(raw, flags)
		if err != nil {
			slog.Debug("url not normalized", "url", raw, "error", err)
			return raw
		}
		return out
	})
}
