// Package urlkit normalizes submitted URLs and classifies their source
// platform. Both operations are pure and deterministic.
package urlkit

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"LinkVault/internal/domain"
)

// Tracking parameters stripped during normalization. utm_* is matched by
// prefix separately.
var trackedParams = map[string]struct{}{
	"fbclid":     {},
	"gclid":      {},
	"dclid":      {},
	"msclkid":    {},
	"igshid":     {},
	"mc_cid":     {},
	"mc_eid":     {},
	"ref":        {},
	"ref_src":    {},
	"ref_url":    {},
	"spm":        {},
	"_hsenc":     {},
	"_hsmi":      {},
	"vero_id":    {},
	"oly_enc_id": {},
}

// Normalize validates rawURL as an absolute HTTP(S) URL and returns its
// canonical form: lower-cased scheme and host, tracking parameters and
// fragment stripped, default ports dropped. Normalize(Normalize(u)) ==
// Normalize(u) for every valid input.
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", &domain.ValidationError{Reason: "empty URL"}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &domain.ValidationError{Reason: fmt.Sprintf("unparseable URL: %v", err)}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &domain.ValidationError{Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &domain.ValidationError{Reason: "missing host"}
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	port := u.Port()
	switch {
	case port == "", scheme == "http" && port == "80", scheme == "https" && port == "443":
		u.Host = host
	default:
		u.Host = host + ":" + port
	}

	query := u.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			query.Del(key)
			continue
		}
		if _, tracked := trackedParams[lower]; tracked {
			query.Del(key)
		}
	}
	u.RawQuery = query.Encode()
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

// hostRule maps a hostname (or any subdomain of it) to a source type.
// Rules are evaluated in order; first match wins.
type hostRule struct {
	host   string
	source domain.SourceType
}

var hostRules = []hostRule{
	{"twitter.com", domain.SourceTwitter},
	{"x.com", domain.SourceTwitter},
	{"bsky.app", domain.SourceBluesky},
	{"mastodon.social", domain.SourceMastodon},
	{"mstdn.social", domain.SourceMastodon},
	{"fosstodon.org", domain.SourceMastodon},
	{"hachyderm.io", domain.SourceMastodon},
	{"threads.net", domain.SourceThreads},
	{"threads.com", domain.SourceThreads},
	{"arxiv.org", domain.SourceDocument},
}

// Classify maps a normalized URL to exactly one source type, falling back
// to SourceWeb when no platform rule matches. PDF-suffixed paths classify
// as documents regardless of host.
func Classify(normalizedURL string) domain.SourceType {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return domain.SourceWeb
	}

	host := strings.ToLower(u.Hostname())
	for _, rule := range hostRules {
		if host == rule.host || strings.HasSuffix(host, "."+rule.host) {
			return rule.source
		}
	}

	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return domain.SourceDocument
	}

	return domain.SourceWeb
}
