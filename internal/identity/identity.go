// Package identity derives stable dedup keys from posting links.
//
// The identity of a posting is its canonical link: lowercased scheme and
// host, no fragment, and the query stripped of tracking parameters. Titles
// are never part of the key because listing sites render them inconsistently
// and rewrite them between scrapes.
package identity

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var ErrBadLink = errors.New("identity: link is empty or unparsable")

// Canonical normalizes a link into its identity form. Unparsable input is
// returned trimmed but otherwise untouched; use FromLink when the caller
// needs the failure surfaced.
func Canonical(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		if isTrackingParam(k) {
			q.Del(k)
		}
	}

	// deterministic query ordering
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FromLink computes the identity for a candidate link. Links that cannot be
// parsed into an absolute URL are rejected: a posting we cannot key cannot
// be deduplicated safely.
func FromLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrBadLink
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrBadLink
	}
	return Canonical(raw), nil
}

func isTrackingParam(k string) bool {
	lk := strings.ToLower(k)
	if strings.HasPrefix(lk, "utm_") || lk == "utm" {
		return true
	}
	switch lk {
	case "gclid", "fbclid", "msclkid", "mc_cid", "mc_eid", "mkt_tok":
		return true
	}
	return false
}
