package verify

import (
	"net/url"
	"strings"
)

// multiLabelSuffixes are public suffixes that span two labels, so the
// registrable domain keeps three.
var multiLabelSuffixes = map[string]struct{}{
	"co.uk":  {},
	"com.au": {},
	"co.in":  {},
	"co.jp":  {},
	"com.br": {},
	"com.mx": {},
}

// NormalizeDomain reduces a URL or hostname to its lowercase registrable
// domain: scheme, "www." prefix, path, port, and trailing dots stripped,
// subdomains collapsed. Returns "" when no host can be recovered.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	host := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Hostname() == "" {
			return ""
		}
		host = parsed.Hostname()
	} else {
		// Bare host, possibly with a path or port attached.
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host, "]") {
			host = host[:i]
		}
	}

	host = strings.ToLower(strings.Trim(host, "."))
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") {
		return ""
	}
	return registrableDomain(host)
}

// registrableDomain collapses subdomains to the registrable domain,
// keeping a third label for known multi-label public suffixes.
func registrableDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}

	tailTwo := strings.Join(parts[len(parts)-2:], ".")
	if _, ok := multiLabelSuffixes[tailTwo]; ok && len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return tailTwo
}

// DomainsMatch reports whether the observed registrable domain belongs to
// the verified one: equal, or a subdomain of it.
func DomainsMatch(observed, verified string) bool {
	if observed == "" || verified == "" {
		return false
	}
	return observed == verified || strings.HasSuffix(observed, "."+verified)
}
