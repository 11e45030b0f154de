package utils

import (
	"net/url"
	"strings"
)

// Origin returns scheme://host of an absolute http(s) URL, lower-cased, or ""
// when raw is not one.
func Origin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	return scheme + "://" + strings.ToLower(u.Host)
}

// RedirectAllowed reports whether target is an absolute http(s) URL sharing the
// origin of one of allowed. URLs carrying credentials are refused.
func RedirectAllowed(target string, allowed []string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.User != nil {
		return false
	}
	origin := Origin(target)
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if Origin(a) == origin {
			return true
		}
	}
	return false
}
