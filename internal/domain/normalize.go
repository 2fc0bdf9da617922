// Package domain extracts comparable domains from URLs, hosts and emails.
package domain

import (
	"net/url"
	"strings"
)

// Normalize extracts a comparable domain from a URL or bare host. The
// scheme, "www." prefix, port, path and query are dropped and the result
// is lower-cased. It returns false for empty input or anything that does
// not look like a dotted host name.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "http://" + strings.TrimPrefix(s, "//")
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")

	if !strings.Contains(host, ".") || strings.ContainsAny(host, " @") {
		return "", false
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", false
	}
	return host, true
}

// MustNormalize returns the normalized domain or "" when raw is unusable.
func MustNormalize(raw string) string {
	d, _ := Normalize(raw)
	return d
}

// FromEmail returns the normalized domain part of an email address.
func FromEmail(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	return Normalize(email[at+1:])
}

// Same reports whether two URLs or hosts normalize to the same domain.
func Same(a, b string) bool {
	da, okA := Normalize(a)
	db, okB := Normalize(b)
	return okA && okB && da == db
}
