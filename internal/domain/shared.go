package domain

import (
	"net/url"
	"strings"
)

// sharedHosts serve pages for many unrelated businesses. A listing whose
// website lives on one of them (or a subdomain) does not identify the
// company by its host.
var sharedHosts = []string{
	"facebook.com", "fb.com", "instagram.com", "linkedin.com", "twitter.com", "x.com",
	"tiktok.com", "youtube.com", "linktr.ee", "sites.google.com", "business.site",
	"google.com", "goo.gl", "g.page", "wixsite.com", "wordpress.com", "blogspot.com",
	"jimdofree.com", "webnode.fr", "pagesjaunes.fr", "yelp.com", "yelp.fr",
	"tripadvisor.com", "tripadvisor.fr", "doctolib.fr", "planity.com", "ubereats.com",
	"deliveroo.fr", "calendly.com",
}

// IsShared reports whether host (normalized) is a multi-tenant host.
func IsShared(host string) bool {
	for _, s := range sharedHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// Company returns the normalized domain of raw when it can stand for the
// company itself: it fails for shared hosts, where no mailbox or
// organization search can be derived from the host.
func Company(raw string) (string, bool) {
	host, ok := Normalize(raw)
	if !ok || IsShared(host) {
		return "", false
	}
	return host, true
}

// SiteKey returns the identity of a website. It is the normalized domain
// for a company's own site and host plus path on a shared host, where
// the path names the tenant. A shared host without a path identifies
// nobody and yields false.
func SiteKey(raw string) (string, bool) {
	host, ok := Normalize(raw)
	if !ok {
		return "", false
	}
	if !IsShared(host) {
		return host, true
	}

	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "://") {
		s = "http://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(strings.Trim(u.EscapedPath(), "/"))
	if path == "" {
		return "", false
	}
	return host + "/" + path, true
}
