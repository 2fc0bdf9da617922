package scrape

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
)

// DefaultMaxPages counts the homepage.
const DefaultMaxPages = 3

// MaxTextRunes bounds Site.Text so it fits an extraction prompt.
const MaxTextRunes = 12000

// contactKeywords select homepage links worth following, most useful
// first.
var contactKeywords = []string{
	"contact", "equipe", "team", "direction", "management", "leadership",
	"about", "a-propos", "qui-sommes-nous", "mentions-legales", "legal",
}

// fallbackPaths are tried when the homepage links to too few pages.
var fallbackPaths = []string{
	"/contact", "/equipe", "/notre-equipe", "/team", "/qui-sommes-nous",
	"/a-propos", "/about", "/mentions-legales",
}

var teamKeywords = []string{
	"equipe", "team", "about", "a-propos", "qui-sommes-nous", "direction",
	"management", "leadership", "mentions-legales", "legal",
}

// Site is what one visit collected.
type Site struct {
	Home   string   `json:"home"`
	Pages  []string `json:"pages"`
	Emails []string `json:"emails,omitempty"`
	People []Person `json:"people,omitempty"`
	// Text is the visible text of every visited page, truncated.
	Text string `json:"-"`
}

// Crawler visits a bounded number of pages per website.
type Crawler struct {
	fetcher  *Fetcher
	maxPages int
}

// NewCrawler creates a Crawler. maxPages <= 0 selects DefaultMaxPages.
func NewCrawler(f *Fetcher, maxPages int) *Crawler {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Crawler{fetcher: f, maxPages: maxPages}
}

// Visit fetches the homepage of website and up to maxPages-1 contact,
// team or legal pages on the same domain. Only a homepage failure is an
// error; other pages are skipped when they fail.
func (c *Crawler) Visit(ctx context.Context, website string) (*Site, error) {
	home, err := homeURL(website)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("website", home))

	page, err := c.fetcher.Fetch(ctx, home)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: homepage")
	}

	site := &Site{Home: home}
	var text strings.Builder
	people := make(map[string]bool)
	emails := make(map[string]bool)
	collect := func(p *Page) {
		site.Pages = append(site.Pages, p.URL)
		for _, e := range ExtractEmails(p) {
			if !emails[e] {
				emails[e] = true
				site.Emails = append(site.Emails, e)
			}
		}
		for _, person := range ExtractPeople(p.Text, isTeamPage(p.URL)) {
			key := strings.ToLower(person.Name)
			if !people[key] {
				people[key] = true
				site.People = append(site.People, person)
			}
		}
		text.WriteString(p.Text)
		text.WriteString("\n\n")
	}
	collect(page)

	for _, next := range candidatePages(page, home, c.maxPages-1) {
		if ctx.Err() != nil {
			break
		}
		p, err := c.fetcher.Fetch(ctx, next)
		if err != nil {
			log.Debug("scrape: skip page", zap.String("url", next), zap.Error(err))
			continue
		}
		collect(p)
	}

	site.Text = truncateRunes(strings.TrimSpace(text.String()), MaxTextRunes)
	return site, nil
}

// candidatePages picks up to limit same-domain URLs: homepage links
// ranked by keyword, then fallback paths.
func candidatePages(home *Page, homeURL string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	seen := map[string]bool{strings.TrimSuffix(homeURL, "/"): true}
	var out []string
	add := func(u string) {
		key := strings.TrimSuffix(u, "/")
		if len(out) < limit && !seen[key] {
			seen[key] = true
			out = append(out, u)
		}
	}

	for _, kw := range contactKeywords {
		for _, link := range home.Links {
			if !domain.Same(link, homeURL) {
				continue
			}
			if strings.Contains(strings.ToLower(pathOf(link)), kw) {
				add(link)
			}
		}
	}
	base := strings.TrimSuffix(homeURL, "/")
	for _, p := range fallbackPaths {
		add(base + p)
	}
	return out
}

func isTeamPage(pageURL string) bool {
	p := strings.ToLower(pathOf(pageURL))
	for _, kw := range teamKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// homeURL turns a discovered website into the root URL of its host.
func homeURL(website string) (string, error) {
	s := strings.TrimSpace(website)
	if s == "" {
		return "", eris.New("scrape: empty website")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("scrape: invalid website %q", website)
	}
	return u.Scheme + "://" + u.Host, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
