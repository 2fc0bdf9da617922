package scrape

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// Page is a fetched HTML page reduced to what contact extraction needs.
type Page struct {
	URL        string
	StatusCode int
	Title      string
	// Text holds the visible text, one block element per line.
	Text    string
	Links   []string
	Mailtos []string
	// Raw is the unparsed body, scanned for addresses hidden in scripts
	// and attributes.
	Raw string
}

// Lines returns the non-empty lines of the page text.
func (p *Page) Lines() []string {
	return linesOf(p.Text)
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Head:     true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Address: true,
	atom.Dt: true, atom.Dd: true, atom.Figcaption: true,
	atom.Blockquote: true, atom.Nav: true, atom.Ul: true, atom.Ol: true,
}

// Parse reads an HTML document fetched from pageURL. Relative links are
// resolved against pageURL.
func Parse(pageURL string, body []byte) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse url %s", pageURL)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	p := &Page{URL: pageURL, Raw: string(body)}
	var text strings.Builder
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.A {
				p.addLink(base, attr(n, "href"), seen)
			}
		}
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blocks[n.DataAtom] {
			text.WriteByte('\n')
		}
	}

	// The title lives in <head>, which the text walk skips.
	if t := findFirst(doc, atom.Title); t != nil {
		p.Title = textnorm.CollapseSpace(nodeText(t))
	}
	walk(doc)
	p.Text = strings.Join(linesOf(text.String()), "\n")
	return p, nil
}

func (p *Page) addLink(base *url.URL, href string, seen map[string]bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return
	}
	if strings.HasPrefix(strings.ToLower(href), "mailto:") {
		addr := href[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr, err := url.PathUnescape(addr); err == nil && addr != "" {
			p.Mailtos = append(p.Mailtos, addr)
		}
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return
	}
	abs.Fragment = ""
	s := abs.String()
	if !seen[s] {
		seen[s] = true
		p.Links = append(p.Links, s)
	}
}

func linesOf(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = textnorm.CollapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
