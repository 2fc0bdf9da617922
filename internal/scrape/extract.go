package scrape

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// Person is a name and job title found on a page.
type Person struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// artefacts are substrings of addresses that come from site builders,
// tracking scripts or image file names rather than real mailboxes.
var artefacts = []string{
	"example.", "sentry", "wixpress", "wix.com", "@domain.", "@email.",
	"yourname", "votre-email", "nom@", ".png", ".jpg", ".jpeg", ".gif",
	".webp", ".svg",
}

// ExtractEmails returns the distinct addresses of a page, lower-cased,
// in order of first appearance: mailto links, then visible text, then the
// raw source.
func ExtractEmails(p *Page) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(candidates ...string) {
		for _, c := range candidates {
			e, ok := cleanEmail(c)
			if ok && !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	for _, m := range p.Mailtos {
		add(emailRe.FindAllString(m, -1)...)
	}
	add(emailRe.FindAllString(p.Text, -1)...)
	add(emailRe.FindAllString(p.Raw, -1)...)
	return out
}

func cleanEmail(s string) (string, bool) {
	e := strings.ToLower(strings.Trim(strings.TrimSpace(s), `<>"'`))
	if len(e) < 5 || len(e) > 100 {
		return "", false
	}
	for _, a := range artefacts {
		if strings.Contains(e, a) {
			return "", false
		}
	}
	return e, true
}

var (
	// "Jean Dupont - Gérant", "Marie-Claire Roux : Directrice commerciale"
	dashedRe = regexp.MustCompile(`(\p{Lu}[\p{L}'-]+(?:[ \t]+\p{Lu}[\p{L}'-]+){1,3})[ \t]*[-–—:][ \t]*([^\n|•;]{3,49})`)
	// "Gérant : Jean Dupont", "Président M. Paul Martin"
	legalRe = regexp.MustCompile(`([Gg][ée]rant|[Pp]r[ée]sident|[Dd]irecteur|[Dd]irectrice)e?[ \t]*:?[ \t]*(?:M\.|Mme|Monsieur|Madame)?[ \t]*(\p{Lu}[\p{L}'-]+(?:[ \t]+\p{Lu}[\p{L}'-]+){1,2})`)
)

var legalTitles = map[string]string{
	"gerant":     "Gérant",
	"president":  "Président",
	"directeur":  "Directeur",
	"directrice": "Directrice",
}

// ExtractPeople finds name and title pairs in page text. Pairs written on
// consecutive lines are only read when teamPage is set, since elsewhere a
// heading followed by a job word is usually navigation. Names are
// de-duplicated case-insensitively, keeping the first title seen.
func ExtractPeople(text string, teamPage bool) []Person {
	var out []Person
	seen := make(map[string]bool)
	add := func(name, title string) {
		name = textnorm.CollapseSpace(name)
		title = cutPosition(title)
		if !ValidName(name) || !ValidPosition(title) {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Person{Name: name, Title: title})
	}

	if teamPage {
		lines := linesOf(text)
		for i := 0; i+1 < len(lines); i++ {
			add(lines[i], lines[i+1])
		}
	}
	for _, m := range dashedRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, m := range legalRe.FindAllStringSubmatch(text, -1) {
		add(m[2], legalTitles[textnorm.Fold(m[1])])
	}
	return out
}

// cutPosition trims a captured title at the first sentence break.
func cutPosition(s string) string {
	for _, sep := range []string{". ", " | ", ", ", " - ", " – "} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimRight(textnorm.CollapseSpace(s), ".")
}

var nameStopwords = map[string]bool{
	"de": true, "la": true, "le": true, "du": true, "des": true, "et": true,
	"ou": true, "à": true, "au": true, "aux": true, "en": true, "pour": true,
	"par": true, "sur": true, "dans": true, "avec": true, "sans": true,
	"nous": true, "notre": true, "votre": true, "leur": true, "son": true,
	"sa": true, "ses": true, "un": true, "une": true,
}

// ValidName reports whether s reads as a person's full name: 5 to 50
// characters, no digits, and at least two capitalized words of three or
// more letters that are not French function words. Job titles are not
// names.
func ValidName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 5 || n > 50 || strings.ContainsAny(s, "@0123456789/") {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 2 {
		return false
	}
	capitalized := 0
	for _, w := range words {
		if positionWords[textnorm.Fold(w)] {
			return false
		}
		if utf8.RuneCountInString(w) < 3 || nameStopwords[strings.ToLower(w)] {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			capitalized++
		}
	}
	return capitalized >= 2
}

var positionKeywords = []string{
	"directeur", "directrice", "gerant", "gerante", "president", "presidente",
	"responsable", "manager", "chef", "fondateur", "fondatrice", "ceo", "cto",
	"commercial", "marketing", "developpement", "achats", "ventes",
}

var positionWords = func() map[string]bool {
	m := make(map[string]bool, len(positionKeywords))
	for _, k := range positionKeywords {
		m[k] = true
	}
	return m
}()

// ValidPosition reports whether s reads as a job title.
func ValidPosition(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 3 || n > 100 {
		return false
	}
	folded := textnorm.Fold(s)
	for _, k := range positionKeywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}
