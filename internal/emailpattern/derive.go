// Package emailpattern infers a company's email naming convention and
// synthesizes addresses for named people.
package emailpattern

import (
	"strings"
	"unicode"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// Pattern names a local-part convention.
type Pattern string

const (
	PatternNone      Pattern = ""
	PatternFirstLast Pattern = "first.last"
	PatternInitial   Pattern = "f.last"
	PatternConcat    Pattern = "firstlast"
)

// minConcatLength is the shortest undotted local part read as firstlast.
const minConcatLength = 7

// GenericLocalParts are shared mailbox aliases that say nothing about a
// person's naming convention.
var GenericLocalParts = []string{
	"contact", "info", "hello", "bonjour", "commercial", "accueil",
	"support", "sales", "service", "admin", "webmaster", "noreply",
	"no-reply", "marketing",
}

// Result is a synthesized address.
type Result struct {
	Email      string           `json:"email"`
	Pattern    Pattern          `json:"pattern"`
	Confidence model.Confidence `json:"confidence"`
}

// Derive synthesizes an email for fullName at domainOrURL. A convention
// detected in observed addresses on the same domain yields high
// confidence; otherwise first.last is guessed with medium confidence.
// An unusable or shared domain (a social page, a site builder) or a name
// with fewer than two tokens yields an empty result with confidence none.
func Derive(fullName, domainOrURL string, observed []string) Result {
	failed := Result{Confidence: model.ConfidenceNone}

	d, ok := domain.Company(domainOrURL)
	if !ok {
		return failed
	}
	first, last, ok := SplitName(fullName)
	if !ok {
		return failed
	}

	if p := DetectPattern(observed, d); p != PatternNone {
		return Result{
			Email:      Apply(p, first, last, d),
			Pattern:    p,
			Confidence: model.ConfidenceHigh,
		}
	}
	return Result{
		Email:      Apply(PatternFirstLast, first, last, d),
		Pattern:    PatternFirstLast,
		Confidence: model.ConfidenceMedium,
	}
}

// SplitName returns the folded first and last tokens of a full name.
func SplitName(fullName string) (first, last string, ok bool) {
	tokens := strings.Fields(fullName)
	if len(tokens) < 2 {
		return "", "", false
	}
	first = textnorm.Letters(tokens[0])
	last = textnorm.Letters(tokens[len(tokens)-1])
	if first == "" || last == "" {
		return "", "", false
	}
	return first, last, true
}

// DetectPattern returns the convention of the first non-generic address
// on domain d whose shape is recognized, or PatternNone.
func DetectPattern(observed []string, d string) Pattern {
	for _, email := range observed {
		local, ed, ok := Split(email)
		if !ok || ed != d || IsGenericLocal(local) {
			continue
		}
		if p := shapeOf(local); p != PatternNone {
			return p
		}
	}
	return PatternNone
}

func shapeOf(local string) Pattern {
	parts := strings.Split(local, ".")
	switch {
	case len(parts) == 2 && isAlphaToken(parts[0]) && isAlphaToken(parts[1]):
		if len([]rune(parts[0])) == 1 && len([]rune(parts[1])) > 1 {
			return PatternInitial
		}
		if len([]rune(parts[0])) > 1 && len([]rune(parts[1])) > 1 {
			return PatternFirstLast
		}
	case len(parts) == 1 && isAlphaToken(local) && len([]rune(local)) >= minConcatLength:
		return PatternConcat
	}
	return PatternNone
}

func isAlphaToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '-' {
			return false
		}
	}
	return unicode.IsLetter([]rune(s)[0])
}

// Apply builds the address for p.
func Apply(p Pattern, first, last, d string) string {
	switch p {
	case PatternInitial:
		return string([]rune(first)[:1]) + "." + last + "@" + d
	case PatternConcat:
		return first + last + "@" + d
	default:
		return first + "." + last + "@" + d
	}
}

// Split returns the lower-cased local part and the normalized domain of
// an address.
func Split(email string) (local, d string, ok bool) {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(e, "@")
	if at <= 0 {
		return "", "", false
	}
	d, ok = domain.Normalize(e[at+1:])
	if !ok {
		return "", "", false
	}
	return e[:at], d, true
}

// IsGenericLocal reports whether a local part is a shared mailbox alias,
// either exactly or followed by a non-letter ("contact-lyon", "info2").
func IsGenericLocal(local string) bool {
	l := strings.ToLower(local)
	for _, g := range GenericLocalParts {
		if l == g {
			return true
		}
		if strings.HasPrefix(l, g) {
			next := []rune(l[len(g):])[0]
			if !unicode.IsLetter(next) {
				return true
			}
		}
	}
	return false
}

// IsGeneric reports whether an address uses a generic local part.
func IsGeneric(email string) bool {
	local, _, ok := Split(email)
	if !ok {
		return false
	}
	return IsGenericLocal(local)
}

// Valid reports whether email is syntactically usable: a non-empty local
// part and a dotted domain.
func Valid(email string) bool {
	e := strings.TrimSpace(email)
	at := strings.LastIndex(e, "@")
	if at <= 0 || at == len(e)-1 {
		return false
	}
	host := e[at+1:]
	dot := strings.Index(host, ".")
	return dot > 0 && dot < len(host)-1 && !strings.ContainsAny(e, " ,;")
}
