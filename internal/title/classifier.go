// Package title classifies free-text job titles into decision-maker ranks.
package title

import (
	"strings"
	"unicode"

	"github.com/Xprriacst/google-maps-scraper/internal/textnorm"
)

// Unmatched is the rank given to titles that match no decision-maker keyword.
const Unmatched = 100

// keyword is a folded title fragment. Short acronyms match whole words
// only so "dg" does not fire inside "budget".
type keyword struct {
	text string
	word bool
}

func kw(s string) keyword {
	f := textnorm.Fold(s)
	return keyword{text: f, word: len([]rune(f)) <= 3 || f == "intern"}
}

// decisionMakers is ordered most senior first.
var decisionMakers = []keyword{
	// Executive level.
	kw("directeur commercial"), kw("directrice commerciale"),
	kw("directeur général"), kw("directrice générale"), kw("dg"),
	kw("gérant"), kw("gérante"),
	kw("président"), kw("présidente"), kw("pdg"),
	kw("ceo"), kw("chief executive officer"),
	kw("managing director"), kw("general manager"), kw("owner"), kw("president"),

	// Department heads.
	kw("directeur développement"), kw("directrice développement"),
	kw("directeur marketing"), kw("directrice marketing"),
	kw("responsable commercial"), kw("responsable commerciale"),
	kw("responsable développement"),
	kw("sales director"), kw("business development director"), kw("marketing director"),
	kw("head of sales"),

	// Other managers and founders.
	kw("directeur"), kw("directrice"), kw("director"),
	kw("responsable achats"), kw("manager"),
	kw("fondateur"), kw("fondatrice"), kw("co-fondateur"), kw("co-fondatrice"),
	kw("founder"), kw("co-founder"),
}

// exclusions always win over decision-maker matches.
var exclusions = []keyword{
	kw("secrétaire"), kw("secrétariat"), kw("sav"), kw("service après-vente"),
	kw("technicien"), kw("technicienne"), kw("assistant"), kw("assistante"),
	kw("stagiaire"), kw("apprenti"), kw("apprentie"), kw("intern"),
}

// Classification is the verdict for one title.
type Classification struct {
	IsDecisionMaker bool   `json:"is_decision_maker"`
	Rank            int    `json:"rank"`
	Keyword         string `json:"keyword,omitempty"`
	Excluded        bool   `json:"excluded,omitempty"`
}

// Classify decides whether title denotes a decision-maker. Rank is the
// index of the first matching keyword in seniority order; unmatched and
// excluded titles get Unmatched.
func Classify(t string) Classification {
	folded := textnorm.Fold(t)
	if folded == "" {
		return Classification{Rank: Unmatched}
	}
	words := wordSet(folded)

	for _, k := range exclusions {
		if k.matches(folded, words) {
			return Classification{Rank: Unmatched, Excluded: true}
		}
	}
	for i, k := range decisionMakers {
		if k.matches(folded, words) {
			return Classification{IsDecisionMaker: true, Rank: i, Keyword: k.text}
		}
	}
	return Classification{Rank: Unmatched}
}

// IsDecisionMaker is shorthand for Classify(t).IsDecisionMaker.
func IsDecisionMaker(t string) bool {
	return Classify(t).IsDecisionMaker
}

// IsExcluded reports whether t names a role that is never a decision-maker.
func IsExcluded(t string) bool {
	return Classify(t).Excluded
}

// FirstMatch returns the index of the first entry of keywords contained in
// t after folding both sides.
func FirstMatch(t string, keywords []string) (int, bool) {
	folded := textnorm.Fold(t)
	if folded == "" {
		return 0, false
	}
	words := wordSet(folded)
	for i, s := range keywords {
		if kw(s).matches(folded, words) {
			return i, true
		}
	}
	return 0, false
}

func (k keyword) matches(folded string, words map[string]bool) bool {
	if k.text == "" {
		return false
	}
	if k.word {
		return words[k.text]
	}
	return strings.Contains(folded, k.text)
}

func wordSet(folded string) map[string]bool {
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
