// Package scorer computes the 0-100 prospecting quality score of a merged
// lead and the category bands derived from it.
package scorer

import (
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/emailpattern"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/title"
)

// Sub-score bounds.
const (
	MaxEmail   = 40
	MaxContact = 30
	MaxCompany = 30
)

// Category thresholds, inclusive lower bounds.
const (
	PremiumThreshold   = 80
	QualifiedThreshold = 50
	VerifyThreshold    = 20
)

// RecognizedTLDs earn the full website bonus.
var RecognizedTLDs = []string{".fr", ".com", ".net"}

var recommendations = map[model.Category]string{
	model.CategoryPremium:   "Prospect first",
	model.CategoryQualified: "Prospect next",
	model.CategoryVerify:    "Manual verification recommended",
	model.CategoryWeak:      "Skip or verify manually",
}

// Breakdown is the result of scoring one lead.
type Breakdown struct {
	Email          int            `json:"score_email"`
	Contact        int            `json:"score_contact"`
	Company        int            `json:"score_company"`
	Total          int            `json:"score_total"`
	Category       model.Category `json:"category"`
	Recommendation string         `json:"recommendation"`
}

// Score computes the breakdown for a merged contact, the firm facts and
// the discovery metadata of its business.
func Score(c model.MergedContact, f model.FirmFacts, b model.RawBusiness) Breakdown {
	out := Breakdown{
		Email:   EmailScore(c.Primary),
		Contact: ContactScore(c.Primary),
		Company: CompanyScore(b, f),
	}
	out.Total = out.Email + out.Contact + out.Company
	out.Category = CategoryFor(out.Total)
	out.Recommendation = Recommendation(out.Category)
	return out
}

// Apply scores r in place from its own contact, firm and business.
func Apply(r *model.ScoredRecord) {
	bd := Score(r.Contact, r.Firm, r.Business)
	r.ScoreEmail = bd.Email
	r.ScoreContact = bd.Contact
	r.ScoreCompany = bd.Company
	r.ScoreTotal = bd.Total
	r.Category = bd.Category
	r.Recommendation = bd.Recommendation
}

// Rescore recomputes the company sub-score after a discovery refresh. The
// email and contact sub-scores are kept as cached.
func Rescore(r *model.ScoredRecord) {
	r.ScoreCompany = CompanyScore(r.Business, r.Firm)
	r.ScoreTotal = r.ScoreEmail + r.ScoreContact + r.ScoreCompany
	r.Category = CategoryFor(r.ScoreTotal)
	r.Recommendation = Recommendation(r.Category)
}

// EmailScore rates the address of the primary slot (0-40).
func EmailScore(s model.ContactSlot) int {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return 0
	}
	hasName := strings.TrimSpace(s.Name) != ""
	generic := emailpattern.IsGeneric(email)

	switch s.EmailConfidence {
	case model.ConfidenceHigh:
		switch {
		case hasName && !generic:
			return 40
		case hasName:
			return 35
		default:
			return 30
		}
	case model.ConfidenceMedium:
		switch {
		case hasName && !generic:
			return 25
		case hasName:
			return 20
		default:
			return 15
		}
	case model.ConfidenceLow:
		if !generic {
			return 10
		}
	}
	return 5
}

// ContactScore rates who the primary slot is (0-30).
func ContactScore(s model.ContactSlot) int {
	hasName := strings.TrimSpace(s.Name) != ""
	hasTitle := strings.TrimSpace(s.Title) != ""
	dm := hasTitle && title.IsDecisionMaker(s.Title)

	switch {
	case hasName && dm:
		score := 30
		if strings.TrimSpace(s.SocialProfileURL) != "" {
			score = min(score+5, MaxContact)
		}
		return score
	case hasName && hasTitle:
		return 20
	case hasName, dm:
		return 15
	case hasTitle:
		return 10
	default:
		return 5
	}
}

// CompanyScore rates the business itself (0-30).
func CompanyScore(b model.RawBusiness, f model.FirmFacts) int {
	score := ratingScore(b.Rating, b.ReviewCount)
	score += websiteScore(b.Website)
	if strings.TrimSpace(f.LegalID) != "" {
		score += 3
	}
	if f.HeadcountKnown() {
		score += 2
	}
	return min(score, MaxCompany)
}

// ratingScore needs both a high rating and enough reviews to climb. An
// absent rating counts as 0 and lands in the lowest tier.
func ratingScore(rating *float64, reviews *int) int {
	var r float64
	if rating != nil {
		r = *rating
	}
	n := 0
	if reviews != nil {
		n = *reviews
	}
	switch {
	case r >= 4.5 && n >= 50:
		return 20
	case r >= 4.5 && n >= 20:
		return 18
	case r >= 4.0 && n >= 50:
		return 16
	case r >= 4.0 && n >= 20:
		return 14
	case r >= 4.0 && n >= 10:
		return 12
	case r >= 3.5 && n >= 20:
		return 10
	case r >= 3.5 && n >= 10:
		return 8
	case r >= 3.0:
		return 5
	default:
		return 2
	}
}

func websiteScore(website string) int {
	if strings.TrimSpace(website) == "" {
		return 0
	}
	host, ok := domain.Normalize(website)
	if !ok {
		return 3
	}
	for _, tld := range RecognizedTLDs {
		if strings.HasSuffix(host, tld) {
			return 5
		}
	}
	return 3
}

// CategoryFor maps a total score to its band.
func CategoryFor(total int) model.Category {
	switch {
	case total >= PremiumThreshold:
		return model.CategoryPremium
	case total >= QualifiedThreshold:
		return model.CategoryQualified
	case total >= VerifyThreshold:
		return model.CategoryVerify
	default:
		return model.CategoryWeak
	}
}

// Recommendation returns the fixed advice text for a category.
func Recommendation(c model.Category) string {
	if r, ok := recommendations[c]; ok {
		return r
	}
	return recommendations[model.CategoryWeak]
}
