package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func merged(s model.ContactSlot) model.MergedContact {
	var m model.MergedContact
	m.Slots[0] = s
	m.Primary = s
	return m
}

// --- Scenarios ---

func TestScore_Premium(t *testing.T) {
	t.Parallel()

	slot := model.ContactSlot{
		Name:            "Jean Dupont",
		Title:           "Directeur Commercial",
		Email:           "jean.dupont@veranda-concept.fr",
		EmailConfidence: model.ConfidenceHigh,
		Provenance:      "apollo",
	}
	biz := model.RawBusiness{
		Name:        "Veranda Concept",
		Website:     "https://veranda-concept.fr",
		Rating:      ptrF(4.7),
		ReviewCount: ptrI(85),
	}
	firm := model.FirmFacts{LegalID: "12345678900011", Headcount: ptrI(8)}

	bd := Score(merged(slot), firm, biz)
	assert.Equal(t, 40, bd.Email)
	assert.Equal(t, 30, bd.Contact)
	assert.Equal(t, 30, bd.Company)
	assert.Equal(t, 100, bd.Total)
	assert.Equal(t, model.CategoryPremium, bd.Category)
	assert.Equal(t, "Prospect first", bd.Recommendation)

	slot.SocialProfileURL = "https://linkedin.com/in/jean-dupont"
	bd = Score(merged(slot), firm, biz)
	assert.Equal(t, 30, bd.Contact)
	assert.Equal(t, 100, bd.Total)
}

func TestScore_Weak(t *testing.T) {
	t.Parallel()

	bd := Score(model.MergedContact{}, model.FirmFacts{}, model.RawBusiness{Name: "Nowhere"})
	assert.Equal(t, 0, bd.Email)
	assert.Equal(t, 5, bd.Contact)
	assert.LessOrEqual(t, bd.Company, 5)
	assert.LessOrEqual(t, bd.Total, 10)
	assert.Equal(t, model.CategoryWeak, bd.Category)
	assert.Equal(t, "Skip or verify manually", bd.Recommendation)
}

func TestScore_GenericMediumWithDecisionTitle(t *testing.T) {
	t.Parallel()

	slot := model.ContactSlot{Title: "Gérant", Email: "contact@entreprise.fr", EmailConfidence: model.ConfidenceMedium}
	biz := model.RawBusiness{Website: "https://entreprise.fr", Rating: ptrF(4.2), ReviewCount: ptrI(25)}
	firm := model.FirmFacts{LegalID: "987654321"}

	bd := Score(merged(slot), firm, biz)
	assert.Equal(t, 15, bd.Email)
	assert.Equal(t, 15, bd.Contact)
	assert.Equal(t, 22, bd.Company)
	assert.Equal(t, 52, bd.Total)
	assert.Equal(t, model.CategoryQualified, bd.Category)
}

// --- Email ---

func TestEmailScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slot model.ContactSlot
		want int
	}{
		{"high named personal", model.ContactSlot{Name: "A B", Email: "a.b@x.fr", EmailConfidence: model.ConfidenceHigh}, 40},
		{"high named generic", model.ContactSlot{Name: "A B", Email: "contact@x.fr", EmailConfidence: model.ConfidenceHigh}, 35},
		{"high nameless", model.ContactSlot{Email: "a.b@x.fr", EmailConfidence: model.ConfidenceHigh}, 30},
		{"high nameless generic", model.ContactSlot{Email: "info@x.fr", EmailConfidence: model.ConfidenceHigh}, 30},
		{"medium named personal", model.ContactSlot{Name: "A B", Email: "a.b@x.fr", EmailConfidence: model.ConfidenceMedium}, 25},
		{"medium named generic", model.ContactSlot{Name: "A B", Email: "accueil@x.fr", EmailConfidence: model.ConfidenceMedium}, 20},
		{"medium nameless", model.ContactSlot{Email: "a.b@x.fr", EmailConfidence: model.ConfidenceMedium}, 15},
		{"low personal", model.ContactSlot{Email: "a.b@x.fr", EmailConfidence: model.ConfidenceLow}, 10},
		{"low generic", model.ContactSlot{Email: "contact@x.fr", EmailConfidence: model.ConfidenceLow}, 5},
		{"none with email", model.ContactSlot{Email: "a.b@x.fr", EmailConfidence: model.ConfidenceNone}, 5},
		{"empty email", model.ContactSlot{Name: "A B", EmailConfidence: model.ConfidenceHigh}, 0},
		{"whitespace email", model.ContactSlot{Email: "  ", EmailConfidence: model.ConfidenceHigh}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EmailScore(tt.slot))
		})
	}
}

// --- Contact ---

func TestContactScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slot model.ContactSlot
		want int
	}{
		{"name and decision title", model.ContactSlot{Name: "A B", Title: "Président"}, 30},
		{"name decision title social", model.ContactSlot{Name: "A B", Title: "CEO", SocialProfileURL: "https://linkedin.com/in/ab"}, 30},
		{"name and other title", model.ContactSlot{Name: "A B", Title: "Comptable"}, 20},
		{"name and excluded title", model.ContactSlot{Name: "A B", Title: "Assistante de direction"}, 20},
		{"name only", model.ContactSlot{Name: "A B"}, 15},
		{"decision title only", model.ContactSlot{Title: "Directeur Général"}, 15},
		{"other title only", model.ContactSlot{Title: "Technicien"}, 10},
		{"nothing", model.ContactSlot{Email: "x@y.fr"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ContactScore(tt.slot))
		})
	}
}

// --- Company ---

func TestCompanyScore_RatingTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rating  float64
		reviews int
		want    int
	}{
		{4.9, 120, 20},
		{4.5, 50, 20},
		{4.6, 30, 18},
		{4.2, 60, 16},
		{4.0, 20, 14},
		{4.1, 10, 12},
		{3.7, 25, 10},
		{3.5, 10, 8},
		{4.9, 3, 5},
		{3.0, 0, 5},
		{2.4, 200, 2},
	}
	for _, tt := range tests {
		b := model.RawBusiness{Rating: ptrF(tt.rating), ReviewCount: ptrI(tt.reviews)}
		assert.Equal(t, tt.want, CompanyScore(b, model.FirmFacts{}), "rating %.1f reviews %d", tt.rating, tt.reviews)
	}
}

func TestCompanyScore_NoRating(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, CompanyScore(model.RawBusiness{}, model.FirmFacts{}))
	assert.Equal(t, 2, CompanyScore(model.RawBusiness{ReviewCount: ptrI(400)}, model.FirmFacts{}), "reviews without a rating")
	assert.Equal(t, 2, CompanyScore(model.RawBusiness{Rating: ptrF(1.0)}, model.FirmFacts{}))
}

func TestCompanyScore_Bonuses(t *testing.T) {
	t.Parallel()

	// An absent rating contributes 2.
	assert.Equal(t, 7, CompanyScore(model.RawBusiness{Website: "www.acme.com"}, model.FirmFacts{}))
	assert.Equal(t, 7, CompanyScore(model.RawBusiness{Website: "https://acme.net/contact"}, model.FirmFacts{}))
	assert.Equal(t, 5, CompanyScore(model.RawBusiness{Website: "https://acme.io"}, model.FirmFacts{}))
	assert.Equal(t, 5, CompanyScore(model.RawBusiness{Website: "not a site"}, model.FirmFacts{}))
	assert.Equal(t, 5, CompanyScore(model.RawBusiness{}, model.FirmFacts{LegalID: "123"}))
	assert.Equal(t, 4, CompanyScore(model.RawBusiness{}, model.FirmFacts{Headcount: ptrI(0)}))
}

func TestCompanyScore_Capped(t *testing.T) {
	t.Parallel()

	b := model.RawBusiness{Website: "acme.fr", Rating: ptrF(5), ReviewCount: ptrI(500)}
	f := model.FirmFacts{LegalID: "1", Headcount: ptrI(40)}
	assert.Equal(t, 30, CompanyScore(b, f))
}

// --- Categories ---

func TestCategoryFor_Boundaries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.CategoryPremium, CategoryFor(100))
	assert.Equal(t, model.CategoryPremium, CategoryFor(80))
	assert.Equal(t, model.CategoryQualified, CategoryFor(79))
	assert.Equal(t, model.CategoryQualified, CategoryFor(50))
	assert.Equal(t, model.CategoryVerify, CategoryFor(49))
	assert.Equal(t, model.CategoryVerify, CategoryFor(20))
	assert.Equal(t, model.CategoryWeak, CategoryFor(19))
	assert.Equal(t, model.CategoryWeak, CategoryFor(0))
}

func TestCategoryFor_Monotonic(t *testing.T) {
	t.Parallel()

	prev := CategoryFor(0).Priority()
	for total := 1; total <= 100; total++ {
		p := CategoryFor(total).Priority()
		require.LessOrEqual(t, p, prev, "total %d", total)
		prev = p
	}
}

func TestRecommendation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Prospect next", Recommendation(model.CategoryQualified))
	assert.Equal(t, "Manual verification recommended", Recommendation(model.CategoryVerify))
	assert.Equal(t, "Skip or verify manually", Recommendation(model.Category("bogus")))
}

// --- Additivity ---

func TestScore_AlwaysAdditive(t *testing.T) {
	t.Parallel()

	slots := []model.ContactSlot{
		{},
		{Name: "A B", Title: "CEO", Email: "a@b.fr", EmailConfidence: model.ConfidenceHigh, SocialProfileURL: "x"},
		{Title: "Stagiaire", Email: "contact@b.fr", EmailConfidence: model.ConfidenceLow},
		{Name: "C D", Email: "c.d@b.fr", EmailConfidence: model.ConfidenceMedium},
	}
	businesses := []model.RawBusiness{
		{},
		{Website: "b.fr", Rating: ptrF(4.8), ReviewCount: ptrI(300)},
		{Website: "b.io", Rating: ptrF(3.6), ReviewCount: ptrI(12)},
	}
	firms := []model.FirmFacts{{}, {LegalID: "1", Headcount: ptrI(12)}}

	for _, s := range slots {
		for _, b := range businesses {
			for _, f := range firms {
				bd := Score(merged(s), f, b)
				assert.Equal(t, bd.Email+bd.Contact+bd.Company, bd.Total)
				assert.True(t, bd.Email >= 0 && bd.Email <= MaxEmail)
				assert.True(t, bd.Contact >= 0 && bd.Contact <= MaxContact)
				assert.True(t, bd.Company >= 0 && bd.Company <= MaxCompany)
				assert.Equal(t, CategoryFor(bd.Total), bd.Category)
			}
		}
	}
}

func TestApplyAndRescore(t *testing.T) {
	t.Parallel()

	r := model.ScoredRecord{
		Business: model.RawBusiness{Website: "acme.fr"},
		Contact: merged(model.ContactSlot{
			Name: "Jean Dupont", Title: "Gérant", Email: "jean.dupont@acme.fr", EmailConfidence: model.ConfidenceHigh,
		}),
		Firm: model.FirmFacts{LegalID: "1"},
	}
	Apply(&r)
	assert.Equal(t, 40, r.ScoreEmail)
	assert.Equal(t, 30, r.ScoreContact)
	assert.Equal(t, 10, r.ScoreCompany)
	assert.Equal(t, 80, r.ScoreTotal)
	assert.Equal(t, model.CategoryPremium, r.Category)

	r.Business.Rating = ptrF(4.6)
	r.Business.ReviewCount = ptrI(60)
	Rescore(&r)
	assert.Equal(t, 28, r.ScoreCompany)
	assert.Equal(t, 98, r.ScoreTotal)
	assert.Equal(t, model.CategoryPremium, r.Category)
	assert.Equal(t, "Prospect first", r.Recommendation)
}
