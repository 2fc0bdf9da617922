package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.Average)
	assert.Len(t, s.ByCategory, 4)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	withContact := merged(model.ContactSlot{Name: "Jean Dupont", Email: "jean@acme.fr"})
	nameless := merged(model.ContactSlot{Email: "info@acme.fr"})

	records := []model.ScoredRecord{
		{ScoreTotal: 95, Contact: withContact},
		{ScoreTotal: 60, Contact: nameless},
		{ScoreTotal: 25},
	}
	s := Summarize(records)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 60.0, s.Average)
	assert.Equal(t, 1, s.ByCategory[model.CategoryPremium])
	assert.Equal(t, 1, s.ByCategory[model.CategoryQualified])
	assert.Equal(t, 1, s.ByCategory[model.CategoryVerify])
	assert.Equal(t, 0, s.ByCategory[model.CategoryWeak])
	assert.Equal(t, 2, s.WithEmail)
	assert.Equal(t, 1, s.WithContact)
	assert.Equal(t, 1, s.ZeroContact)
	assert.Equal(t, 33.3, s.PremiumPct)
	assert.Equal(t, 33.3, s.QualifiedPct)
}
