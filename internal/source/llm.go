package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/domain"
	"github.com/Xprriacst/google-maps-scraper/internal/emailpattern"
	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/internal/scrape"
	"github.com/Xprriacst/google-maps-scraper/internal/title"
	"github.com/Xprriacst/google-maps-scraper/pkg/anthropic"
)

// DefaultLLMModel is the model used for contact extraction.
const DefaultLLMModel = "claude-haiku-4-5-20251001"

const llmMaxTokens = 2000

const llmSystemPrompt = `Tu es un expert en extraction de données de contacts B2B. Tu analyses le texte d'un site web d'entreprise et tu extrais tous les contacts professionnels : nom complet, fonction, email, téléphone, profil LinkedIn.

Règles :
- Cherche les emails de personnes nommées en priorité, puis les emails génériques (contact@, commercial@, info@).
- N'invente jamais d'email ni de nom absent du texte.
- Laisse un champ vide ("") quand l'information manque.

Réponds UNIQUEMENT avec ce JSON, sans texte avant ou après :
[{"name": "", "position": "", "email": "", "phone": "", "linkedin": ""}]
Si aucun contact n'est trouvé, réponds [].`

type llmContact struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	LinkedIn string `json:"linkedin"`
}

// LLM extracts contacts from website text with Claude.
type LLM struct {
	base
	client  anthropic.Client
	visitor SiteVisitor
	model   string
}

// NewLLM creates the scraped-tier LLM adapter. It is unavailable without
// both a client and a visitor.
func NewLLM(client anthropic.Client, v SiteVisitor, model string, opts ...Option) *LLM {
	if model == "" {
		model = DefaultLLMModel
	}
	return &LLM{
		base:    newBase(ProvenanceLLM, TierScraped, client != nil && v != nil, opts),
		client:  client,
		visitor: v,
		model:   model,
	}
}

// Lookup crawls the website and asks the model for the contacts in it.
func (l *LLM) Lookup(ctx context.Context, q Query) Result {
	if strings.TrimSpace(q.Website) == "" {
		return l.skipped()
	}
	return l.lookup(ctx, q, func(ctx context.Context) ([]model.CandidateContact, error) {
		site, err := l.visitor.Visit(ctx, q.Website)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(site.Text) == "" {
			return nil, nil
		}

		reply, err := l.client.Complete(ctx, anthropic.Prompt{
			Model:       l.model,
			MaxTokens:   llmMaxTokens,
			System:      llmSystemPrompt,
			User:        llmPrompt(q.CompanyName, site),
			Temperature: 0.1,
		})
		if err != nil {
			return nil, err
		}
		reply.Usage.Log(l.model, "contact_extraction")

		var contacts []llmContact
		if err := anthropic.DecodeJSON(reply.Text, &contacts); err != nil {
			return nil, err
		}
		companyDomain, _ := domain.Company(q.Website)
		return candidatesFromLLM(contacts, companyDomain), nil
	})
}

func llmPrompt(company string, site *scrape.Site) string {
	return fmt.Sprintf("Entreprise : %s\nSite : %s\n\nTEXTE À ANALYSER :\n%s", company, site.Home, site.Text)
}

// candidatesFromLLM keeps contacts with a usable name or email. Emails on
// the company domain get medium confidence, others low. Role labels such
// as "Contact commercial" are not kept as names.
func candidatesFromLLM(contacts []llmContact, companyDomain string) []model.CandidateContact {
	var out []model.CandidateContact
	for _, c := range contacts {
		name := strings.TrimSpace(c.Name)
		if !scrape.ValidName(name) {
			name = ""
		}
		pos := strings.TrimSpace(c.Position)
		if title.IsExcluded(pos) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(c.Email))
		conf := model.ConfidenceNone
		switch {
		case email == "":
		case !emailpattern.Valid(email):
			email = ""
		case domainMatches(email, companyDomain):
			conf = model.ConfidenceMedium
		default:
			conf = model.ConfidenceLow
		}
		if name == "" && email == "" {
			continue
		}
		out = append(out, model.CandidateContact{
			Name:             name,
			Title:            pos,
			Email:            email,
			Phone:            strings.TrimSpace(c.Phone),
			SocialProfileURL: strings.TrimSpace(c.LinkedIn),
			EmailConfidence:  conf,
		})
	}
	return out
}

func domainMatches(email, companyDomain string) bool {
	d, ok := domain.FromEmail(email)
	return ok && companyDomain != "" && d == companyDomain
}
