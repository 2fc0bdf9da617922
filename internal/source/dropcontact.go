package source

import (
	"context"
	"strings"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/pkg/dropcontact"
)

// Dropcontact asks Dropcontact's batch API for verified contacts.
type Dropcontact struct {
	base
	client dropcontact.Client
	poll   []dropcontact.PollOption
}

// NewDropcontact creates the secondary-tier Dropcontact adapter. A nil
// client makes it unavailable.
func NewDropcontact(client dropcontact.Client, poll []dropcontact.PollOption, opts ...Option) *Dropcontact {
	return &Dropcontact{
		base:   newBase(ProvenanceDropcontact, TierSecondary, client != nil, opts),
		client: client,
		poll:   poll,
	}
}

// Lookup submits the company and waits for the batch to finish.
func (d *Dropcontact) Lookup(ctx context.Context, q Query) Result {
	if strings.TrimSpace(q.CompanyName) == "" {
		return d.skipped()
	}
	req := dropcontact.BatchRequest{
		Data: []dropcontact.Company{{
			Company: q.CompanyName,
			Website: q.Website,
			Siret:   q.LegalID,
		}},
		Siren:    true,
		Language: "fr",
	}
	if len(q.TargetTitles) > 0 {
		req.SearchRole = q.TargetTitles[0]
	}

	return d.lookup(ctx, q, func(ctx context.Context) ([]model.CandidateContact, error) {
		e, err := dropcontact.Enrich(ctx, d.client, req, d.poll...)
		if err != nil {
			return nil, err
		}
		var out []model.CandidateContact
		for _, c := range e.Contacts {
			cand := model.CandidateContact{
				Name:             c.Name(),
				Title:            c.Title(),
				Email:            strings.ToLower(strings.TrimSpace(c.Email)),
				Phone:            c.PhoneNumber(),
				SocialProfileURL: c.LinkedIn,
				EmailConfidence:  dropcontactConfidence(c.Email, c.EmailStatus),
			}
			if cand.Name == "" && cand.Email == "" {
				continue
			}
			out = append(out, cand)
		}
		return out, nil
	})
}

func dropcontactConfidence(email, status string) model.Confidence {
	if strings.TrimSpace(email) == "" {
		return model.ConfidenceNone
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "valid", "verified", "deliverable":
		return model.ConfidenceHigh
	case "risky":
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
