// Package estimate guesses a company's headcount with an LLM when no
// registry or provider reports one.
package estimate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/size"
	"github.com/Xprriacst/google-maps-scraper/pkg/anthropic"
)

// DefaultModel is used when the estimator is built without a model.
const DefaultModel = "claude-haiku-4-5-20251001"

const (
	maxTokens         = 256
	maxSiteText       = 2000
	defaultConfidence = 0.5
)

// Headcounts used when the model names a size class but no number.
var bracketHeadcount = map[size.Bracket]int{
	size.Micro: 5,
	size.Small: 50,
	size.Mid:   1000,
	size.Large: 5000,
}

const systemPrompt = `Tu es un expert en analyse d'entreprises françaises. Tu estimes la taille d'une entreprise à partir des informations fournies.

Classification française :
- TPE : 0-10 employés
- PME : 11-250 employés
- ETI : 251-5000 employés
- GE : plus de 5000 employés

Indices utiles : mentions d'équipe ou de collaborateurs, bureaux multiples, présence internationale, largeur de la gamme, ton du site (artisanal ou corporate), chiffre d'affaires, levées de fonds.

Réponds UNIQUEMENT avec ce JSON, sans markdown :
{"employees_estimated": <nombre>, "size_category": "<TPE|PME|ETI|GE>", "confidence": <0.0-1.0>, "reasoning": "<explication courte>"}`

// Input describes the business to size.
type Input struct {
	CompanyName string
	Category    string
	Description string
	SiteText    string
}

// Estimate is a model's headcount guess.
type Estimate struct {
	Employees  int          `json:"employees"`
	Bracket    size.Bracket `json:"bracket"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
}

type reply struct {
	EmployeesEstimated float64  `json:"employees_estimated"`
	SizeCategory       string   `json:"size_category"`
	Confidence         *float64 `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
}

// Estimator asks Claude for a headcount.
type Estimator struct {
	client anthropic.Client
	model  string
}

// New creates an Estimator. An empty model selects DefaultModel.
func New(client anthropic.Client, model string) *Estimator {
	if model == "" {
		model = DefaultModel
	}
	return &Estimator{client: client, model: model}
}

// Estimate returns the model's guess for in. A reply with neither a
// positive headcount nor a known size class is an error.
func (e *Estimator) Estimate(ctx context.Context, in Input) (*Estimate, error) {
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, eris.New("estimate: company name is required")
	}

	resp, err := e.client.Complete(ctx, anthropic.Prompt{
		Model:       e.model,
		MaxTokens:   maxTokens,
		System:      systemPrompt,
		User:        BuildPrompt(in),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, eris.Wrap(err, "estimate: headcount")
	}
	resp.Usage.Log(e.model, "size_estimate")

	var r reply
	if err := anthropic.DecodeJSON(resp.Text, &r); err != nil {
		return nil, eris.Wrap(err, "estimate: parse reply")
	}
	est, err := fromReply(r)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("estimate: headcount",
		zap.String("company", in.CompanyName),
		zap.Int("employees", est.Employees),
		zap.String("bracket", est.Bracket.Label()),
		zap.Float64("confidence", est.Confidence),
	)
	return est, nil
}

func fromReply(r reply) (*Estimate, error) {
	employees := int(math.Round(r.EmployeesEstimated))
	bracket, known := size.ParseLabel(strings.ToUpper(strings.TrimSpace(r.SizeCategory)))

	switch {
	case employees > 0:
		bracket = size.For(employees)
	case known:
		employees = bracketHeadcount[bracket]
	default:
		return nil, eris.Errorf("estimate: unusable reply (employees=%v, category=%q)", r.EmployeesEstimated, r.SizeCategory)
	}

	conf := defaultConfidence
	if r.Confidence != nil {
		conf = math.Min(math.Max(*r.Confidence, 0), 1)
	}
	return &Estimate{
		Employees:  employees,
		Bracket:    bracket,
		Confidence: conf,
		Reasoning:  r.Reasoning,
	}, nil
}

// BuildPrompt renders the user message for in.
func BuildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entreprise : %s\n", in.CompanyName)
	if in.Category != "" {
		fmt.Fprintf(&b, "Catégorie : %s\n", in.Category)
	}
	if in.Description != "" {
		fmt.Fprintf(&b, "Description : %s\n", in.Description)
	}
	if text := strings.TrimSpace(in.SiteText); text != "" {
		r := []rune(text)
		if len(r) > maxSiteText {
			r = r[:maxSiteText]
		}
		fmt.Fprintf(&b, "\nContenu du site web (extrait) :\n%s\n", string(r))
	}
	b.WriteString("\nEstime le nombre d'employés et la catégorie de taille.")
	return b.String()
}
