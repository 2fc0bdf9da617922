// Package sirene queries the French company registry search API
// (recherche-entreprises.api.gouv.fr).
package sirene

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

const (
	defaultBaseURL = "https://recherche-entreprises.api.gouv.fr"
	// The public API allows 7 requests per second.
	defaultRate = 7
)

// Client performs registry lookups.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is a full-text company search.
type SearchRequest struct {
	Query      string
	PostalCode string
	PerPage    int
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Results      []Company `json:"results"`
	TotalResults int       `json:"total_results"`
}

// Company is one legal unit.
type Company struct {
	Siren                  string        `json:"siren"`
	NomComplet             string        `json:"nom_complet"`
	NatureJuridique        string        `json:"nature_juridique"`
	DateCreation           string        `json:"date_creation"`
	TrancheEffectifSalarie string        `json:"tranche_effectif_salarie"`
	CategorieEntreprise    string        `json:"categorie_entreprise"`
	Siege                  Etablissement `json:"siege"`
	Dirigeants             []Dirigeant   `json:"dirigeants"`
}

// Etablissement is a registered establishment.
type Etablissement struct {
	Siret                  string `json:"siret"`
	Adresse                string `json:"adresse"`
	CodePostal             string `json:"code_postal"`
	TrancheEffectifSalarie string `json:"tranche_effectif_salarie"`
}

// Dirigeant is a legal representative. Legal entities acting as
// representatives carry a Denomination instead of a person name.
type Dirigeant struct {
	Nom           string `json:"nom"`
	Prenoms       string `json:"prenoms"`
	Qualite       string `json:"qualite"`
	TypeDirigeant string `json:"type_dirigeant"`
	Denomination  string `json:"denomination"`
}

// IsPerson reports whether the representative is a natural person.
func (d Dirigeant) IsPerson() bool {
	return d.TypeDirigeant != "personne morale" && strings.TrimSpace(d.Nom) != ""
}

// FullName returns "first-names last-name", title-cased. Only the first
// given name is kept.
func (d Dirigeant) FullName() string {
	first := strings.Fields(d.Prenoms)
	parts := make([]string, 0, 2)
	if len(first) > 0 {
		parts = append(parts, titleCase(first[0]))
	}
	if n := strings.TrimSpace(d.Nom); n != "" {
		parts = append(parts, titleCase(n))
	}
	return strings.Join(parts, " ")
}

// FirstPerson returns the first natural-person representative.
func (c Company) FirstPerson() (Dirigeant, bool) {
	for _, d := range c.Dirigeants {
		if d.IsPerson() {
			return d, true
		}
	}
	return Dirigeant{}, false
}

// Headcount returns the midpoint of the company's INSEE headcount band,
// falling back to the head office band.
func (c Company) Headcount() (int, bool) {
	if n, ok := HeadcountFromTranche(c.TrancheEffectifSalarie); ok {
		return n, true
	}
	return HeadcountFromTranche(c.Siege.TrancheEffectifSalarie)
}

// trancheMidpoints maps INSEE "tranche d'effectif salarié" codes to a
// representative headcount.
var trancheMidpoints = map[string]int{
	"00": 0,
	"01": 2,
	"02": 4,
	"03": 8,
	"11": 15,
	"12": 35,
	"21": 75,
	"22": 150,
	"31": 225,
	"32": 375,
	"41": 750,
	"42": 1500,
	"51": 3500,
	"52": 7500,
	"53": 10000,
}

// HeadcountFromTranche converts an INSEE band code. "NN" and unknown
// codes report false.
func HeadcountFromTranche(code string) (int, bool) {
	n, ok := trancheMidpoints[strings.TrimSpace(code)]
	return n, ok
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the maximum requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a registry client. The API needs no credentials.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRate), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(sr.Query) == "" {
		return nil, eris.New("sirene: empty query")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "sirene: rate limit")
	}

	q := url.Values{}
	q.Set("q", sr.Query)
	perPage := sr.PerPage
	if perPage <= 0 {
		perPage = 1
	}
	q.Set("per_page", strconv.Itoa(perPage))
	if sr.PostalCode != "" {
		q.Set("code_postal", sr.PostalCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "sirene: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sirene: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sirene: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("sirene", resp.StatusCode, respBody)
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "sirene: unmarshal response")
	}
	return &result, nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			r := []rune(p)
			if len(r) > 0 {
				r[0] = []rune(strings.ToUpper(string(r[0])))[0]
			}
			parts[j] = string(r)
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}
