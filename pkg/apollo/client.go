// Package apollo is a client for the Apollo.io people search and
// organization enrichment endpoints.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

const defaultBaseURL = "https://api.apollo.io/v1"

// Client performs Apollo API operations.
type Client interface {
	SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error)
	EnrichOrganization(ctx context.Context, req OrganizationRequest) (*Organization, error)
}

// PeopleSearchRequest searches people working for an organization.
type PeopleSearchRequest struct {
	OrganizationNames   []string `json:"organization_names,omitempty"`
	OrganizationDomains []string `json:"q_organization_domains_list,omitempty"`
	PersonTitles        []string `json:"person_titles,omitempty"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

// PeopleSearchResponse is the response of a people search.
type PeopleSearchResponse struct {
	People []Person `json:"people"`
}

// Person is one person record.
type Person struct {
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Name         string        `json:"name"`
	Title        string        `json:"title"`
	Email        string        `json:"email"`
	EmailStatus  string        `json:"email_status"`
	LinkedInURL  string        `json:"linkedin_url"`
	Seniority    string        `json:"seniority"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
}

// FullName returns Name, or first and last name joined.
func (p Person) FullName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Phone returns the first raw phone number, if any.
func (p Person) Phone() string {
	for _, n := range p.PhoneNumbers {
		if n.RawNumber != "" {
			return n.RawNumber
		}
	}
	return ""
}

// PhoneNumber is one phone entry.
type PhoneNumber struct {
	RawNumber string `json:"raw_number"`
}

// OrganizationRequest enriches one organization by domain, or by name
// when the domain is unknown.
type OrganizationRequest struct {
	Domain string
	Name   string
}

// Organization holds the firmographic fields the pipeline uses.
type Organization struct {
	Name                  string `json:"name"`
	WebsiteURL            string `json:"website_url"`
	Industry              string `json:"industry"`
	EstimatedNumEmployees *int   `json:"estimated_num_employees"`
	FoundedYear           *int   `json:"founded_year"`
	LinkedInURL           string `json:"linkedin_url"`
	Phone                 string `json:"phone"`
	Country               string `json:"country"`
	City                  string `json:"city"`
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apollo client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPeople(ctx context.Context, sr PeopleSearchRequest) (*PeopleSearchResponse, error) {
	if sr.Page == 0 {
		sr.Page = 1
	}
	if sr.PerPage == 0 {
		sr.PerPage = 5
	}

	var out PeopleSearchResponse
	if err := c.post(ctx, "/mixed_people/search", sr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) EnrichOrganization(ctx context.Context, or OrganizationRequest) (*Organization, error) {
	body := map[string]string{}
	switch {
	case or.Domain != "":
		body["domain"] = or.Domain
	case or.Name != "":
		body["organization_name"] = or.Name
	default:
		return nil, eris.New("apollo: organization request needs a domain or a name")
	}

	var out struct {
		Organization *Organization `json:"organization"`
	}
	if err := c.post(ctx, "/organizations/enrich", body, &out); err != nil {
		return nil, err
	}
	if out.Organization == nil {
		return &Organization{}, nil
	}
	return out.Organization, nil
}

func (c *httpClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "apollo: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "apollo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("apollo", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "apollo: unmarshal response")
	}
	return nil
}
