// Package dropcontact is a client for the Dropcontact batch enrichment API.
package dropcontact

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

const defaultBaseURL = "https://api.dropcontact.io"

// Client performs Dropcontact API operations.
type Client interface {
	Submit(ctx context.Context, req BatchRequest) (*SubmitResponse, error)
	GetBatch(ctx context.Context, requestID string) (*BatchResult, error)
}

// BatchRequest submits companies for contact discovery.
type BatchRequest struct {
	Data       []Company `json:"data"`
	Siren      bool      `json:"siren"`
	Language   string    `json:"language,omitempty"`
	SearchRole string    `json:"search_role,omitempty"`
}

// Company is one input row.
type Company struct {
	Company string `json:"company"`
	Website string `json:"website,omitempty"`
	Siret   string `json:"siret,omitempty"`
}

// SubmitResponse acknowledges a batch.
type SubmitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Error     bool   `json:"error"`
	Reason    string `json:"reason,omitempty"`
}

// BatchResult is the state of a submitted batch. Data is empty until
// Success is true.
type BatchResult struct {
	Success bool         `json:"success"`
	Error   bool         `json:"error"`
	Reason  string       `json:"reason,omitempty"`
	Data    []Enrichment `json:"data"`
}

// Done reports whether the batch finished with data.
func (r *BatchResult) Done() bool {
	return r != nil && r.Success && len(r.Data) > 0
}

// Enrichment is the result for one input row.
type Enrichment struct {
	Siren    string    `json:"siren"`
	Siret    string    `json:"siret"`
	Contacts []Contact `json:"contacts"`
}

// Contact is one person found for a company.
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FullName    string `json:"full_name"`
	Job         string `json:"job"`
	JobTitle    string `json:"job_title"`
	Email       string `json:"email"`
	EmailStatus string `json:"email_status"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobile_phone"`
	LinkedIn    string `json:"linkedin"`
	Seniority   string `json:"seniority"`
}

// Name returns the full name, built from its parts when absent.
func (c Contact) Name() string {
	if n := strings.TrimSpace(c.FullName); n != "" {
		return n
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Title returns job, falling back to job_title.
func (c Contact) Title() string {
	if c.Job != "" {
		return c.Job
	}
	return c.JobTitle
}

// PhoneNumber prefers the landline, then the mobile.
func (c Contact) PhoneNumber() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.MobilePhone
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

// NewClient creates a Dropcontact client.
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

func (c *httpClient) Submit(ctx context.Context, br BatchRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(br)
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/batch", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var out SubmitResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.RequestID == "" {
		return nil, eris.Errorf("dropcontact: batch rejected: %s", out.Reason)
	}
	return &out, nil
}

func (c *httpClient) GetBatch(ctx context.Context, requestID string) (*BatchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batch/"+url.PathEscape(requestID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: create request")
	}

	var out BatchResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.Header.Set("X-Access-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "dropcontact: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "dropcontact: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("dropcontact", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "dropcontact: unmarshal response")
	}
	return nil
}
