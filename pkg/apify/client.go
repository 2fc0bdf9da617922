// Package apify runs the Google Maps crawler actor on Apify and returns
// the scraped places.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	// DefaultActorID is the public Google Maps crawler.
	DefaultActorID = "compass~crawler-google-places"
)

// Client runs actors synchronously.
type Client interface {
	SearchPlaces(ctx context.Context, req SearchRequest) ([]Place, error)
}

// SearchRequest is the input of one crawler run.
type SearchRequest struct {
	Query      string
	MaxResults int
	Language   string
}

// runInput is the actor input document.
type runInput struct {
	SearchStringsArray          []string `json:"searchStringsArray"`
	MaxCrawledPlacesPerSearch   int      `json:"maxCrawledPlacesPerSearch"`
	Language                    string   `json:"language"`
	DeeperCityScrape            bool     `json:"deeperCityScrape"`
	ScrapeReviewerName          bool     `json:"scrapeReviewerName"`
	ScrapeReviewerID            bool     `json:"scrapeReviewerId"`
	ScrapeReviewID              bool     `json:"scrapeReviewId"`
	ScrapeReviewURL             bool     `json:"scrapeReviewUrl"`
	ScrapeResponseFromOwnerText bool     `json:"scrapeResponseFromOwnerText"`
	ScrapeReviewsPersonalData   bool     `json:"scrapeReviewsPersonalData"`
}

// Place is one dataset item produced by the crawler. Only the fields
// used for discovery are decoded.
type Place struct {
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	TotalScore   *float64 `json:"totalScore"`
	ReviewsCount *int     `json:"reviewsCount"`
	CategoryName string   `json:"categoryName"`
	URL          string   `json:"url"`
	PlaceID      string   `json:"placeId"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithActorID selects the actor to run.
func WithActorID(id string) Option {
	return func(c *httpClient) {
		if id != "" {
			c.actorID = strings.ReplaceAll(id, "/", "~")
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	actorID string
	http    *http.Client
}

// NewClient creates an Apify client. Actor runs can take minutes, so the
// default HTTP timeout is generous; callers bound it with ctx.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		actorID: DefaultActorID,
		http: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPlaces(ctx context.Context, sr SearchRequest) ([]Place, error) {
	if strings.TrimSpace(sr.Query) == "" {
		return nil, eris.New("apify: empty query")
	}
	in := runInput{
		SearchStringsArray:        []string{sr.Query},
		MaxCrawledPlacesPerSearch: sr.MaxResults,
		Language:                  sr.Language,
	}
	if in.MaxCrawledPlacesPerSearch <= 0 {
		in.MaxCrawledPlacesPerSearch = 50
	}
	if in.Language == "" {
		in.Language = "fr"
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal input")
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	q.Set("limit", strconv.Itoa(in.MaxCrawledPlacesPerSearch))
	endpoint := c.baseURL + "/acts/" + c.actorID + "/run-sync-get-dataset-items?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "apify: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apify: read response")
	}

	// run-sync answers 201 Created with the dataset items.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, resilience.StatusError("apify", resp.StatusCode, respBody)
	}

	var places []Place
	if err := json.Unmarshal(respBody, &places); err != nil {
		return nil, eris.Wrap(err, "apify: unmarshal dataset items")
	}
	return places, nil
}
