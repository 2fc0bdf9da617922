package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
	"github.com/Xprriacst/google-maps-scraper/pkg/apify"
	"github.com/Xprriacst/google-maps-scraper/pkg/google"
)

// Discoverer finds businesses matching a free-text query.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context, query string, maxResults int) ([]model.RawBusiness, error)
}

// ApifyDiscoverer runs the Google Maps crawler actor.
type ApifyDiscoverer struct {
	client   apify.Client
	language string
}

// NewApifyDiscoverer creates a Discoverer backed by Apify.
func NewApifyDiscoverer(client apify.Client, language string) *ApifyDiscoverer {
	return &ApifyDiscoverer{client: client, language: language}
}

func (d *ApifyDiscoverer) Name() string { return "apify" }

func (d *ApifyDiscoverer) Discover(ctx context.Context, query string, maxResults int) ([]model.RawBusiness, error) {
	places, err := d.client.SearchPlaces(ctx, apify.SearchRequest{
		Query:      query,
		MaxResults: maxResults,
		Language:   d.language,
	})
	if err != nil {
		return nil, eris.Wrap(err, "discover: apify search")
	}
	out := make([]model.RawBusiness, 0, len(places))
	for _, p := range places {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		out = append(out, model.RawBusiness{
			Name:        strings.TrimSpace(p.Title),
			Address:     p.Address,
			Phone:       p.Phone,
			Website:     p.Website,
			Rating:      p.TotalScore,
			ReviewCount: p.ReviewsCount,
			Category:    p.CategoryName,
			SourceURL:   p.URL,
		})
	}
	return truncate(out, maxResults), nil
}

// googlePageSize is the largest page Places Text Search returns.
const googlePageSize = 20

// GoogleDiscoverer pages through Google Places Text Search.
type GoogleDiscoverer struct {
	client   google.Client
	language string
	region   string
}

// NewGoogleDiscoverer creates a Discoverer backed by the Places API.
func NewGoogleDiscoverer(client google.Client, language, region string) *GoogleDiscoverer {
	return &GoogleDiscoverer{client: client, language: language, region: region}
}

func (d *GoogleDiscoverer) Name() string { return "google" }

func (d *GoogleDiscoverer) Discover(ctx context.Context, query string, maxResults int) ([]model.RawBusiness, error) {
	var out []model.RawBusiness
	token := ""
	for {
		size := googlePageSize
		if maxResults > 0 {
			size = min(size, maxResults-len(out))
		}
		resp, err := d.client.SearchText(ctx, google.SearchRequest{
			TextQuery:    query,
			PageSize:     size,
			PageToken:    token,
			LanguageCode: d.language,
			RegionCode:   d.region,
		})
		if err != nil {
			if len(out) > 0 {
				// Keep what earlier pages returned.
				return out, nil
			}
			return nil, eris.Wrap(err, "discover: google search")
		}
		for _, p := range resp.Places {
			if strings.TrimSpace(p.DisplayName.Text) == "" {
				continue
			}
			out = append(out, model.RawBusiness{
				Name:        strings.TrimSpace(p.DisplayName.Text),
				Address:     p.FormattedAddress,
				Phone:       p.NationalPhoneNumber,
				Website:     p.WebsiteURI,
				Rating:      p.Rating,
				ReviewCount: p.UserRatingCount,
				Category:    p.PrimaryTypeDisplayName.Text,
				SourceURL:   p.GoogleMapsURI,
			})
		}
		token = resp.NextPageToken
		if token == "" || len(resp.Places) == 0 || (maxResults > 0 && len(out) >= maxResults) {
			return truncate(out, maxResults), nil
		}
	}
}

func truncate(bs []model.RawBusiness, n int) []model.RawBusiness {
	if n > 0 && len(bs) > n {
		return bs[:n]
	}
	return bs
}
