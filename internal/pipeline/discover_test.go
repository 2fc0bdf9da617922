package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/pkg/apify"
	"github.com/Xprriacst/google-maps-scraper/pkg/google"
)

// --- Apify Mock ---

type mockApifyClient struct {
	mock.Mock
}

func (m *mockApifyClient) SearchPlaces(ctx context.Context, req apify.SearchRequest) ([]apify.Place, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apify.Place), args.Error(1)
}

// --- Google Mock ---

type mockGoogleClient struct {
	mock.Mock
}

func (m *mockGoogleClient) SearchText(ctx context.Context, req google.SearchRequest) (*google.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*google.SearchResponse), args.Error(1)
}

func googlePlaces(names ...string) []google.Place {
	out := make([]google.Place, len(names))
	for i, n := range names {
		out[i] = google.Place{
			DisplayName:   google.LocalizedText{Text: n},
			GoogleMapsURI: "https://maps.google.com/?cid=" + n,
		}
	}
	return out
}

// --- Apify ---

func TestApifyDiscoverer(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, apify.SearchRequest{Query: "plombier lyon", MaxResults: 2, Language: "fr"}).
		Return([]apify.Place{
			{Title: " Plomberie Martin ", Address: "8 Rue Victor Hugo, 69002 Lyon", Phone: "04 78 00 00 00",
				Website: "https://plomberie-martin.fr", TotalScore: ptr(4.7), ReviewsCount: ptr(132),
				CategoryName: "Plombier", URL: "https://maps.google.com/?cid=1"},
			{Title: ""},
			{Title: "Chauffage Dupont"},
			{Title: "Third"},
		}, nil)

	got, err := NewApifyDiscoverer(client, "fr").Discover(context.Background(), "plombier lyon", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Plomberie Martin", got[0].Name)
	assert.InDelta(t, 4.7, got[0].RatingValue(), 0.001)
	assert.Equal(t, 132, got[0].ReviewCountValue())
	assert.Equal(t, "https://maps.google.com/?cid=1", got[0].SourceURL)
	assert.Equal(t, "Chauffage Dupont", got[1].Name)
	client.AssertExpectations(t)
}

func TestApifyDiscoverer_Error(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.Anything).Return(nil, eris.New("apify: unexpected status 402"))

	_, err := NewApifyDiscoverer(client, "fr").Discover(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover: apify search")
}

// --- Google ---

func TestGoogleDiscoverer_Pages(t *testing.T) {
	t.Parallel()

	client := &mockGoogleClient{}
	client.On("SearchText", mock.Anything, google.SearchRequest{TextQuery: "q", PageSize: 3, LanguageCode: "fr", RegionCode: "FR"}).
		Return(&google.SearchResponse{Places: googlePlaces("a", "b"), NextPageToken: "p2"}, nil).Once()
	client.On("SearchText", mock.Anything, google.SearchRequest{TextQuery: "q", PageSize: 1, PageToken: "p2", LanguageCode: "fr", RegionCode: "FR"}).
		Return(&google.SearchResponse{Places: googlePlaces("c"), NextPageToken: "p3"}, nil).Once()

	got, err := NewGoogleDiscoverer(client, "fr", "FR").Discover(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Name)
	assert.Equal(t, "https://maps.google.com/?cid=a", got[0].SourceURL)
	client.AssertExpectations(t)
}

func TestGoogleDiscoverer_StopsWithoutToken(t *testing.T) {
	t.Parallel()

	client := &mockGoogleClient{}
	client.On("SearchText", mock.Anything, mock.Anything).
		Return(&google.SearchResponse{Places: googlePlaces("a")}, nil).Once()

	got, err := NewGoogleDiscoverer(client, "", "").Discover(context.Background(), "q", 50)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	client.AssertExpectations(t)
}

func TestGoogleDiscoverer_ErrorAfterFirstPageKeepsResults(t *testing.T) {
	t.Parallel()

	client := &mockGoogleClient{}
	client.On("SearchText", mock.Anything, mock.MatchedBy(func(r google.SearchRequest) bool { return r.PageToken == "" })).
		Return(&google.SearchResponse{Places: googlePlaces("a", "b"), NextPageToken: "p2"}, nil).Once()
	client.On("SearchText", mock.Anything, mock.MatchedBy(func(r google.SearchRequest) bool { return r.PageToken == "p2" })).
		Return(nil, eris.New("google: unexpected status 500")).Once()

	got, err := NewGoogleDiscoverer(client, "", "").Discover(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGoogleDiscoverer_FirstPageError(t *testing.T) {
	t.Parallel()

	client := &mockGoogleClient{}
	client.On("SearchText", mock.Anything, mock.Anything).Return(nil, eris.New("google: unexpected status 403"))

	_, err := NewGoogleDiscoverer(client, "", "").Discover(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover: google search")
}
