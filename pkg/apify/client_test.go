package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

func TestSearchPlaces_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/acts/compass~crawler-google-places/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		var in runInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, []string{"veranda Lyon"}, in.SearchStringsArray)
		assert.Equal(t, 10, in.MaxCrawledPlacesPerSearch)
		assert.Equal(t, "fr", in.Language)
		assert.False(t, in.ScrapeReviewsPersonalData)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[
			{"title": "Veranda Concept", "address": "1 rue X, Lyon", "phone": "04 78 00 00 00",
			 "website": "https://veranda-concept.fr", "totalScore": 4.7, "reviewsCount": 85,
			 "categoryName": "Entrepreneur", "url": "https://maps.google.com/?cid=1"},
			{"title": "Sans Avis", "totalScore": null}
		]`))
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	places, err := client.SearchPlaces(context.Background(), SearchRequest{Query: "veranda Lyon", MaxResults: 10})

	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Veranda Concept", places[0].Title)
	require.NotNil(t, places[0].TotalScore)
	assert.InDelta(t, 4.7, *places[0].TotalScore, 0.001)
	require.NotNil(t, places[0].ReviewsCount)
	assert.Equal(t, 85, *places[0].ReviewsCount)
	assert.Equal(t, "https://maps.google.com/?cid=1", places[0].URL)
	assert.Nil(t, places[1].TotalScore)
	assert.Nil(t, places[1].ReviewsCount)
}

func TestSearchPlaces_CustomActorAndDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acts/me~my-actor/run-sync-get-dataset-items", r.URL.Path)
		var in runInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, 50, in.MaxCrawledPlacesPerSearch)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL), WithActorID("me/my-actor"))
	places, err := client.SearchPlaces(context.Background(), SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearchPlaces_EmptyQuery(t *testing.T) {
	client := NewClient("tok")
	_, err := client.SearchPlaces(context.Background(), SearchRequest{Query: "  "})
	assert.Error(t, err)
}

func TestSearchPlaces_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"type":"run-failed"}}`))
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	places, err := client.SearchPlaces(context.Background(), SearchRequest{Query: "x"})

	require.Error(t, err)
	assert.Nil(t, places)
	assert.Contains(t, err.Error(), "502")
	assert.True(t, resilience.IsTransient(err))
}

func TestSearchPlaces_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	_, err := client.SearchPlaces(context.Background(), SearchRequest{Query: "x"})
	assert.Error(t, err)
}
