package pool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

func newTestFeedClient(baseURL string) *FeedClient {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	httpClient := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           5 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 5,
	}, logger)

	return NewFeedClient(httpClient, baseURL, "test-key", logger)
}

func slateJSON() string {
	return `[
		{
			"id": "evt-1",
			"sport_key": "americanfootball_nfl",
			"home_team": "Chiefs",
			"away_team": "Bills",
			"commence_time": "2025-11-02T18:00:00Z",
			"markets": [
				{
					"key": "h2h",
					"outcomes": [
						{"name": "Chiefs", "price": -150, "model_probability": 0.65, "confidence": 72},
						{"name": "Bills", "price": 130, "model_probability": 0.42}
					]
				},
				{
					"key": "totals",
					"outcomes": [
						{"name": "Over", "price": -110, "point": 47.5, "model_probability": 0.55, "confidence": 61},
						{"name": "Under", "price": -110, "point": 47.5}
					]
				},
				{
					"key": "player_pass_tds",
					"player_prop": true,
					"outcomes": [
						{"name": "Over", "price": 120, "point": 1.5, "model_probability": 0.6, "confidence": 55}
					]
				}
			]
		}
	]`
}

func TestGetCandidateLegs(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "americanfootball_nfl", r.URL.Query().Get("sport"))
		assert.Equal(t, "9", r.URL.Query().Get("week"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(slateJSON()))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, status, err := client.GetCandidateLegs(context.Background(), FetchParams{
		Sport: "americanfootball_nfl",
		Week:  9,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, ReasonOK, status.Reason)
	assert.Equal(t, 1, status.GamesFound)
	assert.Equal(t, 3, status.LegsReturned)

	// The unscored Under and the player prop market are dropped.
	require.Len(t, legs, 3)

	chiefs := legs[0]
	assert.Equal(t, "evt-1", chiefs.GameID)
	assert.Equal(t, models.MarketMoneyline, chiefs.MarketType)
	assert.Equal(t, "-150", chiefs.OddsAmerican)
	assert.InDelta(t, 1.666667, chiefs.OddsDecimal, 1e-6)
	assert.InDelta(t, 0.6, chiefs.ImpliedProbability, 1e-9)
	assert.InDelta(t, 0.65, chiefs.ModelProbability, 1e-9)
	assert.Equal(t, 72.0, chiefs.ConfidenceScore)

	// Unsigned plus-money price gets an explicit sign.
	bills := legs[1]
	assert.Equal(t, "+130", bills.OddsAmerican)
	assert.Equal(t, 50.0, bills.ConfidenceScore, "missing confidence defaults to 50")

	over := legs[2]
	assert.Equal(t, models.MarketTotal, over.MarketType)
	require.NotNil(t, over.Point)
	assert.InDelta(t, 47.5, *over.Point, 1e-9)
}

func TestGetCandidateLegsIncludesPlayerProps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(slateJSON()))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, _, err := client.GetCandidateLegs(context.Background(), FetchParams{
		Sport:              "americanfootball_nfl",
		IncludePlayerProps: true,
	})
	require.NoError(t, err)

	// Player prop markets carry non-canonical keys and are still skipped by
	// market parsing; the flag only lifts the prop exclusion.
	assert.Len(t, legs, 3)
}

func TestGetCandidateLegsMinConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(slateJSON()))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, _, err := client.GetCandidateLegs(context.Background(), FetchParams{
		Sport:         "americanfootball_nfl",
		MinConfidence: 70,
	})
	require.NoError(t, err)

	require.Len(t, legs, 1)
	assert.Equal(t, "Chiefs", legs[0].Outcome)
}

func TestGetCandidateLegsMaxLegsTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(slateJSON()))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, status, err := client.GetCandidateLegs(context.Background(), FetchParams{
		Sport:   "americanfootball_nfl",
		MaxLegs: 2,
	})
	require.NoError(t, err)
	assert.Len(t, legs, 2)
	assert.Equal(t, 2, status.LegsReturned)
}

func TestGetCandidateLegsNoGames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, status, err := client.GetCandidateLegs(context.Background(), FetchParams{Sport: "americanfootball_nfl"})
	require.NoError(t, err)
	assert.Empty(t, legs)
	assert.Equal(t, ReasonNoGames, status.Reason)
}

func TestGetCandidateLegsOddsNotLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{
				"id": "evt-1",
				"sport_key": "americanfootball_nfl",
				"home_team": "Chiefs",
				"away_team": "Bills",
				"markets": [
					{"key": "h2h", "outcomes": [
						{"name": "Chiefs", "price": 0},
						{"name": "Bills", "price": 0}
					]}
				]
			}
		]`))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, status, err := client.GetCandidateLegs(context.Background(), FetchParams{Sport: "americanfootball_nfl"})
	require.NoError(t, err)
	assert.Empty(t, legs)
	assert.Equal(t, ReasonOddsNotLoaded, status.Reason)
}

func TestGetCandidateLegsNoEdges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Priced but unscored: the model has not touched this slate yet.
		w.Write([]byte(`[
			{
				"id": "evt-1",
				"sport_key": "americanfootball_nfl",
				"home_team": "Chiefs",
				"away_team": "Bills",
				"markets": [
					{"key": "h2h", "outcomes": [
						{"name": "Chiefs", "price": -150},
						{"name": "Bills", "price": 130}
					]}
				]
			}
		]`))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	legs, status, err := client.GetCandidateLegs(context.Background(), FetchParams{Sport: "americanfootball_nfl"})
	require.NoError(t, err)
	assert.Empty(t, legs)
	assert.Equal(t, ReasonNoEdges, status.Reason)
}

func TestGetCandidateLegsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	_, _, err := client.GetCandidateLegs(context.Background(), FetchParams{Sport: "americanfootball_nfl"})
	require.Error(t, err)

	var srcErr SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeAuthenticationFailed, srcErr.Code)
}

func TestGetCandidateLegsBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	client := newTestFeedClient(server.URL)
	_, _, err := client.GetCandidateLegs(context.Background(), FetchParams{Sport: "americanfootball_nfl"})
	require.Error(t, err)

	var srcErr SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeInvalidData, srcErr.Code)
}
