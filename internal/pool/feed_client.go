package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/odds"
)

// FeedClient implements CandidatePool against the odds-and-model feed.
type FeedClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	validate   *validator.Validate
	logger     *logrus.Logger
}

// feedEvent is one scheduled game in the feed response.
type feedEvent struct {
	ID           string       `json:"id"`
	Sport        string       `json:"sport_key"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	CommenceTime time.Time    `json:"commence_time"`
	Markets      []feedMarket `json:"markets"`
}

type feedMarket struct {
	Key        string        `json:"key"`
	PlayerProp bool          `json:"player_prop,omitempty"`
	Outcomes   []feedOutcome `json:"outcomes"`
}

type feedOutcome struct {
	Name             string   `json:"name"`
	Price            int      `json:"price"`
	Point            *float64 `json:"point,omitempty"`
	ModelProbability *float64 `json:"model_probability,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	LineMovement     *float64 `json:"line_movement,omitempty"`
}

// NewFeedClient creates a feed client.
func NewFeedClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *FeedClient {
	return &FeedClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Name returns the name of the feed.
func (c *FeedClient) Name() string {
	return "odds_feed"
}

// GetCandidateLegs fetches scheduled events and flattens priced, modeled
// outcomes into candidate legs. Outcomes the model has not scored are
// dropped, not defaulted.
func (c *FeedClient) GetCandidateLegs(ctx context.Context, params FetchParams) ([]models.Leg, *PoolStatus, error) {
	events, err := c.fetchEvents(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	status := &PoolStatus{
		Sport:      params.Sport,
		GamesFound: len(events),
		Reason:     ReasonOK,
		FetchedAt:  time.Now().UTC(),
	}

	if len(events) == 0 {
		status.Reason = ReasonNoGames
		return nil, status, nil
	}

	priced := 0
	var legs []models.Leg
	for _, event := range events {
		for _, market := range event.Markets {
			if market.PlayerProp && !params.IncludePlayerProps {
				continue
			}
			marketType, err := models.ParseMarketType(market.Key)
			if err != nil {
				continue
			}
			for _, outcome := range market.Outcomes {
				if outcome.Price != 0 {
					priced++
				}
				leg, err := c.convertOutcome(&event, marketType, &outcome)
				if err != nil {
					c.logger.WithError(err).WithFields(logrus.Fields{
						"event_id": event.ID,
						"market":   market.Key,
						"outcome":  outcome.Name,
					}).Debug("Skipping candidate outcome")
					continue
				}
				if leg.ConfidenceScore < params.MinConfidence {
					continue
				}
				legs = append(legs, *leg)
			}
		}
	}

	if len(legs) == 0 {
		if priced == 0 {
			status.Reason = ReasonOddsNotLoaded
		} else {
			status.Reason = ReasonNoEdges
		}
	}

	if params.MaxLegs > 0 && len(legs) > params.MaxLegs {
		legs = legs[:params.MaxLegs]
	}

	status.LegsReturned = len(legs)
	metrics.CandidatePoolSize.WithLabelValues(params.Sport).Set(float64(len(legs)))

	return legs, status, nil
}

func (c *FeedClient) fetchEvents(ctx context.Context, params FetchParams) ([]feedEvent, error) {
	q := url.Values{}
	q.Set("sport", params.Sport)
	if params.Week > 0 {
		q.Set("week", strconv.Itoa(params.Week))
	}
	endpoint := fmt.Sprintf("%s/events?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "failed to fetch events", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewSourceError(c.Name(), ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, NewSourceError(c.Name(), ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var events []feedEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	return events, nil
}

func (c *FeedClient) convertOutcome(event *feedEvent, marketType models.MarketType, outcome *feedOutcome) (*models.Leg, error) {
	if outcome.Price == 0 {
		return nil, fmt.Errorf("outcome has no price")
	}
	if outcome.ModelProbability == nil {
		return nil, fmt.Errorf("outcome has no model probability")
	}

	american, err := odds.ParseAmerican(strconv.Itoa(outcome.Price))
	if err != nil {
		return nil, err
	}

	confidence := 50.0
	if outcome.Confidence != nil {
		confidence = *outcome.Confidence
	}
	lineMovement := 0.0
	if outcome.LineMovement != nil {
		lineMovement = *outcome.LineMovement
	}

	leg := &models.Leg{
		GameID:             event.ID,
		Sport:              event.Sport,
		HomeTeam:           event.HomeTeam,
		AwayTeam:           event.AwayTeam,
		MarketType:         marketType,
		Outcome:            outcome.Name,
		Point:              outcome.Point,
		OddsAmerican:       odds.FormatAmerican(american),
		OddsDecimal:        odds.ToDecimal(american),
		ImpliedProbability: odds.Implied(american),
		ModelProbability:   models.ClampModelProbability(*outcome.ModelProbability),
		ConfidenceScore:    confidence,
		LineMovement:       lineMovement,
		CommenceTime:       event.CommenceTime,
	}

	if err := c.validate.Struct(leg); err != nil {
		return nil, fmt.Errorf("invalid candidate leg: %w", err)
	}

	return leg, nil
}
