// Package pool fetches the candidate leg pool from the upstream odds and
// model feed. Pools are fetched fresh per request and never persisted.
package pool

import (
	"context"
	"time"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// FetchParams narrows a candidate pool fetch.
type FetchParams struct {
	Sport              string
	Week               int
	MinConfidence      float64
	MaxLegs            int
	IncludePlayerProps bool
}

// CandidatePool defines the interface for fetching candidate legs from an
// upstream feed.
type CandidatePool interface {
	// GetCandidateLegs retrieves the current candidate pool for a sport.
	GetCandidateLegs(ctx context.Context, params FetchParams) ([]models.Leg, *PoolStatus, error)

	// Name returns the name of the feed.
	Name() string
}

// Pool emptiness reason codes, surfaced so callers can distinguish "no games
// today" from "feed broken".
const (
	ReasonOK            = "ok"
	ReasonNoGames       = "no_games_scheduled"
	ReasonOddsNotLoaded = "odds_not_loaded"
	ReasonNoEdges       = "no_positive_edges"
)

// PoolStatus describes what the feed had available for a fetch.
type PoolStatus struct {
	Sport        string    `json:"sport"`
	GamesFound   int       `json:"games_found"`
	LegsReturned int       `json:"legs_returned"`
	Reason       string    `json:"reason"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// SourceError represents errors from feed operations
type SourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// NewSourceError creates a new feed error
func NewSourceError(source, code, message string, err error) SourceError {
	return SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
