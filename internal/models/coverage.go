package models

// CoverageTicket is one ephemeral scenario or round-robin ticket derived
// from a base selection. Tickets are never persisted.
type CoverageTicket struct {
	Legs                []Leg   `json:"legs"`
	FlippedMask         uint32  `json:"flipped_mask"`
	FlippedCount        int     `json:"flipped_count"`
	CombinedProbability float64 `json:"combined_probability"`
	CombinedDecimalOdds float64 `json:"combined_decimal_odds"`
	OverallConfidence   float64 `json:"overall_confidence"`
	WeakestLeg          *Leg    `json:"weakest_leg,omitempty"`
	StrongestLeg        *Leg    `json:"strongest_leg,omitempty"`
}

// CoveragePack is the full coverage analysis for a base selection.
type CoveragePack struct {
	ScenarioTickets   []CoverageTicket `json:"scenario_tickets"`
	RoundRobinTickets []CoverageTicket `json:"round_robin_tickets"`
	TotalScenarios    uint64           `json:"total_scenarios"`
	ByUpsetCount      []uint64         `json:"by_upset_count"`
}

// RiskTier buckets upset candidates by how speculative they are.
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// UpsetCandidate is a positive-EV underdog leg annotated with its tier.
type UpsetCandidate struct {
	Leg           Leg      `json:"leg"`
	ExpectedValue float64  `json:"expected_value"`
	Payout        float64  `json:"payout"`
	RiskTier      RiskTier `json:"risk_tier"`
	Reasoning     string   `json:"reasoning"`
}
