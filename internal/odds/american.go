// Package odds provides American and decimal odds conversions and the payout
// math used across leg scoring, upset ranking, and coverage analysis.
package odds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmerican parses an American odds string ("+180", "-110", "150").
// A value without an explicit sign is treated as positive.
func ParseAmerican(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty odds string")
	}
	trimmed = strings.TrimPrefix(trimmed, "+")
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("unparseable american odds %q: %w", s, err)
	}
	if v > -100 && v < 100 {
		return 0, fmt.Errorf("american odds %q out of range", s)
	}
	return v, nil
}

// FormatAmerican renders American odds with an explicit sign.
func FormatAmerican(american int) string {
	if american > 0 {
		return fmt.Sprintf("+%d", american)
	}
	return strconv.Itoa(american)
}

// ToDecimal converts American odds to decimal odds.
// Positive: 1 + a/100. Negative: 1 + 100/|a|.
func ToDecimal(american int) float64 {
	hundred := decimal.NewFromInt(100)
	a := decimal.NewFromInt(int64(american))
	var d decimal.Decimal
	if american > 0 {
		d = decimal.NewFromInt(1).Add(a.Div(hundred))
	} else {
		d = decimal.NewFromInt(1).Add(hundred.Div(a.Abs()))
	}
	f, _ := d.Round(6).Float64()
	return f
}

// Implied returns the market-implied probability of American odds.
func Implied(american int) float64 {
	a := math.Abs(float64(american))
	if american > 0 {
		return 100.0 / (a + 100.0)
	}
	return a / (a + 100.0)
}

// FromProbability returns the fair American odds for a probability,
// rounded to the nearest integer price.
func FromProbability(p float64) (int, error) {
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("probability %v out of range (0,1)", p)
	}
	if p >= 0.5 {
		return -int(math.Round(100 * p / (1 - p))), nil
	}
	return int(math.Round(100 * (1 - p) / p)), nil
}

// PayoutPer100 returns the profit on a winning 100-unit stake.
// Plus odds pay the odds value; minus odds pay 100/|odds|*100.
func PayoutPer100(american int) float64 {
	if american > 0 {
		return float64(american)
	}
	return 100.0 / math.Abs(float64(american)) * 100.0
}

// ExpectedValue returns the EV per unit stake given a model probability
// and American payout odds.
func ExpectedValue(modelProb float64, american int) float64 {
	payout := PayoutPer100(american)
	return modelProb*payout/100.0 - (1.0 - modelProb)
}
