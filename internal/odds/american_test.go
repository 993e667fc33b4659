package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmerican(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"positive with sign", "+180", 180, false},
		{"negative", "-110", -110, false},
		{"positive without sign", "150", 150, false},
		{"whitespace", " +200 ", 200, false},
		{"empty", "", 0, true},
		{"garbage", "EVEN", 0, true},
		{"out of range", "+50", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmerican(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDecimal(t *testing.T) {
	assert.InDelta(t, 2.80, ToDecimal(180), 1e-9)
	assert.InDelta(t, 1.909091, ToDecimal(-110), 1e-6)
	assert.InDelta(t, 2.00, ToDecimal(100), 1e-9)
	assert.InDelta(t, 1.50, ToDecimal(-200), 1e-9)
}

func TestImplied(t *testing.T) {
	assert.InDelta(t, 100.0/280.0, Implied(180), 1e-9)
	assert.InDelta(t, 110.0/210.0, Implied(-110), 1e-9)
	assert.InDelta(t, 0.5, Implied(100), 1e-9)
}

func TestFromProbability(t *testing.T) {
	a, err := FromProbability(0.5)
	require.NoError(t, err)
	assert.Equal(t, -100, a)

	a, err = FromProbability(0.25)
	require.NoError(t, err)
	assert.Equal(t, 300, a)

	a, err = FromProbability(0.75)
	require.NoError(t, err)
	assert.Equal(t, -300, a)

	_, err = FromProbability(0)
	assert.Error(t, err)
	_, err = FromProbability(1)
	assert.Error(t, err)
}

func TestFromProbabilityRoundTrip(t *testing.T) {
	for _, p := range []float64{0.2, 0.35, 0.5, 0.6, 0.8} {
		a, err := FromProbability(p)
		require.NoError(t, err)
		assert.InDelta(t, p, Implied(a), 0.005, "round trip for p=%v", p)
	}
}

func TestPayoutAndEV(t *testing.T) {
	assert.InDelta(t, 180.0, PayoutPer100(180), 1e-9)
	assert.InDelta(t, 100.0/110.0*100.0, PayoutPer100(-110), 1e-9)

	// +180 at 45% model probability: 0.45*1.8 - 0.55 = 0.26
	assert.InDelta(t, 0.26, ExpectedValue(0.45, 180), 1e-9)

	// Negative EV case.
	assert.Less(t, ExpectedValue(0.30, 180), 0.0)
}
