package shipping

import (
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := NewEstimator(1000)
	require.NoError(t, err)
	return e
}

func TestEstimate_SameRegionIgnoresWeight(t *testing.T) {
	e := newTestEstimator(t)

	for _, code := range []string{"16", "01", "31", "58"} {
		for _, weight := range []float64{0.1, 8, 250, 1000} {
			est, err := e.Estimate(code, code, weight)
			require.NoError(t, err)
			assert.Equal(t, float64(500), est.Cost, "code %s weight %v", code, weight)
			assert.Equal(t, 1, est.EtaDays)
			assert.Equal(t, TierSameRegion, est.Tier)
		}
	}
}

func TestEstimate_AlgerToAlgerEightKilos(t *testing.T) {
	e := newTestEstimator(t)

	est, err := e.Estimate("16", "16", 8)
	require.NoError(t, err)
	assert.Equal(t, float64(500), est.Cost)
	assert.Equal(t, 1, est.EtaDays)
}

func TestEstimate_RateTable(t *testing.T) {
	e := newTestEstimator(t)

	t.Run("under base weight", func(t *testing.T) {
		est, err := e.Estimate("16", "09", 3)
		require.NoError(t, err)
		assert.Equal(t, TierRateTable, est.Tier)
		assert.Equal(t, float64(450), est.Cost)
		assert.Equal(t, 1, est.EtaDays)
	})

	t.Run("over base weight", func(t *testing.T) {
		est, err := e.Estimate("16", "09", 7.5)
		require.NoError(t, err)
		assert.Equal(t, 450+2.5*30, est.Cost)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, err := e.Estimate("16", "31", 20)
		require.NoError(t, err)
		b, err := e.Estimate("31", "16", 20)
		require.NoError(t, err)
		assert.Equal(t, a.Cost, b.Cost)
		assert.Equal(t, a.EtaDays, b.EtaDays)
		assert.Equal(t, TierRateTable, a.Tier)
	})
}

func TestEstimate_Heuristics(t *testing.T) {
	e, err := NewEstimatorFromYAML([]byte("rates: []"), 1000)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to string
		cost     float64
		eta      int
		tier     Tier
	}{
		{"hub to hub", "16", "31", 800, 3, TierHub},
		{"hub to hub reversed", "25", "16", 800, 3, TierHub},
		{"nearby codes", "09", "10", 700, 2, TierNearby},
		{"gap of five", "10", "15", 700, 2, TierNearby},
		{"far away", "01", "58", 1200, 5, TierDistance},
		{"gap of six", "10", "16", 1200, 5, TierDistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := e.Estimate(tt.from, tt.to, 12)
			require.NoError(t, err)
			assert.Equal(t, tt.cost, est.Cost)
			assert.Equal(t, tt.eta, est.EtaDays)
			assert.Equal(t, tt.tier, est.Tier)
		})
	}
}

func TestEstimate_NormalizesCodes(t *testing.T) {
	e := newTestEstimator(t)

	est, err := e.Estimate("1", " 01 ", 2)
	require.NoError(t, err)
	assert.Equal(t, "01", est.From)
	assert.Equal(t, "01", est.To)
	assert.Equal(t, TierSameRegion, est.Tier)
}

func TestEstimate_Validation(t *testing.T) {
	e := newTestEstimator(t)

	tests := []struct {
		name     string
		from, to string
		weight   float64
	}{
		{"zero weight", "16", "31", 0},
		{"negative weight", "16", "31", -2},
		{"too heavy", "16", "31", 1000.5},
		{"unknown origin", "59", "31", 5},
		{"unknown destination", "16", "00", 5},
		{"not a code", "alger", "31", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Estimate(tt.from, tt.to, tt.weight)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestNewEstimatorFromYAML_RejectsSameRegionPair(t *testing.T) {
	_, err := NewEstimatorFromYAML([]byte(`
rates:
  - from: "16"
    to: "16"
    base_rate: 100
    base_weight: 1
    per_kg_rate: 1
    eta_days: 1
`), 1000)
	assert.Error(t, err)
}

func TestWilayas(t *testing.T) {
	list := Wilayas()
	require.Len(t, list, 58)
	assert.Equal(t, "01", list[0].Code)
	assert.Equal(t, "Adrar", list[0].Name)
	assert.Equal(t, "Alger", WilayaName("16"))
	assert.Equal(t, "Adrar", WilayaName("1"))
	assert.Equal(t, "", WilayaName("99"))
}
