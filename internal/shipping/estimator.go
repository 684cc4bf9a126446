// Package shipping estimates parcel delivery cost and delay between wilayas.
package shipping

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRates []byte

// Tier names the rule that produced an estimate
type Tier string

const (
	TierRateTable  Tier = "rate_table"
	TierSameRegion Tier = "same_region"
	TierHub        Tier = "hub"
	TierNearby     Tier = "nearby"
	TierDistance   Tier = "distance"
)

const (
	sameRegionCost = 500
	sameRegionEta  = 1
	hubCost        = 800
	hubEta         = 3
	nearbyCost     = 700
	nearbyEta      = 2
	distanceCost   = 1200
	distanceEta    = 5

	nearbyMaxCodeGap = 5

	// DefaultMaxWeightKg is used when the estimator is built without a limit
	DefaultMaxWeightKg = 1000
)

// hubs are Alger, Oran and Constantine
var hubs = map[int]bool{16: true, 31: true, 25: true}

// Rate is one negotiated entry of the rate table
type Rate struct {
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	BaseRate   float64 `yaml:"base_rate"`
	BaseWeight float64 `yaml:"base_weight"`
	PerKgRate  float64 `yaml:"per_kg_rate"`
	EtaDays    int     `yaml:"eta_days"`
}

type rateFile struct {
	Rates []Rate `yaml:"rates"`
}

// Estimate is the result of a shipping estimation
type Estimate struct {
	From     string
	To       string
	WeightKg float64
	Cost     float64
	EtaDays  int
	Tier     Tier
}

// Estimator computes shipping estimates. It is immutable after construction
// and safe for concurrent use.
type Estimator struct {
	rates       map[[2]string]Rate
	maxWeightKg float64
}

// NewEstimator builds an estimator over the embedded rate table
func NewEstimator(maxWeightKg float64) (*Estimator, error) {
	return NewEstimatorFromYAML(defaultRates, maxWeightKg)
}

// NewEstimatorFromYAML builds an estimator over a custom rate table
func NewEstimatorFromYAML(data []byte, maxWeightKg float64) (*Estimator, error) {
	var file rateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rate table: %w", err)
	}
	if maxWeightKg <= 0 {
		maxWeightKg = DefaultMaxWeightKg
	}

	e := &Estimator{
		rates:       make(map[[2]string]Rate, len(file.Rates)),
		maxWeightKg: maxWeightKg,
	}
	for i, rate := range file.Rates {
		from, okFrom := NormalizeCode(rate.From)
		to, okTo := NormalizeCode(rate.To)
		if !okFrom || !okTo {
			return nil, fmt.Errorf("rate %d: unknown wilaya %q -> %q", i, rate.From, rate.To)
		}
		// Same-region shipments always use the flat local tier.
		if from == to {
			return nil, fmt.Errorf("rate %d: same-region pair %s is not allowed", i, from)
		}
		if rate.BaseRate < 0 || rate.BaseWeight < 0 || rate.PerKgRate < 0 || rate.EtaDays < 1 {
			return nil, fmt.Errorf("rate %d: invalid values for %s -> %s", i, from, to)
		}
		rate.From, rate.To = from, to
		e.rates[pairKey(from, to)] = rate
	}
	return e, nil
}

// MaxWeightKg returns the heaviest parcel the estimator accepts
func (e *Estimator) MaxWeightKg() float64 {
	return e.maxWeightKg
}

// Estimate returns the cost in DZD and the delay in days for a parcel.
// Rules are tried in order: negotiated rate, same region, hub to hub,
// neighbouring codes, then the national flat rate.
func (e *Estimator) Estimate(fromRegion, toRegion string, weightKg float64) (Estimate, error) {
	from, ok := NormalizeCode(fromRegion)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: unknown origin wilaya %q", domain.ErrValidation, fromRegion)
	}
	to, ok := NormalizeCode(toRegion)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: unknown destination wilaya %q", domain.ErrValidation, toRegion)
	}
	if math.IsNaN(weightKg) || weightKg <= 0 || weightKg > e.maxWeightKg {
		return Estimate{}, fmt.Errorf("%w: weight must be greater than 0 and at most %.0f kg", domain.ErrValidation, e.maxWeightKg)
	}

	est := Estimate{From: from, To: to, WeightKg: weightKg}

	if rate, found := e.rates[pairKey(from, to)]; found {
		extra := math.Max(0, weightKg-rate.BaseWeight)
		est.Cost = roundDinar(rate.BaseRate + extra*rate.PerKgRate)
		est.EtaDays = rate.EtaDays
		est.Tier = TierRateTable
		return est, nil
	}

	fromN, toN := codeNumber(from), codeNumber(to)
	switch {
	case from == to:
		est.Cost, est.EtaDays, est.Tier = sameRegionCost, sameRegionEta, TierSameRegion
	case hubs[fromN] && hubs[toN]:
		est.Cost, est.EtaDays, est.Tier = hubCost, hubEta, TierHub
	case abs(fromN-toN) <= nearbyMaxCodeGap:
		est.Cost, est.EtaDays, est.Tier = nearbyCost, nearbyEta, TierNearby
	default:
		est.Cost, est.EtaDays, est.Tier = distanceCost, distanceEta, TierDistance
	}
	return est, nil
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func codeNumber(code string) int {
	n := 0
	for _, c := range code {
		n = n*10 + int(c-'0')
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func roundDinar(v float64) float64 {
	return math.Round(v*100) / 100
}
