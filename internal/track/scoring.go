package track

import "fmt"

// Road is a single-character road classification code.
type Road byte

const (
	RoadResidential Road = 'r'
	RoadLocal       Road = 'l'
	RoadMotorway    Road = 'm'
)

// Terrain is a single-character terrain classification code.
type Terrain byte

const (
	TerrainDirt   Terrain = 'd'
	TerrainGravel Terrain = 'g'
	TerrainPaved  Terrain = 'p'
)

// Roads and Terrains list every legal code. Loader validation and
// ScoringParams.Validate both key off these.
var (
	Roads    = []Road{RoadResidential, RoadLocal, RoadMotorway}
	Terrains = []Terrain{TerrainDirt, TerrainGravel, TerrainPaved}
)

// slopeBandKeys are the representative gradients the slope consumption table
// is keyed by. slopeBand maps a real gradient into one of these.
var slopeBandKeys = []int{-8, -4, 0, 4, 8, 12}

// slopeBand buckets a slope percentage into its consumption band.
func slopeBand(slope float64) int {
	switch {
	case slope < -6:
		return -8
	case slope < -2:
		return -4
	case slope <= 2:
		return 0
	case slope <= 6:
		return 4
	case slope <= 10:
		return 8
	default:
		return 12
	}
}

// ScoringParams holds the vehicle consumption model. Scoring is configured
// with an explicit value rather than package-level mutable defaults so
// concurrent callers can hold different models.
type ScoringParams struct {
	// BaseConsumption is litres of fuel per 100 km under neutral conditions.
	BaseConsumption float64
	// CO2PerLitre is kilograms of CO2 per litre of fuel burned.
	CO2PerLitre float64
	// RoadFactors, TerrainFactors and SlopeFactors are consumption
	// multipliers per road code, terrain code and slope band.
	RoadFactors    map[Road]float64
	TerrainFactors map[Terrain]float64
	SlopeFactors   map[int]float64
	// RoadSpeeds is the average speed in km/h per road code.
	RoadSpeeds map[Road]float64
}

// DefaultScoringParams returns the reference consumption model.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		BaseConsumption: 5.4,
		CO2PerLitre:     2.6391,
		RoadFactors: map[Road]float64{
			RoadResidential: 1.4,
			RoadLocal:       1,
			RoadMotorway:    1.25,
		},
		TerrainFactors: map[Terrain]float64{
			TerrainDirt:   2.5,
			TerrainGravel: 1.25,
			TerrainPaved:  1,
		},
		SlopeFactors: map[int]float64{
			-8: 0.16,
			-4: 0.45,
			0:  1,
			4:  1.3,
			8:  2.35,
			12: 2.9,
		},
		RoadSpeeds: map[Road]float64{
			RoadResidential: 30,
			RoadLocal:       80,
			RoadMotorway:    120,
		},
	}
}

// Validate checks the model is complete: every legal road, terrain and slope
// band must have an entry, so the per-segment lookups in CO2 and Time can be
// plain keyed reads with no fall-through.
func (p ScoringParams) Validate() error {
	if p.BaseConsumption <= 0 {
		return fmt.Errorf("base consumption must be positive, got %v", p.BaseConsumption)
	}
	if p.CO2PerLitre <= 0 {
		return fmt.Errorf("co2 per litre must be positive, got %v", p.CO2PerLitre)
	}
	for _, r := range Roads {
		if _, ok := p.RoadFactors[r]; !ok {
			return fmt.Errorf("road factor missing for code %q", string(r))
		}
		if s, ok := p.RoadSpeeds[r]; !ok || s <= 0 {
			return fmt.Errorf("road speed missing or non-positive for code %q", string(r))
		}
	}
	for _, tr := range Terrains {
		if _, ok := p.TerrainFactors[tr]; !ok {
			return fmt.Errorf("terrain factor missing for code %q", string(tr))
		}
	}
	for _, band := range slopeBandKeys {
		if _, ok := p.SlopeFactors[band]; !ok {
			return fmt.Errorf("slope factor missing for band %d%%", band)
		}
	}
	return nil
}
