package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// Policy selects how incidents are grouped into cluster candidates.
type Policy string

const (
	// PolicyGrid bins incidents into fixed-size latitude/longitude cells.
	PolicyGrid Policy = "grid"
	// PolicyProximity grows clusters around seed incidents in input order.
	PolicyProximity Policy = "proximity"
)

// ParsePolicy accepts "grid" or "proximity", case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyGrid, PolicyProximity:
		return p, nil
	default:
		return "", fmt.Errorf("unknown analysis policy %q", s)
	}
}

// Config holds the analysis knobs. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Policy Policy `yaml:"policy" json:"policy"`

	// GridCellDegrees is the cell edge for the grid policy. 0.02° is roughly
	// 2 km at mid-latitudes.
	GridCellDegrees float64 `yaml:"grid_cell_degrees" json:"grid_cell_degrees"`
	// ProximityDegrees is the per-axis box half-width for the proximity policy.
	ProximityDegrees float64 `yaml:"proximity_degrees" json:"proximity_degrees"`
	// ProximityMaxIncidents bounds the O(n²) proximity policy. Larger inputs
	// are binned with the grid policy instead. 0 disables the bound.
	ProximityMaxIncidents int `yaml:"proximity_max_incidents" json:"proximity_max_incidents"`

	MinClusterSize int `yaml:"min_cluster_size" json:"min_cluster_size"`
	MinIncidents   int `yaml:"min_incidents" json:"min_incidents"`

	HighRiskScore   int `yaml:"high_risk_score" json:"high_risk_score"`
	MediumRiskScore int `yaml:"medium_risk_score" json:"medium_risk_score"`

	MaxHighRiskPoints  int `yaml:"max_high_risk_points" json:"max_high_risk_points"`
	MaxPredictions     int `yaml:"max_predictions" json:"max_predictions"`
	MaxDominantSpecies int `yaml:"max_dominant_species" json:"max_dominant_species"` // 0 keeps all

	ValidateCoordinates bool `yaml:"validate_coordinates" json:"validate_coordinates"`
}

// DefaultConfig returns the standard deployment settings.
func DefaultConfig() Config {
	return Config{
		Policy:                PolicyGrid,
		GridCellDegrees:       0.02,
		ProximityDegrees:      0.01,
		ProximityMaxIncidents: 5000,
		MinClusterSize:        2,
		MinIncidents:          3,
		HighRiskScore:         5,
		MediumRiskScore:       3,
		MaxHighRiskPoints:     3,
		MaxPredictions:        10,
		MaxDominantSpecies:    3,
		ValidateCoordinates:   true,
	}
}

// WithPolicy returns a copy of c using policy p.
func (c Config) WithPolicy(p Policy) Config {
	c.Policy = p
	return c
}

// Validate reports the first setting that cannot produce a meaningful analysis.
func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	switch {
	case c.GridCellDegrees <= 0:
		return errors.New("grid_cell_degrees must be positive")
	case c.ProximityDegrees <= 0:
		return errors.New("proximity_degrees must be positive")
	case c.ProximityMaxIncidents < 0:
		return errors.New("proximity_max_incidents must not be negative")
	case c.MinClusterSize < 2:
		return errors.New("min_cluster_size must be at least 2")
	case c.MinIncidents < 1:
		return errors.New("min_incidents must be at least 1")
	case c.MediumRiskScore < 1 || c.HighRiskScore < c.MediumRiskScore:
		return errors.New("risk scores must satisfy 1 <= medium_risk_score <= high_risk_score")
	case c.MaxHighRiskPoints < 0:
		return errors.New("max_high_risk_points must not be negative")
	case c.MaxPredictions < 1:
		return errors.New("max_predictions must be at least 1")
	case c.MaxDominantSpecies < 0:
		return errors.New("max_dominant_species must not be negative")
	}
	return nil
}
