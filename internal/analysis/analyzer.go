// Package analysis groups one owner's incidents into spatial hotspots, scores
// their risk, and summarizes weekday patterns.
//
// Analyze is a pure function: it performs no I/O, keeps no state between
// calls, and never modifies its input. Concurrent calls are independent.
package analysis

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// ZoneKind distinguishes cluster-based zones from standalone incidents.
type ZoneKind string

const (
	KindCluster ZoneKind = "cluster"
	KindPoint   ZoneKind = "point"
)

// Zone is a hotspot or prediction entry.
type Zone struct {
	Label              string         `json:"label"`
	Kind               ZoneKind       `json:"kind"`
	Center             domain.Geo     `json:"center"`
	RadiusKm           float64        `json:"radius_km"`
	IncidentCount      int            `json:"incident_count"`
	HighSeverityCount  int            `json:"high_severity_count"`
	RiskLevel          RiskLevel      `json:"risk_level"`
	RiskScore          int            `json:"risk_score"`
	Rationale          string         `json:"rationale"`
	DominantSpecies    []string       `json:"dominant_species"`
	DominantCategories []string       `json:"dominant_categories"`
	SeverityBreakdown  map[string]int `json:"severity_breakdown"`
	IncidentIDs        []string       `json:"incident_ids"`
	PlaceName          string         `json:"place_name,omitempty"`

	firstIndex int
}

// Statistics is the owner-level summary shown next to the hotspot list.
type Statistics struct {
	TotalIncidents        int            `json:"total_incidents"`
	HighSeverityIncidents int            `json:"high_severity_incidents"`
	HotspotCount          int            `json:"hotspot_count"`
	HighRiskAreas         int            `json:"high_risk_areas"`
	DataCoverage          int            `json:"data_coverage"` // percent, 10 per incident up to 100
	SeverityBreakdown     map[string]int `json:"severity_breakdown"`
}

// Result is everything one analysis produces.
type Result struct {
	Policy      Policy       `json:"policy"`
	Hotspots    []Zone       `json:"hotspots"`
	Predictions []Zone       `json:"predictions"`
	DayPatterns []DayPattern `json:"day_patterns"`
	Statistics  Statistics   `json:"statistics"`
}

// Analyze clusters incidents, scores each promoted cluster, and assembles
// hotspots, predictions, weekday patterns and statistics.
//
// It returns *domain.InsufficientDataError when fewer than cfg.MinIncidents
// incidents are given, domain.ErrMixedOwners when the incidents span several
// owners, and *domain.InvalidCoordinateError for a bad position when
// cfg.ValidateCoordinates is set. No partial result accompanies an error.
func Analyze(incidents []domain.Incident, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("analysis config: %w", err)
	}
	if len(incidents) < cfg.MinIncidents {
		return Result{}, &domain.InsufficientDataError{Have: len(incidents), Need: cfg.MinIncidents}
	}
	if err := checkSingleOwner(incidents); err != nil {
		return Result{}, err
	}
	if cfg.ValidateCoordinates {
		for i := range incidents {
			if err := domain.ValidateGeo(incidents[i].ID, incidents[i].Geo); err != nil {
				return Result{}, err
			}
		}
	}

	policy := effectivePolicy(cfg, len(incidents))

	var groups [][]int
	switch policy {
	case PolicyProximity:
		groups = binProximity(incidents, cfg.ProximityDegrees)
	default:
		groups = binGrid(incidents, cfg.GridCellDegrees)
	}

	hotspots := make([]Zone, 0, len(groups))
	for _, members := range groups {
		if len(members) < cfg.MinClusterSize {
			continue
		}
		hotspots = append(hotspots, cfg.scoreCluster(incidents, members))
	}
	rankZones(hotspots)
	for i := range hotspots {
		hotspots[i].Label = fmt.Sprintf("Hotspot %d", i+1)
	}

	return Result{
		Policy:      policy,
		Hotspots:    hotspots,
		Predictions: predictions(incidents, hotspots, cfg),
		DayPatterns: dayPatterns(incidents),
		Statistics:  statistics(incidents, hotspots),
	}, nil
}

// effectivePolicy falls back to the grid when the proximity policy would
// exceed its input bound.
func effectivePolicy(cfg Config, n int) Policy {
	if cfg.Policy == PolicyProximity && cfg.ProximityMaxIncidents > 0 && n > cfg.ProximityMaxIncidents {
		return PolicyGrid
	}
	return cfg.Policy
}

func checkSingleOwner(incidents []domain.Incident) error {
	owner := ""
	for i := range incidents {
		o := incidents[i].Owner
		if o == "" {
			continue
		}
		if owner == "" {
			owner = o
			continue
		}
		if o != owner {
			return domain.ErrMixedOwners
		}
	}
	return nil
}

// rankZones orders zones by risk score, then size, then first appearance.
func rankZones(zones []Zone) {
	sort.SliceStable(zones, func(i, j int) bool {
		a, b := zones[i], zones[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		if a.IncidentCount != b.IncidentCount {
			return a.IncidentCount > b.IncidentCount
		}
		return a.firstIndex < b.firstIndex
	})
}

// predictions lists cluster zones first, then up to MaxHighRiskPoints
// standalone High incidents in input order, truncated to MaxPredictions.
func predictions(incidents []domain.Incident, hotspots []Zone, cfg Config) []Zone {
	out := make([]Zone, 0, cfg.MaxPredictions)
	for i, z := range hotspots {
		if len(out) == cfg.MaxPredictions {
			return out
		}
		z.Label = fmt.Sprintf("Risk Zone %d", i+1)
		out = append(out, z)
	}

	points := 0
	for i := range incidents {
		if points == cfg.MaxHighRiskPoints || len(out) == cfg.MaxPredictions {
			break
		}
		if incidents[i].Severity != domain.SeverityHigh {
			continue
		}
		points++
		z := scorePoint(incidents, i)
		z.Label = fmt.Sprintf("High Risk Point %d", points)
		out = append(out, z)
	}
	return out
}

func statistics(incidents []domain.Incident, hotspots []Zone) Statistics {
	stats := Statistics{
		TotalIncidents:    len(incidents),
		HotspotCount:      len(hotspots),
		DataCoverage:      min(100, len(incidents)*10),
		SeverityBreakdown: make(map[string]int),
	}
	for i := range incidents {
		stats.SeverityBreakdown[severityKey(incidents[i].Severity)]++
		if incidents[i].Severity == domain.SeverityHigh {
			stats.HighSeverityIncidents++
		}
	}
	for i := range hotspots {
		if hotspots[i].RiskLevel == RiskHigh {
			stats.HighRiskAreas++
		}
	}
	return stats
}
