package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// RiskLevel is the qualitative risk of a zone.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// RiskScore weights high-severity incidents three times as heavily as the rest:
// every member counts once and every High member counts twice more.
func RiskScore(members, high int) int {
	return members + 2*high
}

// Level maps a score onto the threshold ladder, highest rung first.
func (c Config) Level(score int) RiskLevel {
	switch {
	case score >= c.HighRiskScore:
		return RiskHigh
	case score >= c.MediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

// LabelCount is a label with its number of occurrences.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// rankByFrequency orders labels by descending count. Equal counts keep the
// order in which the labels first appeared.
func rankByFrequency(labels []string) []LabelCount {
	index := make(map[string]int, len(labels))
	var ranked []LabelCount
	for _, l := range labels {
		if i, ok := index[l]; ok {
			ranked[i].Count++
			continue
		}
		index[l] = len(ranked)
		ranked = append(ranked, LabelCount{Label: l, Count: 1})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// topLabels returns up to limit labels from ranked. A limit of 0 keeps all.
func topLabels(ranked []LabelCount, limit int) []string {
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, lc := range ranked {
		out[i] = lc.Label
	}
	return out
}

// severityKey buckets unknown labels under Unknown.
func severityKey(s domain.Severity) string {
	if s.Known() {
		return string(s)
	}
	return string(domain.SeverityUnknown)
}

// scoreCluster builds the hotspot zone for one promoted group.
func (c Config) scoreCluster(incidents []domain.Incident, members []int) Zone {
	center := centroid(incidents, members)

	species := make([]string, len(members))
	categories := make([]string, len(members))
	ids := make([]string, len(members))
	breakdown := make(map[string]int)
	high := 0
	var radius float64

	for k, idx := range members {
		inc := incidents[idx]
		species[k] = inc.Species
		categories[k] = inc.Category
		ids[k] = inc.ID
		breakdown[severityKey(inc.Severity)]++
		if inc.Severity == domain.SeverityHigh {
			high++
		}
		if d := DistanceKm(center, inc.Geo); d > radius {
			radius = d
		}
	}

	score := RiskScore(len(members), high)
	dominant := topLabels(rankByFrequency(species), c.MaxDominantSpecies)

	return Zone{
		Kind:               KindCluster,
		Center:             center,
		RadiusKm:           radius,
		IncidentCount:      len(members),
		HighSeverityCount:  high,
		RiskScore:          score,
		RiskLevel:          c.Level(score),
		Rationale:          clusterRationale(len(members), high, dominant),
		DominantSpecies:    dominant,
		DominantCategories: topLabels(rankByFrequency(categories), c.MaxDominantSpecies),
		SeverityBreakdown:  breakdown,
		IncidentIDs:        ids,
		firstIndex:         members[0],
	}
}

// scorePoint builds a standalone prediction for one high-severity incident.
// Points are surfaced because of their severity, so they are always HIGH.
func scorePoint(incidents []domain.Incident, idx int) Zone {
	inc := incidents[idx]
	return Zone{
		Kind:               KindPoint,
		Center:             inc.Geo,
		IncidentCount:      1,
		HighSeverityCount:  1,
		RiskScore:          RiskScore(1, 1),
		RiskLevel:          RiskHigh,
		Rationale:          fmt.Sprintf("Based on a high severity %s %s incident", inc.Species, inc.Category),
		DominantSpecies:    []string{inc.Species},
		DominantCategories: []string{inc.Category},
		SeverityBreakdown:  map[string]int{string(domain.SeverityHigh): 1},
		IncidentIDs:        []string{inc.ID},
		firstIndex:         idx,
	}
}

func clusterRationale(size, high int, species []string) string {
	lead := domain.UnknownLabel
	if len(species) > 0 {
		lead = strings.Join(species, ", ")
	}
	return fmt.Sprintf("%d incidents clustered here, %d of high severity; mostly %s", size, high, lead)
}
