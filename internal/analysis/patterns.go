package analysis

import (
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// DayPattern summarizes incidents observed on one weekday.
type DayPattern struct {
	Day        string  `json:"day"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	RiskLevel  string  `json:"risk_level"`
}

var weekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// dayPatterns buckets dated incidents by weekday, Monday first. Every weekday
// is present, including those with no incidents. Undated incidents are ignored.
func dayPatterns(incidents []domain.Incident) []DayPattern {
	var counts [7]int
	total := 0
	for i := range incidents {
		if incidents[i].ObservedAt.IsZero() {
			continue
		}
		counts[incidents[i].ObservedAt.Weekday()]++
		total++
	}

	patterns := make([]DayPattern, 0, len(weekOrder))
	for _, day := range weekOrder {
		var pct float64
		if total > 0 {
			pct = float64(counts[day]*100) / float64(total)
		}
		patterns = append(patterns, DayPattern{
			Day:        day.String(),
			Count:      counts[day],
			Percentage: pct,
			RiskLevel:  dayRisk(pct),
		})
	}
	return patterns
}

func dayRisk(pct float64) string {
	switch {
	case pct > 20:
		return "High"
	case pct > 10:
		return "Medium"
	default:
		return "Low"
	}
}
