package analysis

import "time"

// Report is a published analysis snapshot for one owner.
type Report struct {
	Owner       string    `json:"owner"`
	GeneratedAt time.Time `json:"generated_at"`
	Result      Result    `json:"result"`
}

// HighestRisk returns the highest level among the report's hotspots, or the
// empty string when there are none.
func (r Report) HighestRisk() RiskLevel {
	var best RiskLevel
	for _, z := range r.Result.Hotspots {
		if levelRank(z.RiskLevel) > levelRank(best) {
			best = z.RiskLevel
		}
	}
	return best
}

func levelRank(l RiskLevel) int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}
