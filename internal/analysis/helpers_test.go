package analysis

import (
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

const (
	testOwner = "ranger@example.org"
	elephant  = "Asian Elephant"
	boar      = "Wild Boar"
	leopard   = "Leopard"
)

// monday is 2024-03-11, a Monday.
var monday = time.Date(2024, time.March, 11, 18, 0, 0, 0, time.UTC)

func incident(id string, lat, lon float64, species string, sev domain.Severity) domain.Incident {
	return domain.Incident{
		ID:         id,
		Owner:      testOwner,
		Geo:        domain.Geo{Lat: lat, Lon: lon},
		Species:    species,
		Category:   "Crop Raid",
		Severity:   sev,
		ObservedAt: monday,
	}
}

func ids(incidents []domain.Incident, members []int) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = incidents[m].ID
	}
	return out
}
