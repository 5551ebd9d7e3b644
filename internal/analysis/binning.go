package analysis

import (
	"math"
	"sort"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// gridKey identifies a grid cell by its rounded row and column index.
// The cell centre is (row*size, col*size).
type gridKey struct {
	row int64
	col int64
}

func cellKey(g domain.Geo, size float64) gridKey {
	return gridKey{
		row: int64(math.Round(g.Lat / size)),
		col: int64(math.Round(g.Lon / size)),
	}
}

// binGrid groups incident indexes by grid cell. Membership does not depend on
// input order; groups are returned in order of their first member and each
// group lists its members in input order.
func binGrid(incidents []domain.Incident, size float64) [][]int {
	cells := make(map[gridKey][]int)
	var order []gridKey

	for i := range incidents {
		key := cellKey(incidents[i].Geo, size)
		if _, ok := cells[key]; !ok {
			order = append(order, key)
		}
		cells[key] = append(cells[key], i)
	}

	groups := make([][]int, 0, len(order))
	for _, key := range order {
		groups = append(groups, cells[key])
	}
	return groups
}

// binProximity seeds a group with each unprocessed incident in input order and
// absorbs every later unprocessed incident whose latitude and longitude both
// differ from the seed by less than threshold. The result depends on input
// order but is reproducible for a given order.
func binProximity(incidents []domain.Incident, threshold float64) [][]int {
	processed := make([]bool, len(incidents))
	var groups [][]int

	for i := range incidents {
		if processed[i] {
			continue
		}
		processed[i] = true
		seed := incidents[i].Geo
		group := []int{i}

		for j := i + 1; j < len(incidents); j++ {
			if processed[j] {
				continue
			}
			g := incidents[j].Geo
			if math.Abs(g.Lat-seed.Lat) < threshold && math.Abs(g.Lon-seed.Lon) < threshold {
				processed[j] = true
				group = append(group, j)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// centroid is the arithmetic mean of the member coordinates. Values are summed
// in sorted order so the result is identical for any permutation of members.
func centroid(incidents []domain.Incident, members []int) domain.Geo {
	lats := make([]float64, len(members))
	lons := make([]float64, len(members))
	for k, idx := range members {
		lats[k] = incidents[idx].Geo.Lat
		lons[k] = incidents[idx].Geo.Lon
	}
	return domain.Geo{Lat: sortedMean(lats), Lon: sortedMean(lons)}
}

func sortedMean(values []float64) float64 {
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
