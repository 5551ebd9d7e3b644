package domain

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvColumns are the import template headers, matched case-insensitively.
var csvColumns = []string{"ID", "Date", "Latitude", "Longitude", "Species", "IncidentType", "Severity", "ReportedBy"}

// ReadRecordsCSV reads an import CSV with a header row. Unknown columns are
// ignored; Latitude, Longitude and ReportedBy are required.
func ReadRecordsCSV(r io.Reader) ([]RawIncidentRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")
		for _, col := range csvColumns {
			if strings.EqualFold(h, col) {
				idx[col] = i
			}
		}
	}
	for _, col := range []string{"Latitude", "Longitude", "ReportedBy"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csv header missing %s column", col)
		}
	}

	var recs []RawIncidentRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		recs = append(recs, RawIncidentRecord{
			ID:           get("ID"),
			Date:         get("Date"),
			Latitude:     get("Latitude"),
			Longitude:    get("Longitude"),
			Species:      get("Species"),
			IncidentType: get("IncidentType"),
			Severity:     get("Severity"),
			ReportedBy:   get("ReportedBy"),
		})
	}
	return recs, nil
}
