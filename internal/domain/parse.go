package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// incidentNamespace scopes derived incident IDs.
var incidentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wildlife-incident-analyzer/incident"))

// ParseRawEvent deserializes a RawEvent's value into an Incident.
// It expects the flat CSV-style JSON published by the intake side.
func ParseRawEvent(raw RawEvent) (Incident, error) {
	var rec RawIncidentRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Incident{}, fmt.Errorf("parse raw event: %w", err)
	}
	return ParseRecord(rec, raw.Timestamp)
}

// ParseRecord converts one import row into an Incident. fallback is used as
// the observation time when the Date column is empty.
func ParseRecord(rec RawIncidentRecord, fallback time.Time) (Incident, error) {
	owner := strings.TrimSpace(rec.ReportedBy)
	if owner == "" {
		return Incident{}, errors.New("parse record: ReportedBy is required")
	}

	lat, err := parseCoordinate("Latitude", rec.Latitude)
	if err != nil {
		return Incident{}, err
	}
	lon, err := parseCoordinate("Longitude", rec.Longitude)
	if err != nil {
		return Incident{}, err
	}

	observedAt, err := parseDate(rec.Date, fallback)
	if err != nil {
		return Incident{}, err
	}

	inc := Incident{
		ID:         strings.TrimSpace(rec.ID),
		Owner:      owner,
		Geo:        Geo{Lat: lat, Lon: lon},
		Species:    labelOrUnknown(rec.Species),
		Category:   labelOrUnknown(rec.IncidentType),
		Severity:   NormalizeSeverity(rec.Severity),
		ObservedAt: observedAt,
	}
	if inc.ID == "" {
		inc.ID = incidentID(owner, lat, lon, strings.TrimSpace(rec.Date), rec.Species, rec.IncidentType)
	}
	if err := ValidateGeo(inc.ID, inc.Geo); err != nil {
		return Incident{}, err
	}
	return inc, nil
}

// NormalizeIncident applies intake normalization and stamps ProcessedAt.
func NormalizeIncident(inc Incident) Incident {
	inc.Species = labelOrUnknown(inc.Species)
	inc.Category = labelOrUnknown(inc.Category)
	inc.Severity = NormalizeSeverity(string(inc.Severity))
	inc.ProcessedAt = clock.Now()
	return inc
}

// NormalizeSeverity maps free-text severity onto the stored labels.
// Matching is case-insensitive; "moderate" is accepted for Medium.
func NormalizeSeverity(value string) Severity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

func labelOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownLabel
	}
	return s
}

func parseCoordinate(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("parse record: %s %q: %w", field, value, err)
	}
	return v, nil
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse record: Date %q: unsupported format", value)
}

// incidentID derives a stable ID from the identifying columns of a row.
func incidentID(owner string, lat, lon float64, date, species, category string) string {
	key := fmt.Sprintf("%s|%.6f|%.6f|%s|%s|%s", owner, lat, lon, date, species, category)
	return uuid.NewSHA1(incidentNamespace, []byte(key)).String()
}
