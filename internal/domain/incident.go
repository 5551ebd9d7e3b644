package domain

import (
	"context"
	"time"
)

// Severity is the stored severity label of an incident.
type Severity string

const (
	SeverityLow     Severity = "Low"
	SeverityMedium  Severity = "Medium"
	SeverityHigh    Severity = "High"
	SeverityUnknown Severity = "Unknown"
)

// Known reports whether s is one of the stored labels Low, Medium or High.
// The match is case-sensitive.
func (s Severity) Known() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// UnknownLabel is substituted for empty species and category values.
const UnknownLabel = "Unknown"

// RawIncidentRecord is the flat JSON structure published by the intake side.
// Field names follow the CSV import template.
type RawIncidentRecord struct {
	ID           string `json:"ID,omitempty"`
	Date         string `json:"Date"`
	Latitude     string `json:"Latitude"`
	Longitude    string `json:"Longitude"`
	Species      string `json:"Species"`
	IncidentType string `json:"IncidentType"`
	Severity     string `json:"Severity"`
	ReportedBy   string `json:"ReportedBy"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair in degrees.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Incident is a single normalized conflict report.
type Incident struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Geo        Geo       `json:"geo"`
	Species    string    `json:"species"`
	Category   string    `json:"category"`
	Severity   Severity  `json:"severity"`
	ObservedAt time.Time `json:"observed_at"`

	ProcessedAt time.Time `json:"processed_at,omitempty"`
}
