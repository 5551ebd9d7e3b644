// Package domain models wildlife and human-elephant-conflict incident reports.
//
// # Data Source
//
// Incidents are submitted through the reporting form or imported in bulk from
// CSV. The intake side publishes every row as flat JSON to the Kafka source
// topic, one message per incident, using the CSV import column names:
//
//	Date, Latitude, Longitude, Species, IncidentType, Severity, ReportedBy, ID
//
// # Conventions
//
// Date format:
//
//	"2006-01-02 15:04:05" as written by the import template. Plain dates
//	("2006-01-02") and RFC 3339 timestamps are also accepted. An empty Date
//	falls back to the message timestamp.
//
// Severity labels:
//
//	The stored labels are Low, Medium and High. Intake normalizes case and the
//	legacy "Moderate" spelling; anything else becomes Unknown so one bad row
//	never blocks analysis of the rest. Analysis matches "High" exactly.
//
// Species and category:
//
//	Free-text labels, trimmed. Empty values become Unknown.
//
// Ownership:
//
//	ReportedBy identifies the reporting user. Every analysis is scoped to one
//	owner's incidents.
//
// # ID Generation
//
// Rows without an explicit ID get a name-based UUID (SHA-1) over
// owner|lat|lon|date|species|type, so replays of the same import upsert
// idempotently downstream. See [incidentID].
package domain
