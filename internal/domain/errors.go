package domain

import (
	"errors"
	"fmt"
)

// ErrMixedOwners is returned when one analysis input spans several owners.
var ErrMixedOwners = errors.New("incidents belong to more than one owner")

// InsufficientDataError reports that too few incidents were supplied for an
// analysis. It is a usability guard and is surfaced to the user as-is.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d incidents to analyze, have %d", e.Need, e.Have)
}

// InvalidCoordinateError reports an out-of-range or non-finite position.
type InvalidCoordinateError struct {
	IncidentID string
	Lat        float64
	Lon        float64
}

func (e *InvalidCoordinateError) Error() string {
	if e.IncidentID == "" {
		return fmt.Sprintf("invalid coordinate (%g, %g)", e.Lat, e.Lon)
	}
	return fmt.Sprintf("incident %s: invalid coordinate (%g, %g)", e.IncidentID, e.Lat, e.Lon)
}
