package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

// IncidentTransformer implements Transformer using the domain parse and
// normalization functions.
type IncidentTransformer struct{}

// NewTransformer creates an IncidentTransformer.
func NewTransformer() *IncidentTransformer {
	return &IncidentTransformer{}
}

func (t *IncidentTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Incident, error) {
	inc, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Incident{}, fmt.Errorf("offset %d: %w", raw.Offset, err)
	}
	return domain.NormalizeIncident(inc), nil
}
