package pipeline

import (
	"fmt"

	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/projection"
)

// BuildDrawing projects every record of doc and attaches its elevation.
// elevations must be index-aligned with doc.Records; absent values export as 0.
func BuildDrawing(doc *domain.Document, elevations []domain.Elevation, projector projection.Projector) (*domain.Drawing, error) {
	if len(elevations) != len(doc.Records) {
		return nil, fmt.Errorf("have %d elevations for %d records", len(elevations), len(doc.Records))
	}

	_, identity := projector.(projection.Identity)
	d := &domain.Drawing{
		Records:   make([]domain.XYZRecord, len(doc.Records)),
		Features:  doc.Features,
		Projected: !identity,
	}
	for i := range doc.Records {
		rec := &doc.Records[i]
		x, y, err := projector.Project(rec.Lat, rec.Lon)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", rec.ID, err)
		}
		d.Records[i] = domain.ToXYZ(rec, x, y, elevations[i])
	}
	return d, nil
}
