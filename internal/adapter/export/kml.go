package export

import (
	"io"

	kml "github.com/twpayne/go-kml"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// KML writes the source geometry back out with resolved elevations as
// absolute altitudes.
type KML struct{}

// Format implements Exporter.
func (KML) Format() string { return config.FormatKML }

// Export implements Exporter.
func (KML) Export(w io.Writer, d *domain.Drawing) error {
	doc := kml.Document(kml.Name("kml2dxf"))

	for _, f := range d.Features {
		pts := d.Points(f)
		if len(pts) == 0 {
			continue
		}
		coords := make([]kml.Coordinate, len(pts))
		for i, p := range pts {
			src := sourcePoint(p)
			coords[i] = kml.Coordinate{Lon: src.Lon(), Lat: src.Lat(), Alt: p.Z}
		}

		var geometry kml.Element
		switch {
		case f.Kind == domain.KindPoint || len(pts) == 1:
			geometry = kml.Point(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.Coordinates(coords[0]),
			)
		case f.Kind == domain.KindPolygon:
			geometry = kml.Polygon(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.OuterBoundaryIs(kml.LinearRing(kml.Coordinates(append(coords, coords[0])...))),
			)
		default:
			geometry = kml.LineString(
				kml.AltitudeMode(kml.AltitudeModeAbsolute),
				kml.Coordinates(coords...),
			)
		}

		name := f.Name
		if f.Kind == domain.KindPoint {
			name = pts[0].ID
		}
		children := []kml.Element{kml.Name(name)}
		if orig := pts[0].Original; orig != nil && orig.Properties[propDescription] != "" {
			children = append(children, kml.Description(orig.Properties[propDescription]))
		}
		doc.Add(kml.Placemark(append(children, geometry)...))
	}

	return kml.KML(doc).WriteIndent(w, "", "  ")
}

const propDescription = "description"
