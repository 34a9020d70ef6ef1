package export

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// GeoJSON writes a FeatureCollection in WGS-84 lon/lat. Elevations travel in
// properties since orb geometries are two-dimensional.
type GeoJSON struct{}

// Format implements Exporter.
func (GeoJSON) Format() string { return config.FormatGeoJSON }

// Export implements Exporter.
func (GeoJSON) Export(w io.Writer, d *domain.Drawing) error {
	fc := geojson.NewFeatureCollection()

	for _, f := range d.Features {
		pts := d.Points(f)
		if len(pts) == 0 {
			continue
		}
		line := make(orb.LineString, len(pts))
		elevations := make([]float64, len(pts))
		for i, p := range pts {
			line[i] = sourcePoint(p)
			elevations[i] = p.Z
		}

		var feat *geojson.Feature
		switch {
		case f.Kind == domain.KindPoint || len(pts) == 1:
			p := pts[0]
			feat = geojson.NewFeature(line[0])
			feat.ID = p.ID
			feat.Properties["id"] = p.ID
			feat.Properties["elevation"] = p.Z
			feat.Properties["x"] = p.X
			feat.Properties["y"] = p.Y
			if p.Original != nil {
				for k, v := range p.Original.Properties {
					feat.Properties[k] = v
				}
			}
		case f.Kind == domain.KindPolygon:
			ring := orb.Ring(append(line, line[0]))
			feat = geojson.NewFeature(orb.Polygon{ring})
			feat.Properties["elevations"] = elevations
		default:
			feat = geojson.NewFeature(line)
			feat.Properties["elevations"] = elevations
		}
		feat.Properties["kind"] = string(f.Kind)
		if f.Name != "" {
			feat.Properties["name"] = f.Name
		}
		fc.Append(feat)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

func sourcePoint(r domain.XYZRecord) orb.Point {
	if r.Original == nil {
		return orb.Point{r.Y, r.X}
	}
	return r.Original.Coordinate().Point()
}
