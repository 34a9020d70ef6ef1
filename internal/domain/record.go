package domain

import "github.com/paulmach/orb"

// PointRecord is one real-world point extracted from the source document.
type PointRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Coordinate returns the record's position.
func (p PointRecord) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// XYZRecord is a PointRecord with resolved planar (or geographic) coordinates
// and elevation. Original is a non-owning back-reference.
type XYZRecord struct {
	ID       string
	Name     string
	X        float64
	Y        float64
	Z        float64
	Original *PointRecord
}

// GeometryKind identifies the placemark geometry a feature came from.
type GeometryKind string

const (
	KindPoint   GeometryKind = "point"
	KindLine    GeometryKind = "line"
	KindPolygon GeometryKind = "polygon"
)

// Feature is one geometry of a placemark. Vertices index into Document.Records.
type Feature struct {
	Kind     GeometryKind
	Name     string
	Vertices []int
}

// Document is the parsed source: a flat list of point records and the
// features that reference them.
type Document struct {
	Records  []PointRecord
	Features []Feature
}

// Coordinates returns the position of every record, in record order.
func (d *Document) Coordinates() []Coordinate {
	coords := make([]Coordinate, len(d.Records))
	for i, r := range d.Records {
		coords[i] = r.Coordinate()
	}
	return coords
}

// Bound returns the bounding box of all records.
func (d *Document) Bound() orb.Bound {
	mp := make(orb.MultiPoint, len(d.Records))
	for i, r := range d.Records {
		mp[i] = orb.Point{r.Lon, r.Lat}
	}
	return mp.Bound()
}

// Drawing is a Document after elevation and projection: Records[i] is the
// resolved form of Document.Records[i], so Features index into it unchanged.
type Drawing struct {
	Records   []XYZRecord
	Features  []Feature
	Projected bool // X/Y are planar meters rather than lat/lon
}

// Points returns the records referenced by f.
func (d *Drawing) Points(f Feature) []XYZRecord {
	out := make([]XYZRecord, len(f.Vertices))
	for i, v := range f.Vertices {
		out[i] = d.Records[v]
	}
	return out
}
