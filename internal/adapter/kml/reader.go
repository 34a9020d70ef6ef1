// Package kml reads placemark geometries from KML documents into a
// domain.Document.
package kml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// Property keys copied from placemarks.
const PropDescription = "description"

// XML shapes. Tags carry no namespace so both KML 2.2 and un-namespaced
// documents match.

type placemarkXML struct {
	Name         string    `xml:"name"`
	Description  string    `xml:"description"`
	ExtendedData []dataXML `xml:"ExtendedData>Data"`
	geometryXML
}

type geometryXML struct {
	Points   []pointXML    `xml:"Point"`
	Lines    []lineXML     `xml:"LineString"`
	Polygons []polygonXML  `xml:"Polygon"`
	Multi    []geometryXML `xml:"MultiGeometry"`
}

type dataXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type pointXML struct {
	Coordinates string `xml:"coordinates"`
}

type lineXML struct {
	Coordinates string `xml:"coordinates"`
}

type polygonXML struct {
	Outer []ringXML `xml:"outerBoundaryIs>LinearRing"`
	Inner []ringXML `xml:"innerBoundaryIs>LinearRing"`
}

type ringXML struct {
	Coordinates string `xml:"coordinates"`
}

// ReadFile parses the KML file at path.
func ReadFile(path string, logger *slog.Logger) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kml: %w", err)
	}
	defer f.Close()

	return Read(f, logger)
}

// Read parses every Placemark in r, wherever it is nested. Points become one
// record each (exact duplicates of an earlier standalone point are skipped);
// lines and polygon rings become one record per vertex plus a Feature listing
// them. Unparsable or out-of-range coordinate tuples are skipped.
// ErrNoCoordinates is returned when nothing usable remains.
func Read(r io.Reader, logger *slog.Logger) (*domain.Document, error) {
	b := newBuilder(logger)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse kml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}
		var pm placemarkXML
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, fmt.Errorf("parse kml placemark: %w", err)
		}
		b.addPlacemark(&pm)
	}

	if len(b.doc.Records) == 0 {
		return nil, domain.ErrNoCoordinates
	}
	logger.Info("kml parsed",
		"records", len(b.doc.Records),
		"features", len(b.doc.Features),
		"skipped_tuples", b.skipped,
		"duplicate_points", b.duplicates,
	)
	return b.doc, nil
}

type builder struct {
	doc        *domain.Document
	ids        map[string]int
	seenPoints map[orb.Point]struct{}
	skipped    int
	duplicates int
	logger     *slog.Logger
}

func newBuilder(logger *slog.Logger) *builder {
	return &builder{
		doc:        &domain.Document{},
		ids:        make(map[string]int),
		seenPoints: make(map[orb.Point]struct{}),
		logger:     logger,
	}
}

func (b *builder) addPlacemark(pm *placemarkXML) {
	name := strings.TrimSpace(pm.Name)
	props := placemarkProperties(pm)
	b.addGeometry(name, props, &pm.geometryXML)
}

func (b *builder) addGeometry(name string, props map[string]string, g *geometryXML) {
	for _, p := range g.Points {
		b.addPoint(name, props, p.Coordinates)
	}
	for _, l := range g.Lines {
		b.addPath(domain.KindLine, name, "Line", props, b.parseCoordinates(l.Coordinates))
	}
	for _, poly := range g.Polygons {
		for _, ring := range append(append([]ringXML(nil), poly.Outer...), poly.Inner...) {
			b.addPath(domain.KindPolygon, name, "Polygon", props, openRing(b.parseCoordinates(ring.Coordinates)))
		}
	}
	for i := range g.Multi {
		b.addGeometry(name, props, &g.Multi[i])
	}
}

func (b *builder) addPoint(name string, props map[string]string, raw string) {
	pts := b.parseCoordinates(raw)
	if len(pts) == 0 {
		return
	}
	p := pts[0]
	if _, dup := b.seenPoints[p]; dup {
		b.duplicates++
		b.logger.Debug("duplicate point skipped", "name", name, "lat", p.Lat(), "lon", p.Lon())
		return
	}
	b.seenPoints[p] = struct{}{}

	id := name
	if id == "" {
		id = "pt" + strconv.Itoa(len(b.doc.Records)+1)
	}
	idx := b.addRecord(id, name, props, p)
	b.doc.Features = append(b.doc.Features, domain.Feature{
		Kind:     domain.KindPoint,
		Name:     name,
		Vertices: []int{idx},
	})
}

func (b *builder) addPath(kind domain.GeometryKind, name, fallback string, props map[string]string, pts orb.LineString) {
	if len(pts) == 0 {
		return
	}
	prefix := name
	if prefix == "" {
		prefix = fallback
	}

	f := domain.Feature{Kind: kind, Name: name, Vertices: make([]int, 0, len(pts))}
	for i, p := range pts {
		id := prefix + "_" + strconv.Itoa(i+1)
		f.Vertices = append(f.Vertices, b.addRecord(id, name, props, p))
	}
	b.doc.Features = append(b.doc.Features, f)
}

func (b *builder) addRecord(id, name string, props map[string]string, p orb.Point) int {
	b.doc.Records = append(b.doc.Records, domain.PointRecord{
		ID:         b.uniqueID(id),
		Name:       name,
		Lat:        p.Lat(),
		Lon:        p.Lon(),
		Properties: props,
	})
	return len(b.doc.Records) - 1
}

// uniqueID suffixes repeated ids with -2, -3, ...
func (b *builder) uniqueID(id string) string {
	n := b.ids[id]
	b.ids[id] = n + 1
	if n == 0 {
		return id
	}
	candidate := id + "-" + strconv.Itoa(n+1)
	if _, taken := b.ids[candidate]; taken {
		return b.uniqueID(candidate)
	}
	b.ids[candidate] = 1
	return candidate
}

// parseCoordinates reads whitespace-separated "lon,lat[,alt]" tuples.
func (b *builder) parseCoordinates(raw string) orb.LineString {
	fields := strings.Fields(raw)
	ls := make(orb.LineString, 0, len(fields))
	for _, tuple := range fields {
		p, ok := parseTuple(tuple)
		if !ok {
			b.skipped++
			b.logger.Debug("coordinate tuple skipped", "tuple", tuple)
			continue
		}
		ls = append(ls, p)
	}
	return ls
}

func parseTuple(tuple string) (orb.Point, bool) {
	parts := strings.Split(tuple, ",")
	if len(parts) < 2 {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, false
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return orb.Point{}, false
	}
	return c.Point(), true
}

// openRing drops the closing vertex KML repeats at the end of a LinearRing.
func openRing(ls orb.LineString) orb.LineString {
	if len(ls) > 1 && ls[0].Equal(ls[len(ls)-1]) {
		return ls[:len(ls)-1]
	}
	return ls
}

func placemarkProperties(pm *placemarkXML) map[string]string {
	desc := strings.TrimSpace(pm.Description)
	if desc == "" && len(pm.ExtendedData) == 0 {
		return nil
	}
	props := make(map[string]string, len(pm.ExtendedData)+1)
	if desc != "" {
		props[PropDescription] = desc
	}
	for _, d := range pm.ExtendedData {
		if d.Name != "" {
			props[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	return props
}

// Source loads KML files for the conversion pipeline.
type Source struct {
	logger *slog.Logger
}

// NewSource creates a KML source.
func NewSource(logger *slog.Logger) *Source {
	return &Source{logger: logger}
}

// Load implements pipeline.Source.
func (s *Source) Load(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(path, s.logger)
}
