package export

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// flatThreshold is the |z| below which an elevation counts as zero.
const flatThreshold = 1e-3

// layerColors are ACI color indices; unknown layers use 7 (white/black).
var layerColors = map[string]int{
	domain.LayerNumeric:      1,
	domain.LayerAlphanumeric: 2,
	domain.LayerAlpha:        3,
	domain.LayerOther:        6,
	domain.LayerUnnamed:      8,
	domain.LayerLine:         5,
	domain.LayerPolygon:      4,
}

// DXF writes an AutoCAD R12 ASCII drawing. Standalone points become POINT
// entities on a layer named after their name category; lines and polygon
// rings become 3D POLYLINEs; points sharing a name are additionally joined by
// an open polyline on their category layer.
type DXF struct {
	logger *slog.Logger
}

// NewDXF returns a DXF exporter.
func NewDXF(logger *slog.Logger) *DXF {
	return &DXF{logger: logger}
}

// Format implements Exporter.
func (*DXF) Format() string { return config.FormatDXF }

type dxfEntity struct {
	layer    string
	points   []domain.XYZRecord
	polyline bool
	closed   bool
}

// Export implements Exporter.
func (x *DXF) Export(w io.Writer, d *domain.Drawing) error {
	entities := dxfEntities(d)
	layers := entityLayers(entities)

	dw := &dxfWriter{w: w}
	dw.header(d.Records)
	dw.tables(layers)
	dw.section("ENTITIES")
	for _, e := range entities {
		if e.polyline {
			dw.polyline(e)
			continue
		}
		for _, p := range e.points {
			dw.point(e.layer, p)
		}
	}
	dw.pair(0, "ENDSEC")
	dw.pair(0, "EOF")
	if dw.err != nil {
		return dw.err
	}

	if len(d.Records) > 0 && Flat(d.Records) {
		x.logger.Warn("all elevations are zero or near zero, check the elevation service and dataset",
			"points", len(d.Records))
	}
	return nil
}

// Flat reports whether every record's |z| is below 1e-3.
func Flat(records []domain.XYZRecord) bool {
	for _, r := range records {
		if math.Abs(r.Z) >= flatThreshold {
			return false
		}
	}
	return true
}

func dxfEntities(d *domain.Drawing) []dxfEntity {
	var (
		entities []dxfEntity
		names    []string
		byName   = make(map[string][]domain.XYZRecord)
	)

	for _, f := range d.Features {
		pts := d.Points(f)
		switch f.Kind {
		case domain.KindPoint:
			entities = append(entities, dxfEntity{layer: domain.CategorizeName(f.Name), points: pts})
			if f.Name == "" {
				continue
			}
			if _, ok := byName[f.Name]; !ok {
				names = append(names, f.Name)
			}
			byName[f.Name] = append(byName[f.Name], pts...)
		case domain.KindLine:
			entities = append(entities, dxfEntity{layer: domain.LayerLine, points: pts, polyline: len(pts) > 1})
		case domain.KindPolygon:
			entities = append(entities, dxfEntity{layer: domain.LayerPolygon, points: pts, polyline: len(pts) > 1, closed: len(pts) > 2})
		}
	}

	for _, name := range names {
		if pts := byName[name]; len(pts) > 1 {
			entities = append(entities, dxfEntity{layer: domain.CategorizeName(name), points: pts, polyline: true})
		}
	}
	return entities
}

func entityLayers(entities []dxfEntity) []string {
	seen := map[string]bool{"0": true}
	layers := []string{"0"}
	for _, e := range entities {
		if !seen[e.layer] {
			seen[e.layer] = true
			layers = append(layers, e.layer)
		}
	}
	return layers
}

// dxfWriter emits group code/value pairs and keeps the first write error.
type dxfWriter struct {
	w   io.Writer
	err error
}

func (dw *dxfWriter) pair(code int, value string) {
	if dw.err != nil {
		return
	}
	_, dw.err = fmt.Fprintf(dw.w, "%3d\n%s\n", code, value)
}

func (dw *dxfWriter) float(code int, v float64) {
	dw.pair(code, strconv.FormatFloat(v, 'f', -1, 64))
}

func (dw *dxfWriter) integer(code, v int) {
	dw.pair(code, strconv.Itoa(v))
}

func (dw *dxfWriter) section(name string) {
	dw.pair(0, "SECTION")
	dw.pair(2, name)
}

func (dw *dxfWriter) xyz(x, y, z float64) {
	dw.float(10, x)
	dw.float(20, y)
	dw.float(30, z)
}

func (dw *dxfWriter) header(records []domain.XYZRecord) {
	dw.section("HEADER")
	dw.pair(9, "$ACADVER")
	dw.pair(1, "AC1009")
	if len(records) > 0 {
		minP, maxP := extents(records)
		dw.pair(9, "$EXTMIN")
		dw.xyz(minP[0], minP[1], minP[2])
		dw.pair(9, "$EXTMAX")
		dw.xyz(maxP[0], maxP[1], maxP[2])
	}
	dw.pair(0, "ENDSEC")
}

func (dw *dxfWriter) tables(layers []string) {
	dw.section("TABLES")

	dw.pair(0, "TABLE")
	dw.pair(2, "LTYPE")
	dw.integer(70, 1)
	dw.pair(0, "LTYPE")
	dw.pair(2, "CONTINUOUS")
	dw.integer(70, 0)
	dw.pair(3, "Solid line")
	dw.integer(72, 65)
	dw.integer(73, 0)
	dw.float(40, 0)
	dw.pair(0, "ENDTAB")

	dw.pair(0, "TABLE")
	dw.pair(2, "LAYER")
	dw.integer(70, len(layers))
	for _, name := range layers {
		color, ok := layerColors[name]
		if !ok {
			color = 7
		}
		dw.pair(0, "LAYER")
		dw.pair(2, name)
		dw.integer(70, 0)
		dw.integer(62, color)
		dw.pair(6, "CONTINUOUS")
	}
	dw.pair(0, "ENDTAB")

	dw.pair(0, "ENDSEC")
}

func (dw *dxfWriter) point(layer string, p domain.XYZRecord) {
	dw.pair(0, "POINT")
	dw.pair(8, layer)
	dw.xyz(p.X, p.Y, p.Z)
}

// polyline writes a 3D POLYLINE (flag 8, plus 1 when closed) and its vertices.
func (dw *dxfWriter) polyline(e dxfEntity) {
	flags := 8
	if e.closed {
		flags |= 1
	}
	dw.pair(0, "POLYLINE")
	dw.pair(8, e.layer)
	dw.integer(66, 1)
	dw.xyz(0, 0, 0)
	dw.integer(70, flags)
	for _, p := range e.points {
		dw.pair(0, "VERTEX")
		dw.pair(8, e.layer)
		dw.xyz(p.X, p.Y, p.Z)
		dw.integer(70, 32)
	}
	dw.pair(0, "SEQEND")
	dw.pair(8, e.layer)
}

func extents(records []domain.XYZRecord) (minP, maxP [3]float64) {
	minP = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxP = [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, r := range records {
		for i, v := range [3]float64{r.X, r.Y, r.Z} {
			minP[i] = math.Min(minP[i], v)
			maxP[i] = math.Max(maxP[i], v)
		}
	}
	return minP, maxP
}
