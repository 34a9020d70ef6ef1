package domain

import (
	"strings"
	"unicode"
)

// Layer names used when grouping points by their placemark name.
const (
	LayerUnnamed      = "UNNAMED"
	LayerNumeric      = "NUMERIC"
	LayerAlphanumeric = "ALPHANUMERIC"
	LayerAlpha        = "ALPHA"
	LayerOther        = "OTHER"
)

// Layer names for line and polygon geometry.
const (
	LayerLine    = "LINE"
	LayerPolygon = "POLYGON"
)

// ToXYZ combines a record with its resolved planar position and elevation.
func ToXYZ(record *PointRecord, x, y float64, elevation Elevation) XYZRecord {
	return XYZRecord{
		ID:       record.ID,
		Name:     record.Name,
		X:        x,
		Y:        y,
		Z:        elevation.OrZero(),
		Original: record,
	}
}

// CategorizeName buckets a placemark name into a drawing layer:
// digits only, letters and digits, letters only, anything else, or no name.
func CategorizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return LayerUnnamed
	}

	var letters, digits, others int
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return LayerOther
	case letters == 0:
		return LayerNumeric
	case digits == 0:
		return LayerAlpha
	default:
		return LayerAlphanumeric
	}
}
