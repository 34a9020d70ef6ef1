// Package domain models KML-derived survey geometry and its elevation enrichment.
//
// # Coordinate Conventions
//
// KML stores tuples as "lon,lat[,alt]" separated by whitespace:
//
//	<coordinates>-46.57,-21.78,0 -46.58,-21.79,0</coordinates>
//
// Everything in this package uses (lat, lon) order in degrees, WGS-84. When a
// Coordinate is handed to orb it becomes orb.Point{lon, lat}, which is orb's
// x/y order.
//
// # Coordinate Identity
//
// Parsing upstream text produces floating-point noise, so two coordinates are
// considered the same location when their quantized keys match:
//
//	fmt.Sprintf("%.7f,%.7f", lat, lon)  →  "-21.7800000,-46.5700000"
//
// Seven decimal digits is roughly 1.1 cm at the equator. The key is used by the
// elevation cache file and by exact-duplicate suppression in the KML reader.
// See [Coordinate.Key].
//
// # Elevation
//
// An [Elevation] is either a resolved value in meters or absent. Absent means
// the terrain service could not resolve the point (failed batch, null result,
// short response) and is never conflated with a genuine 0 m sample. Exporters
// write absent elevations as 0 unless strict mode rejected the run first.
//
// # Geometry Layout
//
// A [Document] keeps the placemark structure (points, lines, polygons) while
// [Document.Records] flattens every vertex into one ordered list. Elevation is
// resolved over that flat list and mapped back by index, so the order of
// [Document.Records] is the contract between the reader, the elevation
// pipeline and the exporters.
package domain
