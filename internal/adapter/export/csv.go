package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
)

var csvHeader = []string{"id", "name", "x", "y", "z", "lat", "lon", "wkt"}

// CSV writes one row per record with its source position as a WKT point.
type CSV struct{}

// Format implements Exporter.
func (CSV) Format() string { return config.FormatCSV }

// Export implements Exporter.
func (CSV) Export(w io.Writer, d *domain.Drawing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for _, r := range d.Records {
		row[0] = r.ID
		row[1] = r.Name
		row[2] = formatFloat(r.X)
		row[3] = formatFloat(r.Y)
		row[4] = formatFloat(r.Z)
		row[5], row[6], row[7] = "", "", ""
		if r.Original != nil {
			row[5] = formatFloat(r.Original.Lat)
			row[6] = formatFloat(r.Original.Lon)
			row[7] = wkt.MarshalString(r.Original.Coordinate().Point())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
