package cachefile

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elev_cache.json")
	coord := domain.Coordinate{Lat: -21.78, Lon: -46.57}

	c := Load(path, discardLogger())
	c.Put(coord, 123.4)
	require.NoError(t, c.Save(path))

	fresh := Load(path, discardLogger())
	v, ok := fresh.Lookup(coord)
	require.True(t, ok)
	assert.Equal(t, 123.4, v)
}

func TestCache_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elev_cache.json")

	c := New()
	c.Put(domain.Coordinate{Lat: -21.78, Lon: -46.57}, 812.5)
	require.NoError(t, c.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]float64
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]float64{"-21.7800000,-46.5700000": 812.5}, raw)
}

func TestCache_QuantizedLookup(t *testing.T) {
	c := New()
	c.Put(domain.Coordinate{Lat: -21.78, Lon: -46.57}, 10)

	v, ok := c.Lookup(domain.Coordinate{Lat: -21.7800000001, Lon: -46.5699999999})
	require.True(t, ok, "float noise below 7 digits must hit")
	assert.Equal(t, 10.0, v)

	_, ok = c.Lookup(domain.Coordinate{Lat: -21.7800001, Lon: -46.57})
	assert.False(t, ok, "no fuzzy matching beyond the quantized key")
}

func TestCache_PutOverwrites(t *testing.T) {
	c := New()
	coord := domain.Coordinate{Lat: 1, Lon: 2}
	c.Put(coord, 1)
	c.Put(coord, 2)

	v, _ := c.Lookup(coord)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 1, c.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "nope.json"), discardLogger())
	assert.Zero(t, c.Len())
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elev_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := Load(path, discardLogger())
	assert.Zero(t, c.Len())
}

func TestLoad_WrongShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elev_cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1.0000000,2.0000000": "high"}`), 0o600))

	c := Load(path, discardLogger())
	assert.Zero(t, c.Len())
}

func TestSave_UnwritableDirectory(t *testing.T) {
	c := New()
	c.Put(domain.Coordinate{Lat: 1, Lon: 2}, 3)

	err := c.Save(filepath.Join(t.TempDir(), "missing", "dir", "cache.json"))
	assert.Error(t, err)
}

func TestSave_KeepsPreviousFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elev_cache.json")

	c := New()
	c.Put(domain.Coordinate{Lat: 1, Lon: 2}, 3)
	require.NoError(t, c.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}
