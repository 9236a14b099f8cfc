package shapefile

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWard struct {
	bdnum string
	name  string
	parts [][]shp.Point
}

// square returns a closed clockwise ring of side 1 with its lower-left corner at x, y.
func square(x, y float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}, {X: x + 1, Y: y}, {X: x, Y: y}}
}

// hole returns a closed counter-clockwise ring inside the square at x, y.
func hole(x, y float64) []shp.Point {
	return []shp.Point{
		{X: x + 0.25, Y: y + 0.25}, {X: x + 0.75, Y: y + 0.25}, {X: x + 0.75, Y: y + 0.75},
		{X: x + 0.25, Y: y + 0.75}, {X: x + 0.25, Y: y + 0.25},
	}
}

func writeShapefile(t *testing.T, dir string, wards []testWard) string {
	t.Helper()
	path := filepath.Join(dir, "wards.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("BDNUM", 4),
		shp.StringField("BDNAME", 20),
	}))
	for _, ward := range wards {
		poly := shp.Polygon(*shp.NewPolyLine(ward.parts))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, ward.bdnum))
		require.NoError(t, w.WriteAttribute(row, 1, ward.name))
	}
	w.Close()

	// go-shp v0.1.1 writes the attribute table to "wardsdbf" (missing dot).
	require.NoError(t, os.Rename(filepath.Join(dir, "wardsdbf"), filepath.Join(dir, "wards.dbf")))
	return path
}

func zipShapefile(t *testing.T, shpPath string) string {
	t.Helper()
	dir := filepath.Dir(shpPath)
	base := filepath.Base(shpPath[:len(shpPath)-len(filepath.Ext(shpPath))])
	zipPath := filepath.Join(dir, "wards-shp.zip")

	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		f, err := zw.Create(base + ext)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, base+ext))
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return zipPath
}

func testReader(path string) *Reader {
	return NewReader(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleWards() []testWard {
	return []testWard{
		{bdnum: "1", name: "Ward 1", parts: [][]shp.Point{square(0, 0)}},
		{bdnum: "2", name: "Ward 2", parts: [][]shp.Point{square(2, 0), hole(2, 0), square(4, 0)}},
	}
}

func TestReader_ExtractWards_Shp(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), sampleWards())

	features, err := testReader(path).ExtractWards(context.Background())
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "1", features[0].Attributes["BDNUM"])
	assert.Equal(t, "Ward 1", features[0].Attributes["BDNAME"])
	require.Len(t, features[0].Geometry, 1)
	assert.Len(t, features[0].Geometry[0], 1)
	assert.Equal(t, orb.Point{0, 0}, features[0].Geometry[0][0][0])
}

func TestReader_ExtractWards_Zip(t *testing.T) {
	path := zipShapefile(t, writeShapefile(t, t.TempDir(), sampleWards()))

	features, err := testReader(path).ExtractWards(context.Background())
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "2", features[1].Attributes["BDNUM"])
}

func TestReader_ExtractWards_HolesAndParts(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), sampleWards())

	features, err := testReader(path).ExtractWards(context.Background())
	require.NoError(t, err)

	mp := features[1].Geometry
	require.Len(t, mp, 2, "two outer rings make two polygons")
	assert.Len(t, mp[0], 2, "counter-clockwise ring is a hole of the first polygon")
	assert.Len(t, mp[1], 1)
}

func TestReader_ExtractWards_MissingFile(t *testing.T) {
	_, err := testReader(filepath.Join(t.TempDir(), "absent.zip")).ExtractWards(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}

func TestReader_ExtractWards_Canceled(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), sampleWards())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testReader(path).ExtractWards(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestToMultiPolygon_LeadingHoleStartsPolygon(t *testing.T) {
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{hole(0, 0)}))
	mp := toMultiPolygon(&poly)
	require.Len(t, mp, 1)
	assert.Len(t, mp[0], 1)
}
