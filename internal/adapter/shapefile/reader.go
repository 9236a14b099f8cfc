package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// Reader loads ward boundaries from an ESRI shapefile, either a bare .shp
// (with its .dbf alongside) or a zip archive holding exactly one shapefile.
// It implements pipeline.WardExtractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a ward boundary reader for path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// shapeSource is the subset of shp.Reader and shp.ZipReader used here.
type shapeSource interface {
	Next() bool
	Shape() (int, shp.Shape)
	Attribute(n int) string
	Fields() []shp.Field
	Err() error
	Close() error
}

// ExtractWards reads every polygon record with its attribute row. Attribute
// values are trimmed of space and NUL padding. Coordinates are returned in the
// shapefile's own reference system.
func (r *Reader) ExtractWards(ctx context.Context) ([]domain.WardFeature, error) {
	src, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", r.path, err)
	}
	defer src.Close()

	fields := src.Fields()
	var features []domain.WardFeature
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx, shape := src.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, fmt.Errorf("shapefile %s record %d: unsupported shape %T", r.path, idx, shape)
		}

		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			attrs[f.String()] = strings.Trim(src.Attribute(i), " \x00")
		}

		features = append(features, domain.WardFeature{
			Attributes: attrs,
			Geometry:   toMultiPolygon(poly),
		})
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", r.path, err)
	}

	r.logger.Info("ward boundaries loaded", "path", r.path, "features", len(features))
	return features, nil
}

func (r *Reader) open() (shapeSource, error) {
	if strings.EqualFold(filepath.Ext(r.path), ".zip") {
		return shp.OpenZip(r.path)
	}
	return shp.Open(r.path)
}

// toMultiPolygon splits a shapefile polygon into rings. Clockwise rings are
// outer boundaries and start a new polygon; counter-clockwise rings are holes
// of the polygon before them.
func toMultiPolygon(p *shp.Polygon) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if start >= end || end > len(p.Points) {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}

		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
