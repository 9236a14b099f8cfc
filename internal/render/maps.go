// Package render draws the ward base map and endorsement location maps.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Figure size used for every rendered map.
const (
	Width  = 18 * vg.Inch
	Height = 9 * vg.Inch
)

// Supported output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// WardMapTitle is the title of the ward base map.
const WardMapTitle = "Minneapolis Wards"

var locationColor = color.RGBA{R: 128, A: 255}

// LicenseMapSummary describes what a license map shows.
type LicenseMapSummary struct {
	Requested   string `json:"requested"`
	Endorsement string `json:"endorsement"`
	FellBack    bool   `json:"fell_back"`
	Count       int    `json:"count"`
}

// WardMap draws every ward as a filled polygon with white edges and its
// number printed at the centroid.
func WardMap(wards []domain.WardPolygon) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = WardMapTitle
	p.HideAxes()

	if err := addWards(p, wards); err != nil {
		return nil, err
	}
	return p, nil
}

// LicenseMap draws the ward base layer with the locations of every license
// carrying endorsement. An endorsement that is not a flag column of the
// dataset falls back to domain.DefaultEndorsement.
func LicenseMap(ds domain.Dataset, wards []domain.WardPolygon, endorsement string) (*plot.Plot, LicenseMapSummary, error) {
	summary := LicenseMapSummary{Requested: endorsement, Endorsement: endorsement}
	if !ds.HasEndorsement(endorsement) {
		summary.Endorsement = domain.DefaultEndorsement
		summary.FellBack = true
	}

	pts := make(plotter.XYs, 0, len(ds.Licenses))
	for _, l := range ds.Licenses {
		if l.Flags[summary.Endorsement] {
			pts = append(pts, plotter.XY{X: l.X, Y: l.Y})
		}
	}
	summary.Count = len(pts)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Locations (%d) in Minneapolis", summary.Endorsement, summary.Count)
	p.HideAxes()

	if err := addWards(p, wards); err != nil {
		return nil, summary, err
	}
	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, summary, fmt.Errorf("license scatter: %w", err)
		}
		s.GlyphStyle.Color = locationColor
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
	}
	return p, summary, nil
}

// Encode renders p in the given format.
func Encode(p *plot.Plot, format string) ([]byte, error) {
	if format != FormatSVG && format != FormatPNG {
		return nil, fmt.Errorf("unsupported plot format %q", format)
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func addWards(p *plot.Plot, wards []domain.WardPolygon) error {
	if len(wards) == 0 {
		return nil
	}

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, len(wards)),
		Labels: make([]string, 0, len(wards)),
	}
	for i, w := range wards {
		for _, poly := range w.Geometry {
			rings := make([]plotter.XYer, 0, len(poly))
			for _, ring := range poly {
				rings = append(rings, ringXYs(ring))
			}
			pg, err := plotter.NewPolygon(rings...)
			if err != nil {
				return fmt.Errorf("ward %d polygon: %w", w.Ward, err)
			}
			pg.Color = plotutil.Color(i)
			pg.LineStyle.Color = color.White
			pg.LineStyle.Width = vg.Points(1)
			p.Add(pg)
		}
		labels.XYs = append(labels.XYs, plotter.XY{X: w.Centroid[0], Y: w.Centroid[1]})
		labels.Labels = append(labels.Labels, strconv.Itoa(w.Ward))
	}

	l, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("ward labels: %w", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].Color = color.White
		l.TextStyle[i].XAlign = text.XCenter
		l.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(l)
	return nil
}

func ringXYs(r orb.Ring) plotter.XYs {
	xys := make(plotter.XYs, len(r))
	for i, pt := range r {
		xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	return xys
}
