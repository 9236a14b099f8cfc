package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
	"github.com/couchcryptid/mpls-liquor-etl/internal/pipeline"
	"github.com/couchcryptid/mpls-liquor-etl/internal/render"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/plot"
)

const (
	plotWards    = "wards"
	plotLicenses = "licenses"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Minneapolis Dashboard</title></head>
<body>
<h1>Minneapolis Dashboard</h1>
<p>Last run completed {{.CompletedAt.Format "2006-01-02 15:04:05 MST"}}.</p>
<table>
<tr><th>Stage</th><th>Rows</th></tr>
<tr><td>Loaded</td><td>{{.Counts.Loaded}}</td></tr>
<tr><td>Cleaned</td><td>{{.Counts.Cleaned}}</td></tr>
<tr><td>Filtered</td><td>{{.Counts.Filtered}}</td></tr>
<tr><td>Wards</td><td>{{.Counts.Wards}}</td></tr>
</table>
<h2>Endorsements</h2>
<ul>
{{range .Endorsements}}<li><a href="{{.URL}}">{{.Name}}</a> ({{.Count}})</li>
{{end}}</ul>
<h2>Wards</h2>
<img src="{{.WardsURL}}" alt="Minneapolis Wards">
<h2>{{.Endorsement}} Locations</h2>
<img src="{{.LicensesURL}}" alt="{{.Endorsement}} Locations">
</body>
</html>
`))

type endorsementLink struct {
	Name  string
	Count int
	URL   string
}

type indexData struct {
	CompletedAt  time.Time
	Counts       pipeline.StageCounts
	Endorsements []endorsementLink
	Endorsement  string
	WardsURL     string
	LicensesURL  string
}

type summaryResponse struct {
	CompletedAt       time.Time            `json:"completed_at"`
	Counts            pipeline.StageCounts `json:"counts"`
	Endorsements      []string             `json:"endorsements"`
	EndorsementCounts map[string]int       `json:"endorsement_counts"`
	Endorsement       string               `json:"endorsement,omitempty"`
	Wards             []domain.WardTally   `json:"wards"`
}

// dashboard serves views of the latest pipeline result.
type dashboard struct {
	results ResultSource
	opts    DashboardOptions
	cache   *plotCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

func newDashboard(results ResultSource, opts DashboardOptions, metrics *observability.Metrics, logger *slog.Logger) *dashboard {
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	if opts.Endorsement == "" {
		opts.Endorsement = domain.DefaultEndorsement
	}
	return &dashboard{
		results: results,
		opts:    opts,
		cache:   newPlotCache(opts.CacheSize),
		metrics: metrics,
		logger:  logger,
	}
}

// latest writes a 503 and returns nil until a run has completed.
func (d *dashboard) latest(w http.ResponseWriter) *pipeline.Result {
	res := d.results.Latest()
	if res == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "pipeline has not completed a run yet",
		})
	}
	return res
}

func (d *dashboard) handleIndex(w http.ResponseWriter, _ *http.Request) {
	res := d.latest(w)
	if res == nil {
		return
	}

	counts := domain.EndorsementCounts(res.Dataset)
	data := indexData{
		CompletedAt: res.CompletedAt,
		Counts:      res.Counts,
		Endorsement: d.opts.Endorsement,
		WardsURL:    "/plots/" + plotWards + "." + d.opts.Format,
		LicensesURL: licensesURL(d.opts.Format, d.opts.Endorsement),
	}
	for _, e := range res.Dataset.Endorsements {
		data.Endorsements = append(data.Endorsements, endorsementLink{
			Name:  e,
			Count: counts[e],
			URL:   licensesURL(d.opts.Format, e),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		d.logger.Error("render index failed", "error", err)
	}
}

func (d *dashboard) handlePlot(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)
	format := strings.TrimPrefix(ext, ".")

	if name != plotWards && name != plotLicenses {
		http.NotFound(w, r)
		return
	}
	if format != render.FormatSVG && format != render.FormatPNG {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unsupported format %q", format)})
		return
	}

	res := d.latest(w)
	if res == nil {
		return
	}

	endorsement := ""
	if name == plotLicenses {
		endorsement = r.URL.Query().Get("endorsement")
		if endorsement == "" {
			endorsement = d.opts.Endorsement
		}
	}

	key := fmt.Sprintf("%d|%s|%s|%s", res.CompletedAt.UnixNano(), name, endorsement, format)
	body, ok := d.cache.get(key)
	if ok {
		d.metrics.PlotCache.WithLabelValues("hit").Inc()
	} else {
		d.metrics.PlotCache.WithLabelValues("miss").Inc()
		var err error
		body, err = d.renderPlot(res, name, endorsement, format)
		if err != nil {
			d.logger.Error("render plot failed", "plot", name, "endorsement", endorsement, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
			return
		}
		d.cache.put(key, body)
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

func (d *dashboard) renderPlot(res *pipeline.Result, name, endorsement, format string) ([]byte, error) {
	var (
		p   *plot.Plot
		err error
	)
	switch name {
	case plotWards:
		p, err = render.WardMap(res.Wards)
	default:
		p, _, err = render.LicenseMap(res.Dataset, res.Wards, endorsement)
	}
	if err != nil {
		return nil, err
	}
	d.metrics.PlotRenders.WithLabelValues(name).Inc()
	return render.Encode(p, format)
}

func (d *dashboard) handleSummary(w http.ResponseWriter, r *http.Request) {
	res := d.latest(w)
	if res == nil {
		return
	}
	endorsement := r.URL.Query().Get("endorsement")
	writeJSON(w, http.StatusOK, summaryResponse{
		CompletedAt:       res.CompletedAt,
		Counts:            res.Counts,
		Endorsements:      res.Dataset.Endorsements,
		EndorsementCounts: domain.EndorsementCounts(res.Dataset),
		Endorsement:       endorsement,
		Wards:             domain.TallyByWard(res.Dataset, res.Wards, endorsement),
	})
}

func (d *dashboard) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	res := d.latest(w)
	if res == nil {
		return
	}

	endorsement := r.URL.Query().Get("endorsement")
	if endorsement != "" && !res.Dataset.HasEndorsement(endorsement) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown endorsement %q", endorsement)})
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, l := range res.Dataset.Licenses {
		if endorsement != "" && !l.Flags[endorsement] {
			continue
		}
		fc.Append(licenseFeature(l, res.Dataset.Endorsements))
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		d.logger.Error("encode geojson failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode failed"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func licenseFeature(l domain.License, endorsements []string) *geojson.Feature {
	f := geojson.NewFeature(l.Point())
	f.ID = l.Key()
	for k, v := range l.Attributes {
		f.Properties[k] = v
	}
	f.Properties["ward"] = l.Ward
	f.Properties["issue_date"] = l.IssueDate.Format(time.RFC3339)
	f.Properties["expiration_date"] = l.ExpirationDate.Format(time.RFC3339)
	f.Properties["last_update_date"] = l.LastUpdateDate.Format(time.RFC3339)
	f.Properties["expiration_year"] = l.ExpirationYear
	f.Properties["issue_month"] = l.IssueMonth
	f.Properties["issue_year"] = l.IssueYear
	f.Properties["duration_days"] = int(l.Duration.Hours() / 24)
	f.Properties["endorsements"] = l.Endorsements

	flags := make([]string, 0, len(endorsements))
	for _, e := range endorsements {
		if l.Flags[e] {
			flags = append(flags, e)
		}
	}
	f.Properties["flags"] = flags
	return f
}

func licensesURL(format, endorsement string) string {
	return "/plots/" + plotLicenses + "." + format + "?endorsement=" + url.QueryEscape(endorsement)
}

func contentType(format string) string {
	if format == render.FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}
