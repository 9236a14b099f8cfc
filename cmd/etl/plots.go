package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
	"github.com/couchcryptid/mpls-liquor-etl/internal/pipeline"
	"github.com/couchcryptid/mpls-liquor-etl/internal/render"
	"gonum.org/v1/plot"
)

// writePlots renders the ward map and the endorsement location map into dir.
func writePlots(res *pipeline.Result, dir, format, endorsement string, metrics *observability.Metrics, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	wardMap, err := render.WardMap(res.Wards)
	if err != nil {
		return err
	}
	wardPath := filepath.Join(dir, "wards."+format)
	if err := writePlot(wardMap, wardPath, format); err != nil {
		return err
	}
	metrics.PlotRenders.WithLabelValues("wards").Inc()

	licenseMap, summary, err := render.LicenseMap(res.Dataset, res.Wards, endorsement)
	if err != nil {
		return err
	}
	if summary.FellBack {
		logger.Warn("endorsement not found, plotting default",
			"requested", summary.Requested, "plotted", summary.Endorsement)
	}
	licensePath := filepath.Join(dir, fileSlug(summary.Endorsement)+"_locations."+format)
	if err := writePlot(licenseMap, licensePath, format); err != nil {
		return err
	}
	metrics.PlotRenders.WithLabelValues("licenses").Inc()

	logger.Info("plots written",
		"wards", wardPath,
		"licenses", licensePath,
		"endorsement", summary.Endorsement,
		"locations", summary.Count,
	)
	return nil
}

func writePlot(p *plot.Plot, path, format string) error {
	data, err := render.Encode(p, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// fileSlug lowercases name and replaces anything but letters and digits with underscores.
func fileSlug(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
}
