// Command validate runs the cleaning, filtering and feature stages offline
// against a saved license feed (and optionally the ward shapefile) and checks
// the properties every run must hold: coordinate parity, filter bounds, filter
// idempotence, the duration identity, endorsement columns and ward keys.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed data/mock/liquor_licenses_sample.geojson \
//	  -shapefile data/City_Council_Wards-shp.zip
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"golang.org/x/term"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to a saved GeoJSON license feed")
	shpPath := flag.String("shapefile", "", "optional path to the ward shapefile (.zip or .shp)")
	flag.Parse()

	if *feedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*feedPath, *shpPath); code != 0 {
		os.Exit(code)
	}
}

func run(feedPath, shpPath string) int {
	// Fixed clock matching genmock.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Liquor License Pipeline Validation ===")
	fmt.Println()

	table, err := loadFeed(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		return 1
	}
	cleaned, err := domain.Clean(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: clean: %v\n", err)
		return 1
	}
	filtered := domain.Filter(cleaned)
	ds := domain.DeriveFeatures(filtered)

	phases := []*phase{
		validateCoordinates(table, cleaned),
		validateFilterBounds(filtered),
		validateFilterIdempotence(filtered),
		validateDerivedFields(ds),
		validateEndorsements(ds),
	}
	if shpPath != "" {
		phases = append(phases, validateWards(shpPath))
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := paint(color, "32", "PASS")
		if !p.passed() {
			status = paint(color, "31", fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d loaded, %d cleaned, %d filtered, %d endorsement columns\n",
		len(table.Rows), len(cleaned), len(filtered), len(ds.Endorsements))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func loadFeed(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()
	return domain.FlattenFeatureCollection(f)
}

// ── Phase 1: Coordinate parity ──
// Every cleaned record's X and Y must equal a coordinate pair of the feed.

func validateCoordinates(table domain.Table, cleaned []domain.License) *phase {
	p := &phase{name: "Phase 1: Coordinate Parity (clean)"}

	if len(cleaned) > len(table.Rows) {
		p.errorf("clean produced %d records from %d rows", len(cleaned), len(table.Rows))
	}

	pairs := make(map[orb.Point]int)
	for _, row := range table.Rows {
		if pt, ok := feedPoint(row["coordinates"]); ok {
			pairs[pt]++
		}
	}
	for i, l := range cleaned {
		if pairs[l.Point()] == 0 {
			p.errorf("record %d (%s): point %v not found in feed", i, l.Attributes["licenseNumber"], l.Point())
		}
	}
	return p
}

// feedPoint reads a raw [x, y] coordinate value without going through Clean.
func feedPoint(v any) (orb.Point, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return orb.Point{}, false
	}
	var pt orb.Point
	for i := range 2 {
		n, ok := pair[i].(json.Number)
		if !ok {
			return orb.Point{}, false
		}
		f, err := n.Float64()
		if err != nil {
			return orb.Point{}, false
		}
		pt[i] = f
	}
	return pt, true
}

// ── Phase 2: Filter bounds ──

func validateFilterBounds(filtered []domain.License) *phase {
	p := &phase{name: "Phase 2: Filter Bounds"}
	for i, l := range filtered {
		if l.IssueDate.Year() < domain.MinIssueYear {
			p.errorf("record %d: issue year %d < %d", i, l.IssueDate.Year(), domain.MinIssueYear)
		}
		if l.ExpirationDate.Year() < domain.MinExpirationYear {
			p.errorf("record %d: expiration year %d < %d", i, l.ExpirationDate.Year(), domain.MinExpirationYear)
		}
		if l.Ward < domain.MinWard || l.Ward > domain.MaxWard {
			p.errorf("record %d: ward %d outside [%d, %d]", i, l.Ward, domain.MinWard, domain.MaxWard)
		}
	}
	return p
}

// ── Phase 3: Filter idempotence ──

func validateFilterIdempotence(filtered []domain.License) *phase {
	p := &phase{name: "Phase 3: Filter Idempotence"}
	again := domain.Filter(filtered)
	if diff := cmp.Diff(filtered, again, cmpopts.EquateEmpty()); diff != "" {
		p.errorf("second filter pass changed the records (-first +second):\n%s", diff)
	}
	return p
}

// ── Phase 4: Derived fields ──

func validateDerivedFields(ds domain.Dataset) *phase {
	p := &phase{name: "Phase 4: Duration Identity (derive)"}
	for i, l := range ds.Licenses {
		if want := l.ExpirationDate.Sub(l.IssueDate); l.Duration != want {
			p.errorf("record %d: duration %s, expected %s", i, l.Duration, want)
		}
		if l.IssueMonth != int(l.IssueDate.Month()) || l.IssueYear != l.IssueDate.Year() {
			p.errorf("record %d: issue month/year %d/%d do not match %s",
				i, l.IssueMonth, l.IssueYear, l.IssueDate.Format(time.DateOnly))
		}
	}
	return p
}

// ── Phase 5: Endorsement columns ──

func validateEndorsements(ds domain.Dataset) *phase {
	p := &phase{name: "Phase 5: Endorsement Columns"}

	seen := make(map[string]bool, len(ds.Endorsements))
	for _, e := range ds.Endorsements {
		if e == "" || strings.TrimSpace(e) != e {
			p.errorf("column %q is empty or untrimmed", e)
		}
		if seen[e] {
			p.errorf("column %q appears twice", e)
		}
		seen[e] = true
	}

	for i, l := range ds.Licenses {
		if len(l.Flags) != len(ds.Endorsements) {
			p.errorf("record %d: %d flags for %d columns", i, len(l.Flags), len(ds.Endorsements))
		}
		for _, token := range domain.EndorsementTokens([]domain.License{l}) {
			if !l.Flags[token] {
				p.errorf("record %d: token %q not flagged", i, token)
			}
		}
	}
	return p
}

// ── Phase 6: Ward keys ──

func validateWards(path string) *phase {
	p := &phase{name: "Phase 6: Ward Keys (shapefile)"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	features, err := shapefile.NewReader(path, logger).ExtractWards(context.Background())
	if err != nil {
		p.errorf("read shapefile: %v", err)
		return p
	}
	wards, err := domain.PrepareWards(features)
	if err != nil {
		p.errorf("prepare wards: %v", err)
		return p
	}

	seen := make(map[int]bool, len(wards))
	for _, w := range wards {
		if w.Ward < domain.MinWard || w.Ward > domain.MaxWard {
			p.errorf("ward %d outside [%d, %d]", w.Ward, domain.MinWard, domain.MaxWard)
		}
		if seen[w.Ward] {
			p.errorf("ward %d appears twice", w.Ward)
		}
		seen[w.Ward] = true
		if _, ok := w.Attributes["ward"]; !ok {
			p.errorf("ward %d: key attribute not renamed", w.Ward)
		}
		if !w.Geometry.Bound().Contains(w.Centroid) {
			p.errorf("ward %d: centroid %v outside its bounds", w.Ward, w.Centroid)
		}
	}
	return p
}
