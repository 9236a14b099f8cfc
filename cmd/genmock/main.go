// Command genmock captures a slice of the liquor license feed as a test
// fixture and writes the output the pipeline derives from it. It runs the real
// domain stages so the expected file matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -feed 'https://services.arcgis.com/.../query?outFields=*&where=1%3D1&f=geojson' \
//	  -out data/mock/liquor_licenses_sample.geojson \
//	  -expected data/mock/liquor_licenses_expected.json \
//	  -limit 50
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// expectedOutput is the derived fixture consumed by tests.
type expectedOutput struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Loaded       int              `json:"loaded"`
	Cleaned      int              `json:"cleaned"`
	Filtered     int              `json:"filtered"`
	Endorsements []string         `json:"endorsements"`
	Licenses     []domain.License `json:"licenses"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feed := flag.String("feed", "", "feed query URL or path to a saved GeoJSON file")
	out := flag.String("out", "", "output path for the trimmed GeoJSON fixture")
	expected := flag.String("expected", "", "output path for the derived licenses JSON")
	limit := flag.Int("limit", 0, "keep only the first N features (0 keeps all)")
	timeout := flag.Duration("timeout", 30*time.Second, "feed request timeout")
	flag.Parse()

	if *feed == "" || *out == "" || *expected == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -feed, -out, -expected")
	}

	// Fixed clock matching validate.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	raw, err := readFeed(*feed, *timeout)
	if err != nil {
		return fmt.Errorf("reading feed: %w", err)
	}

	trimmed, total, err := trimFeatures(raw, *limit)
	if err != nil {
		return fmt.Errorf("trimming feed: %w", err)
	}
	log.Printf("features: %d of %d kept", countKept(total, *limit), total)

	if err := writeFile(*out, trimmed); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	result, err := derive(trimmed)
	if err != nil {
		return err
	}
	if err := writeJSON(*expected, result); err != nil {
		return fmt.Errorf("writing expected output: %w", err)
	}
	log.Printf("wrote expected output: %s", *expected)

	printStats(result)
	return nil
}

func readFeed(source string, timeout time.Duration) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		client := arcgis.NewClient(source, timeout, observability.NewMetricsForTesting(), logger)
		return client.Download(context.Background())
	}
	return os.ReadFile(source)
}

// trimFeatures keeps the first limit features of the collection and leaves
// every other member untouched. It returns the re-encoded collection and the
// feature count before trimming.
func trimFeatures(raw []byte, limit int) ([]byte, int, error) {
	var fc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, 0, err
	}
	var features []json.RawMessage
	if err := json.Unmarshal(fc["features"], &features); err != nil {
		return nil, 0, fmt.Errorf("features: %w", err)
	}
	total := len(features)
	if limit > 0 && limit < total {
		features = features[:limit]
	}

	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, 0, err
	}
	fc["features"] = encoded

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, 0, err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return nil, 0, err
	}
	indented.WriteByte('\n')
	return indented.Bytes(), total, nil
}

func countKept(total, limit int) int {
	if limit > 0 && limit < total {
		return limit
	}
	return total
}

func derive(collection []byte) (expectedOutput, error) {
	table, err := domain.FlattenFeatureCollection(bytes.NewReader(collection))
	if err != nil {
		return expectedOutput{}, fmt.Errorf("flatten: %w", err)
	}
	cleaned, err := domain.Clean(table)
	if err != nil {
		return expectedOutput{}, fmt.Errorf("clean: %w", err)
	}
	filtered := domain.Filter(cleaned)
	ds := domain.DeriveFeatures(filtered)

	return expectedOutput{
		GeneratedAt:  domain.Now(),
		Loaded:       len(table.Rows),
		Cleaned:      len(cleaned),
		Filtered:     len(filtered),
		Endorsements: ds.Endorsements,
		Licenses:     ds.Licenses,
	}, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeFile(path, data)
}

type wardCount struct {
	ward  int
	count int
}

func printStats(out expectedOutput) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Loaded: %d, Cleaned: %d, Filtered: %d\n", out.Loaded, out.Cleaned, out.Filtered)
	fmt.Printf("Endorsements (%d): %s\n", len(out.Endorsements), strings.Join(out.Endorsements, ", "))

	counts := domain.EndorsementCounts(domain.Dataset{Licenses: out.Licenses, Endorsements: out.Endorsements})
	for _, e := range out.Endorsements {
		fmt.Printf("  %s=%d\n", e, counts[e])
	}

	byWard := map[int]int{}
	for _, l := range out.Licenses {
		byWard[l.Ward]++
	}
	wc := make([]wardCount, 0, len(byWard))
	for w, c := range byWard {
		wc = append(wc, wardCount{w, c})
	}
	sort.Slice(wc, func(i, j int) bool { return wc[i].ward < wc[j].ward })
	fmt.Printf("Wards (%d):", len(wc))
	for _, w := range wc {
		fmt.Printf(" %d=%d", w.ward, w.count)
	}
	fmt.Println()

	if len(out.Licenses) > 0 {
		l := out.Licenses[0]
		fmt.Printf("\nFirst license:\n")
		fmt.Printf("  Key: %s\n", l.Key())
		fmt.Printf("  Number: %s\n", l.Attributes["licenseNumber"])
		fmt.Printf("  X: %g, Y: %g, Ward: %d\n", l.X, l.Y, l.Ward)
		fmt.Printf("  Issued: %s, Expires: %s\n",
			l.IssueDate.Format(time.DateOnly), l.ExpirationDate.Format(time.DateOnly))
		fmt.Printf("  Duration: %d days\n", int(l.Duration.Hours()/24))
	}
}
