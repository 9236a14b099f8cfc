package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Row is one flattened feed record keyed by column name. A column is missing
// when its key is absent or holds nil. JSON numbers are kept as json.Number.
type Row map[string]any

// Missing reports whether the row has no value for col.
func (r Row) Missing(col string) bool {
	v, ok := r[col]
	return !ok || v == nil
}

// Table is the flat, column-ordered form of a feature collection.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether any row of the table carried col.
func (t Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// ErrNoFeatures is returned when a document has no "features" member.
var ErrNoFeatures = errors.New("feature collection has no features member")

type featureCollection struct {
	Features *[]map[string]any `json:"features"`
}

// FlattenFeatureCollection decodes a GeoJSON-like feature collection and turns
// every feature into one Row. Nested objects are flattened with dot-separated
// keys, then the "geometry." and "properties." prefixes are removed, so
// geometry.coordinates becomes coordinates and properties.ward becomes ward.
// Columns are listed in order of first appearance.
func FlattenFeatureCollection(r io.Reader) (Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var fc featureCollection
	if err := dec.Decode(&fc); err != nil {
		return Table{}, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Features == nil {
		return Table{}, ErrNoFeatures
	}

	features := *fc.Features
	t := Table{Rows: make([]Row, 0, len(features))}
	seen := make(map[string]bool)

	for _, feature := range features {
		flat := make(map[string]any)
		flattenInto(flat, "", feature)

		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		row := make(Row, len(flat))
		for _, k := range keys {
			col := columnName(k)
			row[col] = flat[k]
			if !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func flattenInto(dst map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(dst, key, nested)
			continue
		}
		dst[key] = v
	}
}

func columnName(key string) string {
	key = strings.ReplaceAll(key, "geometry.", "")
	return strings.ReplaceAll(key, "properties.", "")
}
