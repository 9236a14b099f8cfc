package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingColumn is returned when the feed lacks a column the pipeline requires.
	ErrMissingColumn = errors.New("missing required column")

	// ErrCoercion is returned when a value cannot be converted to its column type.
	ErrCoercion = errors.New("type coercion failed")
)

// Column names used by the cleaner.
const (
	colCoordinates    = "coordinates"
	colWard           = "ward"
	colIssueDate      = "issueDate"
	colExpirationDate = "expirationDate"
	colLastUpdateDate = "lastUpdateDate"
	colEndorsements   = "endorsements"
	colExpirationYear = "expirationYear"
)

var (
	requiredColumns = []string{
		colCoordinates, colWard, colIssueDate, colExpirationDate, colLastUpdateDate, colEndorsements,
	}

	// droppedColumns carry identifiers and duplicate projections of the location.
	droppedColumns = map[string]bool{
		colCoordinates: true,
		"type":         true,
		"id":           true,
		"OBJECTID":     true,
		"liquorType":   true,
		"lat":          true,
		"long":         true,
		"xWebMercator": true,
		"yWebMercator": true,
	}

	// rangeCheckedColumns are zero-filled when missing and excluded later by
	// Filter's range checks instead of the missing-value drop.
	rangeCheckedColumns = map[string]bool{
		colWard:           true,
		colIssueDate:      true,
		colExpirationDate: true,
	}

	// typedColumns are mapped onto License fields rather than Attributes.
	typedColumns = map[string]bool{
		colWard:           true,
		colIssueDate:      true,
		colExpirationDate: true,
		colLastUpdateDate: true,
		colEndorsements:   true,
		colExpirationYear: true,
	}
)

// Clean converts a flattened feed table into typed licenses:
//   - coordinates is decomposed into X and Y
//   - identifier and projection columns are dropped
//   - ward, issueDate, expirationDate and lastUpdateDate are zero-filled when
//     missing, then ward is cast to int and the dates parsed from epoch ms
//   - rows with any other missing value are dropped (a missing lastUpdateDate
//     counts as missing; the other three sentinels are left for Filter)
//   - expirationYear is cast to int, or derived from expirationDate when the
//     feed has no such column
//
// Coercion failures abort the whole stage with an error naming the row.
func Clean(t Table) ([]License, error) {
	for _, col := range requiredColumns {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var remaining []string
	for _, col := range t.Columns {
		if !droppedColumns[col] {
			remaining = append(remaining, col)
		}
	}
	hasExpirationYear := t.HasColumn(colExpirationYear)

	out := make([]License, 0, len(t.Rows))
	for i, row := range t.Rows {
		lic, keep, err := cleanRow(row, remaining, hasExpirationYear)
		if err != nil {
			return nil, fmt.Errorf("clean row %d: %w", i, err)
		}
		if keep {
			out = append(out, lic)
		}
	}
	return out, nil
}

func cleanRow(row Row, remaining []string, hasExpirationYear bool) (License, bool, error) {
	x, y, located, err := decomposeCoordinates(row[colCoordinates])
	if err != nil {
		return License{}, false, err
	}

	ward, err := toInt(sentinelFill(row, colWard))
	if err != nil {
		return License{}, false, fmt.Errorf("%s: %w", colWard, err)
	}
	issued, err := epochMillis(sentinelFill(row, colIssueDate))
	if err != nil {
		return License{}, false, fmt.Errorf("%s: %w", colIssueDate, err)
	}
	expires, err := epochMillis(sentinelFill(row, colExpirationDate))
	if err != nil {
		return License{}, false, fmt.Errorf("%s: %w", colExpirationDate, err)
	}
	updated, err := epochMillis(sentinelFill(row, colLastUpdateDate))
	if err != nil {
		return License{}, false, fmt.Errorf("%s: %w", colLastUpdateDate, err)
	}

	if !located {
		return License{}, false, nil
	}
	for _, col := range remaining {
		if rangeCheckedColumns[col] {
			continue
		}
		if row.Missing(col) {
			return License{}, false, nil
		}
	}

	lic := License{
		X:              x,
		Y:              y,
		Ward:           int(ward),
		IssueDate:      issued,
		ExpirationDate: expires,
		LastUpdateDate: updated,
		Endorsements:   stringify(row[colEndorsements]),
		Attributes:     make(map[string]string),
	}

	if hasExpirationYear {
		year, err := toInt(row[colExpirationYear])
		if err != nil {
			return License{}, false, fmt.Errorf("%s: %w", colExpirationYear, err)
		}
		lic.ExpirationYear = int(year)
	} else {
		lic.ExpirationYear = expires.Year()
	}

	for _, col := range remaining {
		if typedColumns[col] {
			continue
		}
		lic.Attributes[col] = stringify(row[col])
	}
	return lic, true, nil
}

// sentinelFill returns the row's value for col, or 0 when it is missing.
func sentinelFill(row Row, col string) any {
	if row.Missing(col) {
		return json.Number("0")
	}
	return row[col]
}

// decomposeCoordinates splits an [x, y] pair. A nil value reports ok=false;
// anything other than a list of at least two numbers is a coercion error.
func decomposeCoordinates(v any) (x, y float64, ok bool, err error) {
	if v == nil {
		return 0, 0, false, nil
	}
	pair, isList := v.([]any)
	if !isList || len(pair) < 2 {
		return 0, 0, false, fmt.Errorf("%w: coordinates %v is not an [x, y] pair", ErrCoercion, v)
	}
	if x, err = toFloat(pair[0]); err != nil {
		return 0, 0, false, fmt.Errorf("coordinates x: %w", err)
	}
	if y, err = toFloat(pair[1]); err != nil {
		return 0, 0, false, fmt.Errorf("coordinates y: %w", err)
	}
	return x, y, true, nil
}

func epochMillis(v any) (time.Time, error) {
	ms, err := toInt(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// toInt casts a feed value to int64. Numeric strings such as "7" are accepted;
// fractional values are truncated.
func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrCoercion, n.String())
		}
		return int64(f), nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrCoercion, n)
		}
		return int64(f), nil
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported value %v (%T)", ErrCoercion, v, v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrCoercion, n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrCoercion, n)
		}
		return f, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: unsupported value %v (%T)", ErrCoercion, v, v)
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}
