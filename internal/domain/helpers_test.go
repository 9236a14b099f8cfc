package domain

import (
	"encoding/json"
	"time"
)

const (
	testIssueMs      = "1583020800000" // 2020-03-01T00:00:00Z
	testExpirationMs = "1735689600000" // 2025-01-01T00:00:00Z
	testUpdateMs     = "1704067200000" // 2024-01-01T00:00:00Z
)

// licenseRow returns a complete flattened feed row; overrides replace or,
// when the value is nil, null out individual columns.
func licenseRow(overrides map[string]any) Row {
	row := Row{
		"type":           "Point",
		"id":             json.Number("1"),
		"OBJECTID":       json.Number("1"),
		"coordinates":    []any{json.Number("-93.27"), json.Number("44.98")},
		"ward":           "7",
		"issueDate":      json.Number(testIssueMs),
		"expirationDate": json.Number(testExpirationMs),
		"lastUpdateDate": json.Number(testUpdateMs),
		"expirationYear": json.Number("2025"),
		"endorsements":   "On Sale, Wine",
		"liquorType":     "Wine",
		"lat":            json.Number("44.98"),
		"long":           json.Number("-93.27"),
		"xWebMercator":   json.Number("-10382000.1"),
		"yWebMercator":   json.Number("5618000.2"),
		"licenseNumber":  "LIC-001",
		"businessName":   "Bar One",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

// newTable builds a Table whose columns are the union of the rows' keys in a
// stable order.
func newTable(rows ...Row) Table {
	order := []string{
		"type", "id", "OBJECTID", "coordinates", "ward", "issueDate", "expirationDate",
		"lastUpdateDate", "expirationYear", "endorsements", "liquorType", "lat", "long",
		"xWebMercator", "yWebMercator", "licenseNumber", "businessName",
	}
	t := Table{Rows: rows}
	seen := make(map[string]bool)
	for _, col := range order {
		for _, r := range rows {
			if _, ok := r[col]; ok && !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
		}
	}
	for _, r := range rows {
		for col := range r {
			if !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
		}
	}
	return t
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// license builds a cleaned record for filter and feature tests.
func license(ward int, issued, expires time.Time, endorsements string) License {
	return License{
		X:              -93.27,
		Y:              44.98,
		Ward:           ward,
		IssueDate:      issued,
		ExpirationDate: expires,
		LastUpdateDate: issued,
		ExpirationYear: expires.Year(),
		Endorsements:   endorsements,
		Attributes:     map[string]string{"licenseNumber": "LIC"},
	}
}
