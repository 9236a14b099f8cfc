package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Run("decomposes coordinates and types columns", func(t *testing.T) {
		out, err := Clean(newTable(licenseRow(nil)))
		require.NoError(t, err)
		require.Len(t, out, 1)

		l := out[0]
		assert.Equal(t, -93.27, l.X)
		assert.Equal(t, 44.98, l.Y)
		assert.Equal(t, 7, l.Ward)
		assert.Equal(t, date(2020, time.March, 1), l.IssueDate)
		assert.Equal(t, date(2025, time.January, 1), l.ExpirationDate)
		assert.Equal(t, date(2024, time.January, 1), l.LastUpdateDate)
		assert.Equal(t, 2025, l.ExpirationYear)
		assert.Equal(t, "On Sale, Wine", l.Endorsements)
	})

	t.Run("drops identifier and projection columns", func(t *testing.T) {
		out, err := Clean(newTable(licenseRow(nil)))
		require.NoError(t, err)
		require.Len(t, out, 1)

		assert.Equal(t, map[string]string{
			"licenseNumber": "LIC-001",
			"businessName":  "Bar One",
		}, out[0].Attributes)
	})

	t.Run("X and Y equal the coordinate pair for every row", func(t *testing.T) {
		pairs := [][2]string{{"-93.1", "44.9"}, {"-93.35", "45.05"}, {"-93.2", "44.95"}}
		rows := make([]Row, 0, len(pairs))
		for _, p := range pairs {
			rows = append(rows, licenseRow(map[string]any{
				"coordinates": []any{json.Number(p[0]), json.Number(p[1])},
			}))
		}

		out, err := Clean(newTable(rows...))
		require.NoError(t, err)
		require.Len(t, out, len(pairs))
		for i, p := range pairs {
			x, _ := json.Number(p[0]).Float64()
			y, _ := json.Number(p[1]).Float64()
			assert.Equal(t, x, out[i].X)
			assert.Equal(t, y, out[i].Y)
		}
	})

	t.Run("numeric ward values are accepted", func(t *testing.T) {
		out, err := Clean(newTable(licenseRow(map[string]any{"ward": json.Number("3")})))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 3, out[0].Ward)
	})

	t.Run("out of range ward survives cleaning", func(t *testing.T) {
		out, err := Clean(newTable(licenseRow(map[string]any{"ward": "14"})))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 14, out[0].Ward)
	})

	t.Run("missing ward and dates are zero-filled for Filter", func(t *testing.T) {
		out, err := Clean(newTable(
			licenseRow(map[string]any{"ward": nil}),
			licenseRow(map[string]any{"issueDate": nil}),
			licenseRow(map[string]any{"expirationDate": nil}),
		))
		require.NoError(t, err)
		require.Len(t, out, 3)

		epoch := time.UnixMilli(0).UTC()
		assert.Equal(t, 0, out[0].Ward)
		assert.Equal(t, epoch, out[1].IssueDate)
		assert.Equal(t, epoch, out[2].ExpirationDate)
	})

	t.Run("missing lastUpdateDate drops the row", func(t *testing.T) {
		out, err := Clean(newTable(
			licenseRow(nil),
			licenseRow(map[string]any{"lastUpdateDate": nil}),
		))
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("missing value in any other column drops the row", func(t *testing.T) {
		out, err := Clean(newTable(
			licenseRow(map[string]any{"endorsements": nil}),
			licenseRow(map[string]any{"businessName": nil}),
			licenseRow(map[string]any{"expirationYear": nil}),
			licenseRow(map[string]any{"coordinates": nil}),
		))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("missing dropped column does not drop the row", func(t *testing.T) {
		out, err := Clean(newTable(licenseRow(map[string]any{"liquorType": nil, "lat": nil})))
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("expirationYear derived when the feed has none", func(t *testing.T) {
		row := licenseRow(nil)
		delete(row, "expirationYear")

		out, err := Clean(newTable(row))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 2025, out[0].ExpirationYear)
	})

	t.Run("missing required column", func(t *testing.T) {
		row := licenseRow(nil)
		delete(row, "endorsements")

		_, err := Clean(newTable(row))
		require.ErrorIs(t, err, ErrMissingColumn)
		assert.Contains(t, err.Error(), "endorsements")
	})

	t.Run("uncoercible ward aborts", func(t *testing.T) {
		_, err := Clean(newTable(licenseRow(nil), licenseRow(map[string]any{"ward": "Ward Seven"})))
		require.ErrorIs(t, err, ErrCoercion)
		assert.Contains(t, err.Error(), "clean row 1")
		assert.Contains(t, err.Error(), "ward")
	})

	t.Run("malformed coordinates abort", func(t *testing.T) {
		_, err := Clean(newTable(licenseRow(map[string]any{"coordinates": []any{json.Number("1")}})))
		require.ErrorIs(t, err, ErrCoercion)
	})

	t.Run("empty table", func(t *testing.T) {
		table := newTable(licenseRow(nil))
		table.Rows = nil

		out, err := Clean(table)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected int64
		wantErr  bool
	}{
		{"numeric string", "7", 7, false},
		{"padded string", " 12 ", 12, false},
		{"float string", "7.0", 7, false},
		{"json integer", json.Number("1583020800000"), 1583020800000, false},
		{"json float", json.Number("3.9"), 3, false},
		{"float64", 13.0, 13, false},
		{"word", "seven", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrCoercion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
