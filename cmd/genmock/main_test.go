package main

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../../data/mock/liquor_licenses_sample.geojson"

func TestTrimFeatures(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	trimmed, total, err := trimFeatures(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(trimmed, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, 2, countKept(total, 2))
}

func TestTrimFeatures_NoLimit(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	trimmed, total, err := trimFeatures(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, countKept(total, 0))

	out, err := derive(trimmed)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Loaded)
	assert.Equal(t, 6, out.Cleaned)
	assert.Equal(t, 3, out.Filtered)
	assert.Equal(t, []string{"On Sale", "Wine", "Sunday Sales"}, out.Endorsements)
	assert.Len(t, out.Licenses, 3)
}

func TestTrimFeatures_NotACollection(t *testing.T) {
	_, _, err := trimFeatures([]byte(`[1, 2]`), 1)
	assert.Error(t, err)
}
