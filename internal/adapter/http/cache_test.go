package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlotCache_BasicGetPut(t *testing.T) {
	c := newPlotCache(3)

	c.put("wards.svg", []byte("<svg>wards</svg>"))
	c.put("licenses.svg|Wine", []byte("<svg>wine</svg>"))

	value, ok := c.get("wards.svg")
	assert.True(t, ok)
	assert.Equal(t, "<svg>wards</svg>", string(value))

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestPlotCache_Eviction(t *testing.T) {
	c := newPlotCache(2)

	c.put("a", []byte("A"))
	c.put("b", []byte("B"))
	c.put("c", []byte("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	value, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", string(value))

	value, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", string(value))
	assert.Equal(t, 2, c.len())
}

func TestPlotCache_AccessPromotesEntry(t *testing.T) {
	c := newPlotCache(2)

	c.put("a", []byte("A"))
	c.put("b", []byte("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", []byte("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestPlotCache_UpdateExisting(t *testing.T) {
	c := newPlotCache(2)

	c.put("a", []byte("A1"))
	c.put("a", []byte("A2"))

	value, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", string(value))
	assert.Equal(t, 1, c.len())
}

func TestPlotCache_MinimumSize(t *testing.T) {
	c := newPlotCache(0)

	c.put("a", []byte("A"))
	c.put("b", []byte("B"))

	assert.Equal(t, 1, c.len())
	_, ok := c.get("b")
	assert.True(t, ok)
}
