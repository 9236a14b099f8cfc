package domain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb/planar"
)

// WardKeyField is the shapefile attribute holding the ward number.
const WardKeyField = "BDNUM"

// ErrWardKey is returned when a ward polygon lacks a usable BDNUM value.
var ErrWardKey = errors.New("invalid ward key")

// PrepareWards renames the BDNUM attribute to ward, casts it to an integer
// and computes each polygon's centroid for label placement. The result is
// sorted by ward number. Geometry is passed through untouched.
func PrepareWards(features []WardFeature) ([]WardPolygon, error) {
	wards := make([]WardPolygon, 0, len(features))
	for i, f := range features {
		raw, ok := f.Attributes[WardKeyField]
		if !ok {
			return nil, fmt.Errorf("ward feature %d: %w: no %s attribute", i, ErrWardKey, WardKeyField)
		}
		n, err := toInt(raw)
		if err != nil {
			return nil, fmt.Errorf("ward feature %d: %w: %w", i, ErrWardKey, err)
		}

		attrs := make(map[string]string, len(f.Attributes))
		for k, v := range f.Attributes {
			if k == WardKeyField {
				k = colWard
			}
			attrs[k] = v
		}

		centroid, _ := planar.CentroidArea(f.Geometry)
		wards = append(wards, WardPolygon{
			Ward:       int(n),
			Geometry:   f.Geometry,
			Centroid:   centroid,
			Attributes: attrs,
		})
	}
	sort.SliceStable(wards, func(i, j int) bool { return wards[i].Ward < wards[j].Ward })
	return wards, nil
}

// LocateWard returns the number of the first ward whose boundary contains the
// license location, or 0 when none does.
func LocateWard(wards []WardPolygon, l License) int {
	pt := l.Point()
	for _, w := range wards {
		if !w.Geometry.Bound().Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(w.Geometry, pt) {
			return w.Ward
		}
	}
	return 0
}

// WardTally summarizes the licenses reported in one ward.
type WardTally struct {
	Ward     int `json:"ward"`
	Licenses int `json:"licenses"`
	// Located counts licenses whose point lies inside the ward's own boundary.
	Located int `json:"located"`
}

// TallyByWard counts licenses per reported ward. When endorsement is not
// empty only records with that flag set are counted. Every prepared ward
// appears in the result, including wards with no licenses.
func TallyByWard(ds Dataset, wards []WardPolygon, endorsement string) []WardTally {
	byWard := make(map[int]*WardTally, len(wards))
	tallies := make([]WardTally, 0, len(wards))
	for _, w := range wards {
		tallies = append(tallies, WardTally{Ward: w.Ward})
	}
	for i := range tallies {
		byWard[tallies[i].Ward] = &tallies[i]
	}

	for _, l := range ds.Licenses {
		if endorsement != "" && !l.Flags[endorsement] {
			continue
		}
		t, ok := byWard[l.Ward]
		if !ok {
			continue
		}
		t.Licenses++
		if LocateWard(wards, l) == l.Ward {
			t.Located++
		}
	}
	return tallies
}

// EndorsementCounts returns the number of records with each flag set.
func EndorsementCounts(ds Dataset) map[string]int {
	counts := make(map[string]int, len(ds.Endorsements))
	for _, e := range ds.Endorsements {
		counts[e] = 0
	}
	for _, l := range ds.Licenses {
		for e, set := range l.Flags {
			if set {
				counts[e]++
			}
		}
	}
	return counts
}
