package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/paulmach/orb"
)

// Valid ward numbers in Minneapolis.
const (
	MinWard = 1
	MaxWard = 13
)

// DefaultEndorsement is the flag plotted when a requested endorsement is not a column.
const DefaultEndorsement = "On Sale"

// License is one cleaned liquor license record.
type License struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Ward int     `json:"ward"`

	IssueDate      time.Time `json:"issue_date"`
	ExpirationDate time.Time `json:"expiration_date"`
	LastUpdateDate time.Time `json:"last_update_date"`
	ExpirationYear int       `json:"expiration_year"`

	// Endorsements is the raw, unsplit endorsement string from the feed.
	Endorsements string `json:"endorsements"`

	// Attributes holds the remaining feed columns (licenseNumber, businessName, address, ...).
	Attributes map[string]string `json:"attributes,omitempty"`

	// Derived by DeriveFeatures.
	IssueMonth int             `json:"issue_month,omitempty"`
	IssueYear  int             `json:"issue_year,omitempty"`
	Duration   time.Duration   `json:"-"` // encoded as duration_seconds
	Flags      map[string]bool `json:"flags,omitempty"`
}

type licenseJSON License

// MarshalJSON adds Duration as whole seconds under duration_seconds.
func (l License) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		licenseJSON
		DurationSeconds int64 `json:"duration_seconds"`
	}{licenseJSON(l), int64(l.Duration / time.Second)})
}

// UnmarshalJSON restores Duration from duration_seconds.
func (l *License) UnmarshalJSON(data []byte) error {
	var aux struct {
		licenseJSON
		DurationSeconds int64 `json:"duration_seconds"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = License(aux.licenseJSON)
	l.Duration = time.Duration(aux.DurationSeconds) * time.Second
	return nil
}

// Point returns the license location as an orb point (x, y).
func (l License) Point() orb.Point {
	return orb.Point{l.X, l.Y}
}

// Key produces a deterministic identifier for the record. The feed's own id
// columns are dropped during cleaning, so the key is a hash of the fields that
// identify a license location and term. Republishing the same run yields the
// same keys.
func (l License) Key() string {
	input := fmt.Sprintf("%.6f|%.6f|%d|%d|%s",
		l.X, l.Y, l.IssueDate.UnixMilli(), l.ExpirationDate.UnixMilli(), l.Attributes["licenseNumber"])
	hash := sha256.Sum256([]byte(input))
	return "lic-" + hex.EncodeToString(hash[:8])
}

// Dataset is the output of DeriveFeatures: the licenses plus the ordered set
// of endorsement flag columns discovered in the batch.
type Dataset struct {
	Licenses     []License
	Endorsements []string
}

// HasEndorsement reports whether name is one of the dataset's flag columns.
func (d Dataset) HasEndorsement(name string) bool {
	return slices.Contains(d.Endorsements, name)
}

// WardFeature is a raw row from the ward shapefile.
type WardFeature struct {
	Attributes map[string]string
	Geometry   orb.MultiPolygon
}

// WardPolygon is a prepared ward boundary keyed by ward number.
type WardPolygon struct {
	Ward       int
	Geometry   orb.MultiPolygon
	Centroid   orb.Point
	Attributes map[string]string
}
