// Package domain models Minneapolis On-Sale Liquor license records and City
// Council ward boundaries, and implements the pure stages of the license ETL.
//
// # Data Source
//
// License records come from the City of Minneapolis open data portal, served
// as GeoJSON by an ArcGIS FeatureServer query:
//
//	https://services.arcgis.com/afSMGVsC7QlRK1kZ/arcgis/rest/services/On_Sale_Liquor/FeatureServer/0/query?outFields=*&where=1%3D1&f=geojson
//
// Each feature carries a point geometry and a flat property bag. Ward
// boundaries come from the City_Council_Wards shapefile archive, whose DBF
// table keys each polygon by the BDNUM attribute.
//
// # Feed Conventions
//
// Coordinates:
//
//	geometry.coordinates is an [x, y] pair in WGS-84 (longitude, latitude).
//
// Dates:
//
//	issueDate, expirationDate and lastUpdateDate are epoch milliseconds (UTC).
//	They may be null. A null is filled with the 0 sentinel, which parses to
//	1970-01-01 and is excluded later by the year range checks in [Filter].
//
// Ward:
//
//	ward is usually a numeric string ("7"). Valid wards are 1 through 13.
//
// Endorsements:
//
//	endorsements is a free-text list of license classes separated by "," or
//	";", e.g. "On Sale, Wine; Sunday Sales". Tokens are trimmed. Flags are
//	assigned by substring containment against the raw string, so a token
//	that is a substring of another token matches rows carrying either one.
//
// # Stages
//
// [FlattenFeatureCollection] → [Clean] → [Filter] → [DeriveFeatures], and
// independently [PrepareWards] for the shapefile rows. Every stage returns a
// new value and leaves its input untouched.
package domain
