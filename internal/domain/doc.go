// Package domain models disaster-shelter facility records and their GeoJSON
// rendering.
//
// # Data Source
//
// Shelter lists are published by municipalities as Excel workbooks
// (bousai_data.xlsx). Only the first sheet is read, and its first row holds
// the column labels. Labels are the source's own strings (for example
// "施設名", "北緯", "東経"), so every lookup goes through a [ColumnMap] rather
// than a hardcoded identifier.
//
// # Validity Gate
//
// A row becomes a [Facility] only when both coordinates parse as finite
// numbers and neither equals exactly 0:
//
//	北緯 "35.0",  東経 "139.0"  → kept
//	北緯 "0",     東経 "139.0"  → skipped (zero is treated as missing)
//	北緯 "",      東経 "139.0"  → skipped
//	北緯 "north", 東経 "139.0"  → skipped
//
// Zero is a sentinel for "not geocoded" in the published sheets. A shelter
// that truly sits on the equator or the prime meridian would also be dropped;
// this is a known data-quality limitation, not a correctness guarantee.
//
// Skipped rows are not errors. They never abort a build and are only reported
// through debug logs and the per-reason counts in [Dataset].
//
// # Size Category
//
// Derived from the capacity column (headcount). Missing or unparsable
// capacity is 0, never a reason to skip the row:
//
//	capacity <  100        small
//	100 <= capacity < 500  medium
//	capacity >= 500        large
//
// # GeoJSON Output
//
// Each facility is a Point feature with coordinates [longitude, latitude],
// the reverse of the sheet's 北緯/東経 column order. Properties carry every
// raw column unchanged, then the enriched keys (name, latitude, longitude,
// capacity, sizeCategory, district) are written over any raw column that
// shares their name.
//
// # Districts
//
// The district list holds each distinct non-empty district label of the kept
// facilities, in first-seen source order. [FilterByDistrict] narrows a
// collection to one district; an empty selector returns everything.
package domain
