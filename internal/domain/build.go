package domain

import (
	"log/slog"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// SkipReason explains why a row did not become a facility. The zero value
// means the row was kept.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipInvalidLatitude  SkipReason = "invalid_latitude"
	SkipInvalidLongitude SkipReason = "invalid_longitude"
	SkipZeroCoordinate   SkipReason = "zero_coordinate"
)

// Dataset is the build output handed to the response boundary.
type Dataset struct {
	GeoJSON   *geojson.FeatureCollection `json:"geoJson"`
	Districts []string                   `json:"districts"`

	// Skipped counts excluded rows per reason. Not serialized.
	Skipped map[SkipReason]int `json:"-"`
}

// FilterByDistrict returns a copy of the dataset whose collection is narrowed
// to one district. The district list is left whole so the selector can offer
// every option.
func (d Dataset) FilterByDistrict(district string) Dataset {
	return Dataset{
		GeoJSON:   FilterByDistrict(d.GeoJSON, district),
		Districts: d.Districts,
		Skipped:   d.Skipped,
	}
}

// Table is a loaded sheet: records in source order and the spreadsheet row
// each one came from. Blank rows leave gaps in RowNumbers.
type Table struct {
	Records    []RawRecord
	RowNumbers []int
}

// Row returns the 1-based sheet row of record i. Without RowNumbers the
// sheet is assumed gap-free below a single header row.
func (t Table) Row(i int) int {
	if i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 2
}

// BuildDataset validates and enriches records in source order, producing the
// feature collection and the distinct district list. Rows failing the
// coordinate gate are skipped and logged at debug level; nothing here fails
// the batch.
func BuildDataset(records []RawRecord, cols ColumnMap, logger *slog.Logger) Dataset {
	return BuildTable(Table{Records: records}, cols, logger)
}

// BuildTable is BuildDataset over a loaded table, so skip logs carry the
// real sheet row.
func BuildTable(t Table, cols ColumnMap, logger *slog.Logger) Dataset {
	fc := geojson.NewFeatureCollection()
	districts := make([]string, 0)
	seen := make(map[string]struct{})
	skipped := make(map[SkipReason]int)

	for i, rec := range t.Records {
		facility, reason := ParseFacility(rec, cols)
		if reason != SkipNone {
			skipped[reason]++
			logger.Debug("record skipped",
				"row", t.Row(i),
				"reason", string(reason),
				"name", cellString(rec[cols.Name]),
			)
			continue
		}

		fc.Append(facility.Feature())

		if facility.District == "" {
			continue
		}
		if _, ok := seen[facility.District]; !ok {
			seen[facility.District] = struct{}{}
			districts = append(districts, facility.District)
		}
	}

	return Dataset{GeoJSON: fc, Districts: districts, Skipped: skipped}
}

// ParseFacility applies the coordinate gate and enrichment to one row. It
// returns SkipNone with the facility, or the reason the row was excluded.
func ParseFacility(rec RawRecord, cols ColumnMap) (Facility, SkipReason) {
	lat, ok := parseCoordinate(rec[cols.Latitude])
	if !ok {
		return Facility{}, SkipInvalidLatitude
	}
	lon, ok := parseCoordinate(rec[cols.Longitude])
	if !ok {
		return Facility{}, SkipInvalidLongitude
	}
	if lat == 0 || lon == 0 {
		return Facility{}, SkipZeroCoordinate
	}

	capacity := parseCapacity(rec[cols.Capacity])

	return Facility{
		Name:         cellString(rec[cols.Name]),
		Latitude:     lat,
		Longitude:    lon,
		Capacity:     capacity,
		SizeCategory: DeriveSizeCategory(capacity),
		District:     cellString(rec[cols.District]),
		Passthrough:  maps.Clone(map[string]any(rec)),
	}, SkipNone
}

// DeriveSizeCategory maps a capacity to its tier. Lower bounds are inclusive:
// exactly 100 is medium and exactly 500 is large.
func DeriveSizeCategory(capacity int) SizeCategory {
	switch {
	case capacity >= 500:
		return SizeLarge
	case capacity >= 100:
		return SizeMedium
	default:
		return SizeSmall
	}
}

// parseCoordinate reads a cell as finite degrees. Missing, blank, non-numeric
// and non-finite values fail.
func parseCoordinate(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxCapacity caps headcounts so numeric and text cells saturate alike.
const maxCapacity = math.MaxInt32

// parseCapacity reads a headcount, truncating decimals and capping at
// maxCapacity whatever the cell type. Anything unusable, including
// negatives, is 0.
func parseCapacity(v any) int {
	var n int
	switch val := v.(type) {
	case int:
		n = val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		if val > maxCapacity {
			return maxCapacity
		}
		n = int(val)
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.Atoi(s); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			return parseCapacity(f)
		}
	}
	if n < 0 {
		return 0
	}
	return min(n, maxCapacity)
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}
