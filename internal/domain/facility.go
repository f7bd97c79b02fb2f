package domain

import (
	"maps"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RawRecord is one spreadsheet row keyed by column label. Values are string
// for text cells and float64 for numeric cells. Empty cells are absent.
type RawRecord map[string]any

// ColumnMap names the source columns the builder reads. The labels are the
// strings used in the sheet's header row.
type ColumnMap struct {
	Name      string `yaml:"name"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
	Capacity  string `yaml:"capacity"`
	District  string `yaml:"district"`
}

// DefaultColumns matches the header row of the published bousai_data.xlsx.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Name:      "施設名",
		Latitude:  "北緯",
		Longitude: "東経",
		Capacity:  "収容人数",
		District:  "地区",
	}
}

// SizeCategory is the three-tier capacity classification.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// Enriched property keys. They take precedence over raw columns of the same name.
const (
	PropName         = "name"
	PropLatitude     = "latitude"
	PropLongitude    = "longitude"
	PropCapacity     = "capacity"
	PropSizeCategory = "sizeCategory"
	PropDistrict     = "district"
)

// Facility is a validated, enriched shelter record.
type Facility struct {
	Name         string
	Latitude     float64
	Longitude    float64
	Capacity     int
	SizeCategory SizeCategory
	District     string

	// Passthrough holds every raw column of the source row.
	Passthrough map[string]any
}

// Properties merges the raw columns with the enriched fields. Enriched keys
// always overwrite raw keys of the same name.
func (f Facility) Properties() geojson.Properties {
	props := make(geojson.Properties, len(f.Passthrough)+6)
	maps.Copy(props, f.Passthrough)

	props[PropName] = f.Name
	props[PropLatitude] = f.Latitude
	props[PropLongitude] = f.Longitude
	props[PropCapacity] = f.Capacity
	props[PropSizeCategory] = string(f.SizeCategory)
	props[PropDistrict] = f.District
	return props
}

// Feature renders the facility as a GeoJSON Point. orb.Point is [lon, lat].
func (f Facility) Feature() *geojson.Feature {
	feature := geojson.NewFeature(orb.Point{f.Longitude, f.Latitude})
	feature.Properties = f.Properties()
	return feature
}
