package domain

import "github.com/paulmach/orb/geojson"

// FilterByDistrict returns a new collection holding the features whose
// district property equals district, in their original order. An empty
// district returns a copy of the whole collection. The input is never
// modified; features are shared, not cloned.
func FilterByDistrict(fc *geojson.FeatureCollection, district string) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	if district == "" {
		out.Features = append(out.Features, fc.Features...)
		return out
	}

	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		if d, _ := f.Properties[PropDistrict].(string); d == district {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
