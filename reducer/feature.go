package reducer

import (
	"github.com/paulmach/orb/geojson"
)

// ReduceFeature reduces the polygon geometry of a GeoJSON feature to a point
// feature. The returned feature carries no properties.
func ReduceFeature(f *geojson.Feature, opts ...Option) (*geojson.Feature, error) {
	if f == nil {
		return nil, &InvalidInputError{GeometryType: "nil", Reason: "no feature"}
	}

	p, err := Reduce(f.Geometry, opts...)
	if err != nil {
		return nil, err
	}
	return geojson.NewFeature(p), nil
}
