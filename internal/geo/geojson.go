// Package geo handles geographic data structures and coordinate conversions.
package geo

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Type       string                 `json:"type" yaml:"type"`
	Geometry   GeoJSONGeometry        `json:"geometry" yaml:"geometry"`
}

// GeoJSONGeometry represents the geometry of a feature.
type GeoJSONGeometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [Lon, Lat]
}

// PointFeature builds a Point feature for p. GeoJSON orders coordinates as lon, lat.
func PointFeature(p Position, props map[string]interface{}) GeoJSONFeature {
	if props == nil {
		props = map[string]interface{}{}
	}

	return GeoJSONFeature{
		Type: "Feature",
		Geometry: GeoJSONGeometry{
			Type:        "Point",
			Coordinates: []float64{p.Longitude, p.Latitude},
		},
		Properties: props,
	}
}

// Collection wraps features into a FeatureCollection.
func Collection(features ...GeoJSONFeature) GeoJSONFeatureCollection {
	if features == nil {
		features = []GeoJSONFeature{}
	}

	return GeoJSONFeatureCollection{Type: "FeatureCollection", Features: features}
}
