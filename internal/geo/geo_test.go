package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want Position
	}{
		{Position{-23.55, -46.63}, Position{-23.55, -46.63}},
		{Position{89, 10}, Position{MaxMercatorLat, 10}},
		{Position{-89, 10}, Position{-MaxMercatorLat, 10}},
		{Position{0, 190}, Position{0, -170}},
		{Position{0, -190}, Position{0, 170}},
		{Position{0, 180}, Position{0, -180}},
	}

	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", c.in, err)
		}
		if math.Abs(got.Latitude-c.want.Latitude) > 1e-9 || math.Abs(got.Longitude-c.want.Longitude) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejectsNaN(t *testing.T) {
	if _, err := Normalize(Position{Latitude: math.NaN()}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Normalize(Position{Longitude: math.Inf(1)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPointFeatureOrder(t *testing.T) {
	fc := Collection(PointFeature(Position{Latitude: -23.5, Longitude: -46.6}, map[string]interface{}{"name": "Ponto"}))

	raw, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != "FeatureCollection" {
		t.Errorf("type = %q", decoded.Type)
	}
	if diff := cmp.Diff([]float64{-46.6, -23.5}, decoded.Features[0].Geometry.Coordinates); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyCollection(t *testing.T) {
	raw, _ := json.Marshal(Collection())
	if string(raw) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("got %s", raw)
	}
}
