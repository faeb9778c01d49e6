package geomath

import (
	"math"
	"testing"
)

// central Valladolid landmarks, roughly 470m apart
var (
	plazaMayor    = Point{Latitude: 41.6523, Longitude: -4.7286}
	plazaZorrilla = Point{Latitude: 41.6488, Longitude: -4.7283}
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{name: "same point", a: plazaMayor, b: plazaMayor, want: 0, tolerance: 0.001},
		{name: "plaza mayor to plaza zorrilla", a: plazaMayor, b: plazaZorrilla, want: 390, tolerance: 30},
		{name: "one degree of latitude", a: Point{Latitude: 41}, b: Point{Latitude: 42}, want: 111195, tolerance: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %f, want %f within %f", got, tt.want, tt.tolerance)
			}
			reverse := Distance(tt.b, tt.a)
			if math.Abs(got-reverse) > 0.001 {
				t.Errorf("Distance() not symmetric: %f vs %f", got, reverse)
			}
		})
	}
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{name: "due north", a: Point{Latitude: 41}, b: Point{Latitude: 42}, want: 0, tolerance: 0.1},
		{name: "due east", a: Point{}, b: Point{Longitude: 1}, want: 90, tolerance: 0.1},
		{name: "due south", a: Point{Latitude: 42}, b: Point{Latitude: 41}, want: 180, tolerance: 0.1},
		{name: "due west", a: Point{}, b: Point{Longitude: -1}, want: 270, tolerance: 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Bearing() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox([]Point{plazaMayor, plazaZorrilla})
	if box.MinLatitude != plazaZorrilla.Latitude || box.MaxLatitude != plazaMayor.Latitude {
		t.Errorf("BoundingBox latitudes wrong: %+v", box)
	}
	if !box.Contains(Point{Latitude: 41.65, Longitude: -4.7284}) {
		t.Error("box should contain a point between the two")
	}
	if box.Contains(Point{Latitude: 41.7, Longitude: -4.7284}) {
		t.Error("box should not contain a point north of both")
	}
	if got := BoundingBox(nil); got != (Box{}) {
		t.Errorf("BoundingBox(nil) = %+v, want zero box", got)
	}
}

func TestBoundingBoxAround(t *testing.T) {
	box := BoundingBoxAround(plazaMayor, 500)
	if !box.Contains(plazaZorrilla) {
		t.Error("500m box around plaza mayor should contain plaza zorrilla")
	}
	if Distance(plazaMayor, Point{Latitude: box.MinLatitude, Longitude: plazaMayor.Longitude}) < 499 {
		t.Error("box edge closer than requested radius")
	}
}

func TestInterpolate(t *testing.T) {
	mid := Interpolate(plazaZorrilla, plazaMayor, 0.5)
	if math.Abs(mid.Latitude-(plazaZorrilla.Latitude+plazaMayor.Latitude)/2) > 1e-9 {
		t.Errorf("Interpolate midpoint latitude = %f", mid.Latitude)
	}
	if got := Interpolate(plazaZorrilla, plazaMayor, -0.5); got != plazaZorrilla {
		t.Errorf("fraction below 0 should clamp to start, got %+v", got)
	}
	if got := Interpolate(plazaZorrilla, plazaMayor, 1.5); got != plazaMayor {
		t.Errorf("fraction above 1 should clamp to end, got %+v", got)
	}
}
