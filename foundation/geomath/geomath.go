// Package geomath provides basic great-circle geometry functions
package geomath

import "math"

const earthRadiusMeters = 6_371_000

// Point is a WGS84 coordinate
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Box is an axis aligned bounding box over WGS84 coordinates
type Box struct {
	MinLatitude  float64 `json:"min_latitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// Contains reports whether p falls inside the box
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

// Distance returns the great-circle distance in meters between two points
// using the haversine formula
func Distance(a, b Point) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// normalized to [0, 360)
func Bearing(a, b Point) float64 {
	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := toDeg(math.Atan2(y, x))
	return math.Mod(bearing+360, 360)
}

// BoundingBox returns the smallest box containing every point.
// Returns the zero Box for an empty slice.
func BoundingBox(points []Point) Box {
	if len(points) == 0 {
		return Box{}
	}
	box := Box{
		MinLatitude:  points[0].Latitude,
		MaxLatitude:  points[0].Latitude,
		MinLongitude: points[0].Longitude,
		MaxLongitude: points[0].Longitude,
	}
	for _, p := range points[1:] {
		box.MinLatitude = math.Min(box.MinLatitude, p.Latitude)
		box.MaxLatitude = math.Max(box.MaxLatitude, p.Latitude)
		box.MinLongitude = math.Min(box.MinLongitude, p.Longitude)
		box.MaxLongitude = math.Max(box.MaxLongitude, p.Longitude)
	}
	return box
}

// BoundingBoxAround returns the box of approximately radiusMeters around center.
// The degree offsets are approximate, callers needing an exact radius should
// re-check candidates with Distance.
func BoundingBoxAround(center Point, radiusMeters float64) Box {
	latDeg := radiusMeters / earthRadiusMeters * (180 / math.Pi)
	lonDeg := latDeg / math.Cos(toRad(center.Latitude))
	return Box{
		MinLatitude:  center.Latitude - latDeg,
		MaxLatitude:  center.Latitude + latDeg,
		MinLongitude: center.Longitude - lonDeg,
		MaxLongitude: center.Longitude + lonDeg,
	}
}

// Interpolate returns the point at fraction of the way from a to b,
// by linear interpolation over coordinates. Suitable for the short segments
// between consecutive shape points, not for long spans.
func Interpolate(a, b Point, fraction float64) Point {
	if fraction <= 0 {
		return a
	}
	if fraction >= 1 {
		return b
	}
	return Point{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*fraction,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*fraction,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
