// Package geo computes great-circle distances for "near me" labels.
package geo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is within -90..90 / -180..180.
// Distance does not check this.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// String renders p as "lat,lng".
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// ParsePoint parses "lat,lng" and checks the ranges.
func ParsePoint(s string) (Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("invalid point %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q", lngStr)
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("point %q out of range", s)
	}
	return p, nil
}

// Distance returns the haversine distance between a and b in kilometres.
// Non-numeric input (NaN) propagates to the result.
func Distance(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// FormatDistance renders km as whole metres under 1 km, otherwise one decimal km.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}

// SortByDistance orders items by ascending distance from origin. The
// ordering is advisory; ties keep their original order.
func SortByDistance[T any](items []T, origin Point, at func(T) Point) {
	sort.SliceStable(items, func(i, j int) bool {
		return Distance(origin, at(items[i])) < Distance(origin, at(items[j]))
	})
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
