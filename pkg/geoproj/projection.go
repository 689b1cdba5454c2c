// Package geoproj converts WGS84 coordinates to Web-Mercator (EPSG:3857),
// the projection used by the tile-based map layers of the geospatial
// providers. Spherical formulas; the sub-meter error of ignoring the
// ellipsoid is irrelevant at parcel scale.
package geoproj

import "math"

// EarthRadiusM is the WGS84 spherical earth radius in meters.
const EarthRadiusM = 6378137.0

// WebMercatorMaxLat is the latitude beyond which the Mercator projection
// diverges; inputs are clamped to this band.
const WebMercatorMaxLat = 85.05112878

// ToWebMercator projects a WGS84 point (degrees) to Web-Mercator meters.
func ToWebMercator(latitude, longitude float64) (x, y float64) {
	if latitude > WebMercatorMaxLat {
		latitude = WebMercatorMaxLat
	}
	if latitude < -WebMercatorMaxLat {
		latitude = -WebMercatorMaxLat
	}

	x = EarthRadiusM * longitude * math.Pi / 180
	y = EarthRadiusM * math.Log(math.Tan(math.Pi/4+latitude*math.Pi/360))
	return x, y
}

// FromWebMercator is the inverse of ToWebMercator.
func FromWebMercator(x, y float64) (latitude, longitude float64) {
	longitude = x / EarthRadiusM * 180 / math.Pi
	latitude = (2*math.Atan(math.Exp(y/EarthRadiusM)) - math.Pi/2) * 180 / math.Pi
	return latitude, longitude
}
