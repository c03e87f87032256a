package track

import "math"

// earthRadiusKm is the mean radius used for ranges.
const earthRadiusKm = 6367.0

// Haversine returns the great circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Bearing returns the initial bearing from the first point to the second,
// in degrees [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dLon := radians(lon2 - lon1)
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	deg := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	return deg
}

var cardinals = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Cardinal maps a bearing to one of eight 45 degree sectors centred on
// the compass points.
func Cardinal(bearing float64) string {
	b := math.Mod(math.Mod(bearing, 360)+360, 360)
	return cardinals[int((b+22.5)/45)%len(cardinals)]
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
