package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// lat/lon pairs in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceM returns the distance in meters between two [lon,lat] points.
func DistanceM(a, b orb.Point) float64 {
	return HaversineKm(a.Lat(), a.Lon(), b.Lat(), b.Lon()) * 1000
}

// LineLengthKm returns the length of a polyline in kilometers.
func LineLengthKm(ls orb.LineString) float64 {
	var km float64
	for i := 1; i < len(ls); i++ {
		km += HaversineKm(ls[i-1].Lat(), ls[i-1].Lon(), ls[i].Lat(), ls[i].Lon())
	}
	return km
}

// PointAtDistanceM returns the point at distance d meters along the line,
// measured from its start. Distances past either end clamp to the endpoints.
func PointAtDistanceM(ls orb.LineString, d float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if d <= 0 || len(ls) == 1 {
		return ls[0]
	}

	var walked float64
	for i := 1; i < len(ls); i++ {
		seg := DistanceM(ls[i-1], ls[i])
		if walked+seg >= d && seg > 0 {
			t := (d - walked) / seg
			return orb.Point{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}
		}
		walked += seg
	}
	return ls[len(ls)-1]
}

// NearestOnLine snaps p to the closest point on ls. It returns the snapped
// point, the snap distance in meters, and the distance in kilometers from the
// start of ls to the snapped point. ok is false when ls has fewer than two
// points or the computation produced a non-finite result.
func NearestOnLine(ls orb.LineString, p orb.Point) (snapped orb.Point, distM float64, prefixKm float64, ok bool) {
	if len(ls) < 2 {
		return orb.Point{}, 0, 0, false
	}

	best := math.Inf(1)
	var bestPoint orb.Point
	var bestPrefixM float64
	var walkedM float64

	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		segM := DistanceM(a, b)

		candidate := a
		offsetM := 0.0
		if segM > 0 {
			t := projectFraction(p, a, b)
			candidate = orb.Point{
				a[0] + t*(b[0]-a[0]),
				a[1] + t*(b[1]-a[1]),
			}
			offsetM = t * segM
		}

		d := DistanceM(p, candidate)
		if d < best {
			best = d
			bestPoint = candidate
			bestPrefixM = walkedM + offsetM
		}
		walkedM += segM
	}

	if !isFinite(best) || !isFinite(bestPrefixM) ||
		!isFinite(bestPoint[0]) || !isFinite(bestPoint[1]) {
		return orb.Point{}, 0, 0, false
	}
	return bestPoint, best, bestPrefixM / 1000, true
}

// projectFraction returns where p falls along segment a-b as a fraction in
// [0,1], using a local equirectangular frame. Longitudes are scaled by the
// cosine of the segment's mean latitude so the projection is not distorted at
// high latitudes; the degree scale cancels out of the ratio.
func projectFraction(p, a, b orb.Point) float64 {
	cosLat := math.Cos((a.Lat() + b.Lat()) / 2 * math.Pi / 180)
	vx := (b[0] - a[0]) * cosLat
	vy := b[1] - a[1]
	wx := (p[0] - a[0]) * cosLat
	wy := p[1] - a[1]

	lenSq := vx*vx + vy*vy
	if lenSq == 0 {
		return 0
	}
	t := (wx*vx + wy*vy) / lenSq
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
