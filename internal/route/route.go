package route

import (
	"errors"

	"backend-coastpath/internal/shared/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidRouteData is returned when a route definition yields no usable
// 2D line coordinates.
var ErrInvalidRouteData = errors.New("route definition has no usable line coordinates")

// Ref is the session reference route: one continuous polyline in [lon,lat]
// order plus its total length. It is built once and shared read-only.
type Ref struct {
	Line    orb.LineString
	TotalKm float64
}

// Load parses a GeoJSON route definition into a Ref. It accepts a
// FeatureCollection, a single Feature, or a bare Geometry, collects every
// LineString and MultiLineString in input order and concatenates them into
// one line. Decoding is strictly 2D: any elevation component in the source
// coordinates is discarded, so it can never leak into length or proximity
// math.
func Load(raw []byte) (Ref, error) {
	geoms, err := lineGeometries(raw)
	if err != nil {
		return Ref{}, ErrInvalidRouteData
	}

	var line orb.LineString
	for _, g := range geoms {
		switch ls := g.(type) {
		case orb.LineString:
			line = append(line, ls...)
		case orb.MultiLineString:
			for _, part := range ls {
				line = append(line, part...)
			}
		}
	}

	if len(line) < 2 {
		return Ref{}, ErrInvalidRouteData
	}

	return Ref{
		Line:    line,
		TotalKm: geo.LineLengthKm(line),
	}, nil
}

func lineGeometries(raw []byte) ([]orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil {
		var geoms []orb.Geometry
		for _, f := range fc.Features {
			if f != nil && f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
		return geoms, nil
	}
	if f, err := geojson.UnmarshalFeature(raw); err == nil && f.Geometry != nil {
		return []orb.Geometry{f.Geometry}, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return []orb.Geometry{g.Geometry()}, nil
}
