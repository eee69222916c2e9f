package activity

import "time"

type Activity struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Source         string    `json:"source"`
	DistanceKm     float64   `json:"distance_km"`
	ElevationGainM float64   `json:"elevation_gain_m"`
	DurationSec    int64     `json:"duration_sec"`
	RecordedAt     time.Time `json:"recorded_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// PointInput is how providers deliver trace points: lat/lng named fields, so
// axis order is unambiguous at the boundary. Internally everything is
// [lon,lat].
type PointInput struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ElevationM float64   `json:"elevation_m"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Stats struct {
	ActivityCount       int     `json:"activity_count"`
	TotalDistanceKm     float64 `json:"total_distance_km"`
	TotalElevationGainM float64 `json:"total_elevation_gain_m"`
	TotalDurationSec    int64   `json:"total_duration_sec"`
}
