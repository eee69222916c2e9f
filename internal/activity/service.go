package activity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-coastpath/internal/db"
	"backend-coastpath/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/tkrajina/gpxgo/gpx"
)

// ErrNoTrackPoints is returned for GPX uploads with no usable track points.
var ErrNoTrackPoints = errors.New("gpx file has no track points")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Create stores an activity and its trace. The trace is normalized to
// [lon,lat] here and persisted 2D only; elevation and timestamps feed the
// stored stats and are then dropped.
func (s *Service) Create(ctx context.Context, input Activity, points []PointInput) (Activity, error) {
	input.ID = uuid.NewString()
	if input.Source == "" {
		input.Source = "upload"
	}

	trace := make([]orb.Point, len(points))
	for i, p := range points {
		trace[i] = orb.Point{p.Lng, p.Lat}
	}

	input.DistanceKm, input.ElevationGainM, input.DurationSec = deriveStats(points)
	if input.RecordedAt.IsZero() {
		if len(points) > 0 && !points[0].RecordedAt.IsZero() {
			input.RecordedAt = points[0].RecordedAt
		} else {
			input.RecordedAt = time.Now()
		}
	}

	raw, err := json.Marshal(trace)
	if err != nil {
		return Activity{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO activities (id, user_id, name, source, distance_km, elevation_gain_m, duration_sec, recorded_at, trace)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.Source, input.DistanceKm,
		input.ElevationGainM, input.DurationSec, input.RecordedAt, raw)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Activity{}, err
	}
	return input, nil
}

// CreateFromGPX parses a GPX payload and stores it as an activity. Points
// from every track and segment are taken in document order.
func (s *Service) CreateFromGPX(ctx context.Context, userID, name string, raw []byte) (Activity, error) {
	doc, err := gpx.ParseBytes(raw)
	if err != nil {
		return Activity{}, err
	}

	var points []PointInput
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				point := PointInput{
					Lat:        p.Latitude,
					Lng:        p.Longitude,
					RecordedAt: p.Timestamp,
				}
				if p.Elevation.NotNull() {
					point.ElevationM = p.Elevation.Value()
				}
				points = append(points, point)
			}
		}
	}
	if len(points) == 0 {
		return Activity{}, ErrNoTrackPoints
	}

	if name == "" {
		name = doc.Name
	}
	return s.Create(ctx, Activity{UserID: userID, Name: name, Source: "gpx"}, points)
}

func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, source, distance_km, elevation_gain_m, duration_sec, recorded_at, created_at
		FROM activities WHERE id=$1
	`, id)
	var a Activity
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Source, &a.DistanceKm,
		&a.ElevationGainM, &a.DurationSec, &a.RecordedAt, &a.CreatedAt); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Trace returns an activity's stored [lon,lat] trace.
func (s *Service) Trace(ctx context.Context, id string) ([]orb.Point, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, `SELECT trace FROM activities WHERE id=$1`, id).Scan(&raw); err != nil {
		return nil, err
	}
	var trace []orb.Point
	if err := json.Unmarshal(raw, &trace); err != nil {
		return nil, err
	}
	return trace, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Activity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, source, distance_km, elevation_gain_m, duration_sec, recorded_at, created_at
		FROM activities WHERE user_id=$1
		ORDER BY recorded_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Source, &a.DistanceKm,
			&a.ElevationGainM, &a.DurationSec, &a.RecordedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func (s *Service) UserStats(ctx context.Context, userID string) (Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance_km),0), COALESCE(SUM(elevation_gain_m),0), COALESCE(SUM(duration_sec),0)
		FROM activities WHERE user_id=$1
	`, userID)
	var stats Stats
	if err := row.Scan(&stats.ActivityCount, &stats.TotalDistanceKm,
		&stats.TotalElevationGainM, &stats.TotalDurationSec); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func deriveStats(points []PointInput) (distanceKm, elevationGainM float64, durationSec int64) {
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		distanceKm += geo.HaversineKm(prev.Lat, prev.Lng, curr.Lat, curr.Lng)
		if curr.ElevationM > prev.ElevationM {
			elevationGainM += curr.ElevationM - prev.ElevationM
		}
	}
	if len(points) >= 2 {
		first, last := points[0].RecordedAt, points[len(points)-1].RecordedAt
		if !first.IsZero() && !last.IsZero() && last.After(first) {
			durationSec = int64(last.Sub(first).Seconds())
		}
	}
	return distanceKm, elevationGainM, durationSec
}
