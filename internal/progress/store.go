package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"backend-coastpath/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 24 * time.Hour

// Store persists each user's coverage point set per route. Writes are full
// overwrites; the engine's output supersedes whatever was stored before,
// which is what keeps repeated analysis idempotent. A redis read-through
// cache sits in front of postgres and is invalidated on every write.
type Store struct {
	db    db.Querier
	redis *redis.Client
}

func NewStore(db db.Querier, redisClient *redis.Client) *Store {
	return &Store{db: db, redis: redisClient}
}

// Get returns the stored coverage set, or an empty set for a user that has
// never been analyzed. Never-analyzed is a steady state, not an error.
func (s *Store) Get(ctx context.Context, userID, routeID string) ([]orb.Point, error) {
	if cached, ok := s.cacheGet(ctx, userID, routeID); ok {
		return cached, nil
	}

	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT points FROM coverage_sets WHERE user_id=$1 AND route_id=$2
	`, userID, routeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	points, err := decodePoints(raw)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, userID, routeID, raw)
	return points, nil
}

// Set overwrites the stored coverage set.
func (s *Store) Set(ctx context.Context, userID, routeID string, points []orb.Point) error {
	if points == nil {
		points = []orb.Point{}
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO coverage_sets (user_id, route_id, points, updated_at)
		VALUES ($1,$2,$3, now())
		ON CONFLICT (user_id, route_id) DO UPDATE
		SET points=EXCLUDED.points, updated_at=now()
	`, userID, routeID, raw)
	if err != nil {
		return err
	}
	s.cacheSet(ctx, userID, routeID, raw)
	return nil
}

// Reset deletes the stored coverage set entirely. This is the only way
// points are ever removed.
func (s *Store) Reset(ctx context.Context, userID, routeID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM coverage_sets WHERE user_id=$1 AND route_id=$2
	`, userID, routeID)
	if err != nil {
		return err
	}
	s.cacheDel(ctx, userID, routeID)
	return nil
}

func (s *Store) cacheGet(ctx context.Context, userID, routeID string) ([]orb.Point, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, cacheKey(userID, routeID)).Bytes()
	if err != nil {
		return nil, false
	}
	points, err := decodePoints(raw)
	if err != nil {
		return nil, false
	}
	return points, true
}

func (s *Store) cacheSet(ctx context.Context, userID, routeID string, raw []byte) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(userID, routeID), raw, cacheTTL).Err(); err != nil {
		log.Printf("coverage cache set error: %v", err)
	}
}

func (s *Store) cacheDel(ctx context.Context, userID, routeID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(userID, routeID)).Err(); err != nil {
		log.Printf("coverage cache del error: %v", err)
	}
}

func cacheKey(userID, routeID string) string {
	return "coverage:" + userID + ":" + routeID
}

func decodePoints(raw []byte) ([]orb.Point, error) {
	var points []orb.Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, err
	}
	return points, nil
}
