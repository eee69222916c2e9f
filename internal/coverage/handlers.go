package coverage

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
)

// TraceSource yields the recorded GPS trace for an activity, already
// normalized to [lon,lat] order.
type TraceSource interface {
	Trace(ctx context.Context, activityID string) ([]orb.Point, error)
}

// Store is the durable coverage point store, keyed by user and route.
type Store interface {
	Get(ctx context.Context, userID, routeID string) ([]orb.Point, error)
	Set(ctx context.Context, userID, routeID string, points []orb.Point) error
	Reset(ctx context.Context, userID, routeID string) error
}

type analyzeResponse struct {
	ActivityID     string    `json:"activity_id,omitempty"`
	Segments       []Segment `json:"segments"`
	TotalKm        float64   `json:"total_km"`
	Percent        float64   `json:"percent"`
	PercentDisplay string    `json:"percent_display"`
	PointCount     int       `json:"point_count"`
}

func RegisterRoutes(r fiber.Router, worker *Worker, traces TraceSource, store Store, authMiddleware fiber.Handler) {
	r.Post("/analyze", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			ActivityID string `json:"activity_id"`
			RouteID    string `json:"route_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ActivityID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "activity_id required")
		}
		userID, _ := c.Locals("user_id").(string)

		trace, err := traces.Trace(c.Context(), req.ActivityID)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "activity trace not found")
		}
		prior, err := store.Get(c.Context(), userID, req.RouteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		result, err := worker.Submit(c.Context(), Request{
			ActivityID: req.ActivityID,
			Trace:      trace,
			Prior:      prior,
		})
		if err != nil {
			return analyzeError(err)
		}

		// Full overwrite keeps re-analysis idempotent.
		if err := store.Set(c.Context(), userID, req.RouteID, result.Points); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(analyzeResponse{
			ActivityID:     req.ActivityID,
			Segments:       result.Segments,
			TotalKm:        result.TotalKm,
			Percent:        result.Percent,
			PercentDisplay: result.PercentDisplay,
			PointCount:     len(result.Points),
		})
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		routeID := c.Query("route_id")

		prior, err := store.Get(c.Context(), userID, routeID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		// Recompute-only request: no trace, no matching.
		result, err := worker.Submit(c.Context(), Request{Prior: prior})
		if err != nil {
			return analyzeError(err)
		}

		return c.JSON(analyzeResponse{
			Segments:       result.Segments,
			TotalKm:        result.TotalKm,
			Percent:        result.Percent,
			PercentDisplay: result.PercentDisplay,
			PointCount:     len(result.Points),
		})
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if err := store.Reset(c.Context(), userID, c.Query("route_id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func analyzeError(err error) error {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrWorkerStopped):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
