package server

import (
	"log"
	"os"

	"backend-coastpath/internal/activity"
	"backend-coastpath/internal/auth"
	"backend-coastpath/internal/config"
	"backend-coastpath/internal/coverage"
	"backend-coastpath/internal/progress"
	"backend-coastpath/internal/route"
	"backend-coastpath/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Engine *coverage.Engine
	Worker *coverage.Worker
}

var readRouteFileFn = os.ReadFile

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	engine := coverage.NewEngine()
	loadReferenceRoute(cfg, engine)

	worker := coverage.NewWorker(engine, hub)
	worker.Start()

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: hub,
		Engine: engine,
		Worker: worker,
	}

	registerRoutes(s)
	return s
}

// loadReferenceRoute reads the trail geometry at startup. A missing or
// invalid file leaves the engine not ready; coverage endpoints report
// unavailable until a valid route is loaded, the rest of the API serves.
func loadReferenceRoute(cfg config.Config, engine *coverage.Engine) {
	raw, err := readRouteFileFn(cfg.RouteFile)
	if err != nil {
		log.Printf("route file %s unavailable: %v", cfg.RouteFile, err)
		return
	}
	ref, err := route.Load(raw)
	if err != nil {
		log.Printf("route file %s invalid: %v", cfg.RouteFile, err)
		return
	}
	if cfg.RouteLengthKm > 0 {
		ref.TotalKm = cfg.RouteLengthKm
	}
	engine.Init(ref)
	log.Printf("loaded route %q: %.1f km", cfg.RouteName, ref.TotalKm)
}

// Stop shuts down background work owned by the server.
func (s *Server) Stop() {
	if s.Worker != nil {
		s.Worker.Stop()
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"route_ready": s.Engine.Ready(),
		})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	activitySvc := activity.NewService(s.DB)
	progressStore := progress.NewStore(s.DB, s.Redis)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	route.RegisterRoutes(s.App.Group("/routes"), route.NewService(s.DB), jwtMiddleware)
	activity.RegisterRoutes(s.App.Group("/activities"), activitySvc, jwtMiddleware)
	coverage.RegisterRoutes(s.App.Group("/coverage"), s.Worker, activitySvc, progressStore, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
