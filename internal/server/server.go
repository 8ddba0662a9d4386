package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/archive"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/auth"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/config"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/session"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/snapshot"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/stream"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Sessions *session.Manager
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Sessions: session.NewManager(sessionConfig(cfg), snapshotStore(cfg, redisClient), hub, archiver(db)),
	}

	registerRoutes(s)
	return s
}

// snapshotStore prefers redis when available; deployments without redis
// fall back to a local SQLite file. A nil store disables snapshotting but
// never the session engine itself.
func snapshotStore(cfg config.Config, redisClient *redis.Client) snapshot.Store {
	if redisClient != nil {
		return snapshot.NewRedisStore(redisClient)
	}
	store, err := snapshot.OpenSQLiteStore(cfg.SnapshotDir)
	if err != nil {
		log.Printf("sqlite snapshot store unavailable: %v", err)
		return nil
	}
	return store
}

func archiver(db *pgxpool.Pool) session.Archiver {
	if db == nil {
		return nil
	}
	return archive.NewService(db)
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		HorizontalAccuracyMaxM: cfg.HorizontalAccuracyMaxM,
		VerticalAccuracyMaxM:   cfg.VerticalAccuracyMaxM,
		NoiseFloorM:            cfg.NoiseFloorM,
		SplitUnitM:             cfg.SplitUnitM,
		CaloriesPerKm:          cfg.CaloriesPerKm,
		SnapshotInterval:       cfg.SnapshotInterval,
		IncludePartialSplit:    cfg.IncludePartialSplit,
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	session.RegisterRoutes(s.App.Group("/sessions"), s.Sessions, jwtMiddleware)
	if s.DB != nil {
		archive.RegisterRoutes(s.App.Group("/archive"), archive.NewService(s.DB), jwtMiddleware)
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
