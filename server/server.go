// Package server exposes the match-cycle engine over HTTP and pushes lifecycle
// events to clients over a websocket endpoint.
package server

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	arena "pkg.world.dev/arena-engine"
	"pkg.world.dev/arena-engine/server/handler"
)

const defaultPort = "4040"

type Server struct {
	app  *fiber.App
	port string
}

// New constructs the server and mounts every route. Call Serve to start
// listening.
func New(engine *arena.Engine, opts ...Option) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(cors.New())

	s := &Server{
		app:  app,
		port: defaultPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes(engine)
	return s
}

func (s *Server) setupRoutes(engine *arena.Engine) {
	s.app.Get("/health", handler.GetHealth(engine))
	s.app.Get("/state", handler.GetState(engine))

	session := s.app.Group("/session")
	session.Post("", handler.PostConnect(engine))
	session.Post("/:id/handle", handler.PostClaimHandle(engine))
	session.Post("/:id/queue", handler.PostJoinQueue(engine))
	session.Delete("/:id", handler.DeleteSession(engine))

	s.app.Post("/match/result", handler.PostMatchResult(engine))
	s.app.Post("/admin/reset", handler.PostReset(engine))

	// The events endpoint upgrades to a websocket and streams every flushed
	// lifecycle event until the peer goes away.
	s.app.Use("/events", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/events", websocket.New(engine.Hub().NewWebSocketEventHandler()))
}

// Serve blocks until Shutdown is called or the listener fails.
func (s *Server) Serve() error {
	log.Info().Str("port", s.port).Msg("serving arena http endpoints")
	if err := s.app.Listen(":" + s.port); err != nil {
		return eris.Wrap(err, "server stopped")
	}
	return nil
}

// Shutdown gracefully stops the listener, letting in-flight requests finish.
func (s *Server) Shutdown() error {
	return eris.Wrap(s.app.Shutdown(), "failed to shut the server down")
}
