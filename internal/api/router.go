package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/faq-assistant/backend/internal/api/handlers"
	"github.com/faq-assistant/backend/internal/metrics"
	"github.com/faq-assistant/backend/internal/middleware/ratelimit"
	"github.com/faq-assistant/backend/internal/middleware/validation"
)

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	// RateLimiter guards the routes that call the language model. Nil
	// disables limiting.
	RateLimiter *ratelimit.RateLimiter
	AccessLog   bool
}

type Handlers struct {
	Conversations *handlers.ConversationHandler
	Sessions      *handlers.SessionHandler
	Health        *handlers.HealthHandler
}

func NewApp(opts Options, h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		BodyLimit:             opts.BodyLimit,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Middleware()
	}

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1", validation.ContentType())

	api.Post("/questions", limit, h.Conversations.AskQuestion)
	api.Post("/feedback", h.Conversations.SubmitFeedback)
	api.Get("/conversations", h.Conversations.ListConversations)
	api.Get("/conversations/:id", h.Conversations.GetConversation)
	api.Get("/feedback/stats", h.Conversations.GetFeedbackStats)

	api.Get("/sessions/:session_id", h.Sessions.GetSession)
	api.Post("/sessions/:session_id/questions", limit, h.Sessions.AskQuestion)
	api.Post("/sessions/:session_id/feedback", h.Sessions.SubmitFeedback)

	api.Get("/health", h.Health.Health)
	api.Get("/ready", h.Health.Ready)

	return app
}
