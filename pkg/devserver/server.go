package devserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Server emulates the panel's /api/ai endpoints.
type Server struct {
	config Config
	store  *store
	logger *slog.Logger
	app    *fiber.App
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new dev server.
func NewServer(config Config, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  newStore(),
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	ai := app.Group("/api/ai", s.requireToken)
	ai.Get("/config", s.handleGetConfig)
	ai.Get("/conversations", s.handleListConversations)
	ai.Get("/conversations/:id", s.handleGetConversation)
	ai.Delete("/conversations/:id", s.handleDeleteConversation)
	ai.Post("/chat", s.handleChat)

	return s
}

// Handler exposes the server as a net/http handler. Responses are buffered
// in full, so streamed replies arrive in one piece.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Run starts the dev server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting dev server",
		"listen", s.config.ListenAddr,
		"auth", s.config.Token != "",
		"configured", s.config.APIKey != "",
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the dev server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requireToken rejects requests without the configured bearer token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	if s.config.Token == "" {
		return c.Next()
	}

	auth := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token != s.config.Token {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized"})
	}
	return c.Next()
}
