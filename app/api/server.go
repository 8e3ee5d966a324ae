package api

import (
	"context"
	"log/slog"
	"time"

	"examprep/app/config"
	"examprep/app/service/examgen"
	"examprep/app/service/ingest"
	"examprep/app/service/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const shutdownTimeout = 10 * time.Second

var _ do.Shutdownable = (*Server)(nil)

type Server struct {
	appCtx     context.Context
	cfg        *config.Config
	app        *fiber.App
	sessionSvc *session.Service
	ingestSvc  *ingest.Service
	examSvc    *examgen.Service
}

func New(di *do.Injector) (*Server, error) {
	return NewWith(
		do.MustInvoke[context.Context](di),
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*ingest.Service](di),
		do.MustInvoke[*examgen.Service](di),
	), nil
}

func NewWith(
	appCtx context.Context,
	cfg *config.Config,
	sessionSvc *session.Service,
	ingestSvc *ingest.Service,
	examSvc *examgen.Service,
) *Server {
	s := &Server{
		appCtx:     appCtx,
		cfg:        cfg,
		sessionSvc: sessionSvc,
		ingestSvc:  ingestSvc,
		examSvc:    examSvc,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "examprep",
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CorsOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.welcome)
	s.app.Get("/healthz", s.health)

	s.app.Post("/upload-documents", s.uploadDocuments)
	s.app.Post("/generate-exam", s.generateExam)
	s.app.Post("/generate-questions", s.generateQuestions)

	sessions := s.app.Group("/api/sessions")
	sessions.Post("/", s.createSession)
	sessions.Get("/:id", s.getSession)
	sessions.Delete("/:id", s.deleteSession)
	sessions.Post("/:id/documents", s.uploadToSession)
	sessions.Post("/:id/questions", s.askQuestion)
	sessions.Put("/:id/draft", s.saveDraft)
	sessions.Post("/:id/exam", s.requestExam)
	sessions.Post("/:id/clear", s.clearChat)
	sessions.Post("/:id/reset", s.resetSession)

	if s.cfg.MCP.Enabled {
		handler := server.NewStreamableHTTPServer(s.newMCPServer(), server.WithStateLess(true))
		s.app.All("/mcp", adaptor.HTTPHandler(handler))
	}
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.cfg.Server.Listen)

	return s.app.Listen(s.cfg.Server.Listen)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

func (s *Server) welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the examprep API!"})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"sessions":       s.sessionSvc.Count(),
		"llm_configured": s.cfg.LLM.Configured(),
	})
}
