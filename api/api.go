package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/utils"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *utils.Logger
}

func NewAPIServer(listenAddress string, cfg fiber.Config, log *utils.Logger) *APIServer {
	if log == nil {
		log = utils.NopLogger()
	}
	if cfg.AppName == "" {
		cfg.AppName = "ai-course-generator"
	}
	// generation requests wait on the model, sometimes for minutes
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	return &APIServer{
		app:           fiber.New(cfg),
		listenAddress: listenAddress,
		log:           log,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	return s.app.ShutdownWithContext(ctx)
}
