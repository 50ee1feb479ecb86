// Package web wires the HTTP surface: the fiber app, access logging, the
// liveness probe and the API handlers.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/config"
	fiberlogger "github.com/authnd/authnd/internal/logger/adapter/fiber"
	"github.com/authnd/authnd/internal/web/handler"
	"github.com/authnd/authnd/internal/web/handler/authenticate"
	"github.com/authnd/authnd/internal/web/handler/credentials"
	"github.com/authnd/authnd/internal/web/handler/oauth"
	"github.com/authnd/authnd/internal/web/handler/users"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail the liveness probe first so
	// the load balancer drains this instance before the listener stops.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let the LB remove this instance from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration. The provider
// registry is built by the daemon, which owns the startup network calls.
func New(cfg *config.Config, db *gorm.DB, registry *auth.Registry) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: handler.CheckAliveURI,
	}))

	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}

	service.alive.Store(true)

	app.Get(handler.CheckAliveURI, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	// init handlers (they register their own routes)
	if err := authenticate.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init authenticate handler")
	}

	if err := credentials.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init credentials handler")
	}

	if err := users.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init users handler")
	}

	if registry != nil {
		if err := oauth.Handler.Init(app, cfg, db, registry); err != nil {
			log.Fatal().Err(err).Msg("failed to init oauth handler")
		}
	}

	// landing surface logins redirect back to
	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"title": cfg.Title})
	})

	return service
}
