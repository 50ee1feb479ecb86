// Package oauth exposes the federated login flow: listing providers,
// redirecting to a provider's authorization endpoint and handling the
// callback that establishes a session.
package oauth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/controller/user"
	"github.com/authnd/authnd/internal/web/handler"
	"github.com/authnd/authnd/internal/web/session"
)

// Path is the path of the oauth route group.
const Path = "/oauth"

// stateCookie carries the CSRF state between the login redirect and the
// provider callback.
const stateCookie = "oauth_state"

const stateCookieMaxAge = 300

// Service is the oauth handler service.
type Service struct {
	cfg        *config.Config
	registry   *auth.Registry
	reconciler *auth.Reconciler
	directory  *user.Directory
}

// Handler is the oauth handler.
var Handler = Service{}

// Init initializes the oauth handler with the provider registry built at
// startup.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, registry *auth.Registry) error {
	if app == nil || cfg == nil || db == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry
	s.directory = user.NewDirectory(db)
	s.reconciler = auth.NewReconciler(s.directory)

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.List)
		router.Get("/:provider/login", s.Login)
		router.Get("/:provider/auth", s.Callback)
	})

	return nil
}

// List returns the configured provider names.
func (s *Service) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": s.registry.Names()})
}

// Login redirects the caller to the provider's authorization endpoint.
func (s *Service) Login(c *fiber.Ctx) error {
	provider, err := s.registry.Get(c.Params("provider"))
	if err != nil {
		return handler.Error(c, err)
	}

	state, err := auth.GenerateStateToken()
	if err != nil {
		return handler.Error(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   stateCookieMaxAge,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(provider.AuthURL(state), fiber.StatusFound)
}

// Callback handles the provider redirect: code exchange, userinfo fetch,
// backend reconciliation, session. Ends back at the landing page.
func (s *Service) Callback(c *fiber.Ctx) error {
	provider, err := s.registry.Get(c.Params("provider"))
	if err != nil {
		return handler.Error(c, err)
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "state mismatch"})
	}

	c.ClearCookie(stateCookie)

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}

	token, err := provider.Exchange(c.Context(), code)
	if err != nil {
		return handler.Error(c, err)
	}

	info, err := provider.Userinfo(c.Context(), token)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.reconciler.Reconcile(c.Context(), provider.Backend(), provider.Override, *info); err != nil {
		return handler.Error(c, err)
	}

	if err := s.establishSession(c, info.Login); err != nil {
		return handler.Error(c, err)
	}

	log.Info().Str("username", info.Login).Str("provider", provider.Name).
		Msg("federated login")

	return c.Redirect("/", fiber.StatusFound)
}

func (s *Service) establishSession(c *fiber.Ctx, username string) error {
	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return err
	}

	data := session.Data{Username: username}
	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.Webserver.Session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}
