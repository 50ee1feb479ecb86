// Package authenticate exposes the login surface: reading the resolved
// identity, establishing a session from a local or LDAP password check and
// clearing it again.
package authenticate

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/controller/credential"
	"github.com/authnd/authnd/internal/db/controller/user"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/web/handler"
	"github.com/authnd/authnd/internal/web/session"
)

// Path is the path of the authenticate endpoint.
const Path = "/api/v1/authenticate"

// Auth method names accepted in login requests.
const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

var (
	// ErrLDAPAuthDisabled is returned when an ldap login is requested but the
	// directory client is not configured.
	ErrLDAPAuthDisabled = errors.New("ldap authentication is disabled")
)

var validate = validator.New()

// Service is the authenticate handler service.
type Service struct {
	cfg        *config.Config
	resolver   *auth.Resolver
	directory  *user.Directory
	reconciler *auth.Reconciler
	ldapAuth   *auth.LDAPProvider
}

// Handler is the authenticate handler.
var Handler = Service{}

// Init initializes the authenticate handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.directory = user.NewDirectory(db)
	s.reconciler = auth.NewReconciler(s.directory)
	s.resolver = auth.NewResolver(
		s.directory,
		credential.NewStore(db, cfg.Security),
		cfg.Webserver.Session.CookieName,
	)

	if cfg.LDAP.Enabled {
		ldapAuth, err := auth.NewLDAPProvider(cfg.LDAP)
		if err != nil {
			return err
		}

		s.ldapAuth = ldapAuth
	}

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.Get)
		router.Post(handler.RootPath, s.Post)
		router.Delete(handler.RootPath, s.Delete)
	})

	return nil
}

type loginRequest struct {
	Username string `json:"username"  validate:"required"`
	Password string `json:"password"  validate:"required"`
	AuthType string `json:"auth_type" validate:"omitempty,oneof=local ldap"`
}

// Get returns the identity resolved for the request.
func (s *Service) Get(c *fiber.Ctx) error {
	identity, err := s.resolver.RequireUser(c)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(identity)
}

// Post verifies a username/password pair and establishes a session.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(loginRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(req); err != nil {
		return handler.Error(c, err)
	}

	username, err := s.authenticate(c, req)
	if errors.Is(err, ErrLDAPAuthDisabled) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.establishSession(c, username); err != nil {
		return handler.Error(c, err)
	}

	identity, err := s.directory.GetIdentity(c.Context(), username)
	if err != nil {
		return handler.Error(c, err)
	}

	log.Info().Str("username", username).Msg("session established")

	return c.JSON(identity)
}

// Delete clears the caller's session.
func (s *Service) Delete(c *fiber.Ctx) error {
	cookieName := s.cfg.Webserver.Session.CookieName

	if token := c.Cookies(cookieName); token != "" {
		if err := session.Clear(token); err != nil {
			return handler.Error(c, err)
		}
	}

	c.ClearCookie(cookieName)

	return c.SendStatus(fiber.StatusNoContent)
}

// authenticate runs the requested password check and returns the resolved
// username. LDAP logins reconcile the account's backend tag first.
func (s *Service) authenticate(c *fiber.Ctx, req *loginRequest) (string, error) {
	authType := req.AuthType
	if authType == "" {
		authType = AuthTypeLocal
	}

	if authType == AuthTypeLocal {
		return s.directory.CheckLocalCredentials(c.Context(), req.Username, req.Password)
	}

	if s.ldapAuth == nil {
		return "", ErrLDAPAuthDisabled
	}

	info, err := s.ldapAuth.Authenticate(req.Username, req.Password)
	if err != nil {
		return "", err
	}

	if err := s.reconciler.Reconcile(c.Context(), models.BackendLDAP, s.cfg.LDAP.Override, *info); err != nil {
		return "", err
	}

	return info.Login, nil
}

// establishSession binds username to a fresh token and sets the cookie.
func (s *Service) establishSession(c *fiber.Ctx, username string) error {
	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return err
	}

	data := session.Data{Username: username}
	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		return err
	}

	cookie := &fiber.Cookie{
		Name:     s.cfg.Webserver.Session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	c.Cookie(cookie)

	return nil
}
