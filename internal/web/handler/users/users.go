// Package users exposes the admin account management API. Deleting an
// account tears down its credentials with it, so no orphaned secrets keep
// authenticating a removed user.
package users

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
)

// Path is the path of the users collection.
const Path = "/api/v1/users"

var validate = validator.New()

// Service is the users handler service.
type Service struct {
	cfg         *config.Config
	resolver    *auth.Resolver
	directory   *user.Directory
	credentials *credential.Store
}

// Handler is the users handler.
var Handler = Service{}

// Init initializes the users handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.directory = user.NewDirectory(db)
	s.credentials = credential.NewStore(db, cfg.Security)
	s.resolver = auth.NewResolver(s.directory, s.credentials, cfg.Webserver.Session.CookieName)

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.List)
		router.Post(handler.RootPath, s.Create)
		router.Get("/:username", s.Get)
		router.Patch("/:username", s.Patch)
		router.Delete("/:username", s.Delete)
	})

	return nil
}

type patchRequest struct {
	Password string `json:"password" validate:"required"`
}

type createRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Name     string `json:"name"`
	Password string `json:"password" validate:"required"`
	Admin    bool   `json:"admin"`
}

// List returns a page of directory records.
func (s *Service) List(c *fiber.Ctx) error {
	if _, err := s.resolver.RequireAdmin(c); err != nil {
		return handler.Error(c, err)
	}

	q, err := handler.ParseQuery(c)
	if err != nil {
		return handler.Error(c, err)
	}

	rows, total, err := s.directory.Search(c.Context(), q)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(fiber.Map{"data": rows, "total": total})
}

// Create adds a local account.
func (s *Service) Create(c *fiber.Ctx) error {
	if _, err := s.resolver.RequireAdmin(c); err != nil {
		return handler.Error(c, err)
	}

	req := new(createRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(req); err != nil {
		return handler.Error(c, err)
	}

	created, err := s.directory.Create(c.Context(), req.Username, req.Email, req.Name, req.Password, req.Admin)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// Get returns a single directory record.
func (s *Service) Get(c *fiber.Ctx) error {
	if _, err := s.resolver.RequireAdmin(c); err != nil {
		return handler.Error(c, err)
	}

	q, err := handler.ParseQuery(c)
	if err != nil {
		return handler.Error(c, err)
	}

	u, err := s.directory.Get(c.Context(), c.Params("username"), q.Fields)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(u)
}

// Patch resets the local password of an account. Accounts homed on a
// federated or ldap backend carry no local password, so the reset is
// refused for them.
func (s *Service) Patch(c *fiber.Ctx) error {
	identity, err := s.resolver.RequireAdmin(c)
	if err != nil {
		return handler.Error(c, err)
	}

	req := new(patchRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := validate.Struct(req); err != nil {
		return handler.Error(c, err)
	}

	username := c.Params("username")

	u, err := s.directory.Get(c.Context(), username, []string{"username", "backend"})
	if err != nil {
		return handler.Error(c, err)
	}

	if models.IsOAuthBackend(u.Backend) || u.Backend == models.BackendLDAP {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account does not use local authentication"})
	}

	if err := s.directory.SetPassword(c.Context(), username, req.Password); err != nil {
		return handler.Error(c, err)
	}

	log.Info().Str("actor", identity.ID).Str("username", username).Msg("password reset")

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes an account and revokes all of its credentials.
func (s *Service) Delete(c *fiber.Ctx) error {
	identity, err := s.resolver.RequireAdmin(c)
	if err != nil {
		return handler.Error(c, err)
	}

	username := c.Params("username")

	if err := s.directory.Delete(c.Context(), username); err != nil {
		return handler.Error(c, err)
	}

	if err := s.credentials.DeleteAllForOwner(c.Context(), username); err != nil {
		return handler.Error(c, err)
	}

	log.Info().Str("actor", identity.ID).Str("username", username).Msg("account deleted")

	return c.SendStatus(fiber.StatusNoContent)
}
