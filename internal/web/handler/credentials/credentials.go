// Package credentials exposes the bearer credential API. All routes are
// scoped to an owner: callers manage their own credentials through the
// "_self" alias, admins may manage anyone's.
package credentials

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/controller/credential"
	"github.com/authnd/authnd/internal/db/controller/user"
	"github.com/authnd/authnd/internal/web/handler"
)

// Path is the path of the credentials collection, scoped to the owning user.
const Path = "/api/v1/users/:user_id/credentials"

// Service is the credentials handler service.
type Service struct {
	cfg         *config.Config
	resolver    *auth.Resolver
	directory   *user.Directory
	credentials *credential.Store
}

// Handler is the credentials handler.
var Handler = Service{}

// Init initializes the credentials handler.
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
		router.Delete(handler.RootPath, s.DeleteAll)
		router.Get("/:id", s.Get)
		router.Patch("/:id", s.Update)
		router.Delete("/:id", s.Delete)
	})

	return nil
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// owner resolves the :user_id segment against the caller's identity. The
// "_self" alias and the caller's own id pass for everyone; any other target
// requires admin and must exist in the directory.
func (s *Service) owner(c *fiber.Ctx) (string, error) {
	identity, err := s.resolver.RequireUser(c)
	if err != nil {
		return "", err
	}

	target := c.Params("user_id")
	if target == handler.SelfAlias || target == identity.ID {
		return identity.ID, nil
	}

	if !identity.Admin {
		return "", auth.ErrForbidden
	}

	if err := s.directory.Exists(c.Context(), target); err != nil {
		return "", err
	}

	return target, nil
}

// List returns a page of the owner's credentials.
func (s *Service) List(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	q, err := handler.ParseQuery(c)
	if err != nil {
		return handler.Error(c, err)
	}

	rows, total, err := s.credentials.Search(c.Context(), owner, q)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(fiber.Map{"data": rows, "total": total})
}

// Create issues a new credential. The response is the only place the
// plaintext secret ever appears.
func (s *Service) Create(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	req := new(descriptionRequest)
	if err := c.BodyParser(req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	issued, err := s.credentials.Create(c.Context(), owner, req.Description)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(issued)
}

// Get returns a single credential of the owner.
func (s *Service) Get(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	q, err := handler.ParseQuery(c)
	if err != nil {
		return handler.Error(c, err)
	}

	cred, err := s.credentials.Get(c.Context(), c.Params("id"), owner, q.Fields)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(cred)
}

// Update changes a credential's description. The secret never rotates here.
func (s *Service) Update(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	req := new(descriptionRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	cred, err := s.credentials.Update(c.Context(), c.Params("id"), owner, req.Description, nil)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(cred)
}

// Delete revokes a single credential of the owner.
func (s *Service) Delete(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.credentials.Delete(c.Context(), c.Params("id"), owner); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAll revokes every credential of the owner. Succeeds when there is
// nothing to revoke.
func (s *Service) DeleteAll(c *fiber.Ctx) error {
	owner, err := s.owner(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.credentials.DeleteAllForOwner(c.Context(), owner); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
