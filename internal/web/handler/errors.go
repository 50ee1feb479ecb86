package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/db/controller/credential"
	"github.com/authnd/authnd/internal/db/controller/user"
	"github.com/authnd/authnd/internal/db/store"
)

// Error maps a domain error onto the HTTP boundary. Authentication failures
// collapse into 401 without revealing which check failed; a backend mismatch
// keeps its admin-contact message so the caller knows the account needs
// attention.
func Error(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, credential.ErrCredentialInvalid),
		errors.Is(err, user.ErrInvalidPassword),
		errors.Is(err, auth.ErrInvalidLDAPCredentials):
		return fail(c, fiber.StatusUnauthorized, "unauthenticated")

	case errors.Is(err, auth.ErrBackendMismatch):
		return fail(c, fiber.StatusUnauthorized, err.Error())

	case errors.Is(err, auth.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "forbidden")

	case errors.Is(err, credential.ErrCredentialNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, auth.ErrUnknownProvider),
		errors.Is(err, store.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "resource not found")

	case errors.Is(err, user.ErrUserExists),
		errors.Is(err, store.ErrConflict):
		return fail(c, fiber.StatusConflict, err.Error())

	case errors.Is(err, store.ErrFieldNotAllowed),
		errors.Is(err, store.ErrSortNotAllowed),
		errors.Is(err, store.ErrInvalidPagination),
		errors.As(err, &validationErrors):
		return fail(c, fiber.StatusBadRequest, err.Error())

	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled handler error")

		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
