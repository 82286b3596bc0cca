package server

import (
	"context"
	"log/slog"
	"strconv"

	"snapshare/internal/middleware"
	"snapshare/internal/models"
	"snapshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeConflict, models.CodeInconsistency:
		return fiber.StatusConflict
	case models.CodeBackendUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as {error, code}. Errors without a code are
// reported as internal and logged.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if models.ErrorCode(err) == "" {
		middleware.Logger.ErrorContext(reqCtx(c), "unclassified handler error", slog.String("error", err.Error()))
		err = models.NewInternalError(err)
	}
	if models.IsRetryable(err) {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return models.RespondWithError(c, status, err)
}

// reqCtx returns the request context with ids from the auth middleware attached.
func reqCtx(c *fiber.Ctx) context.Context {
	return middleware.RequestContext(c)
}

// parsePagination reads limit and offset. Missing parameters take the
// defaults; malformed ones are rejected.
func parsePagination(c *fiber.Ctx) (service.PageParams, error) {
	var page service.PageParams
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("limit must be an integer")
		}
		page.Limit = n
		page.LimitSet = true
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("offset must be an integer")
		}
		page.Offset = n
	}
	return page, nil
}

// parseID extracts a route parameter by name as a positive uint.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("invalid " + param)
	}
	return uint(id), nil
}

func (s *Server) optionalViewer(c *fiber.Ctx) (service.Viewer, error) {
	id, ok := middleware.UserID(c)
	return s.identity.Optional(reqCtx(c), id, ok)
}

func (s *Server) requiredViewer(c *fiber.Ctx) (service.Viewer, error) {
	id, ok := middleware.UserID(c)
	return s.identity.Required(reqCtx(c), id, ok)
}
