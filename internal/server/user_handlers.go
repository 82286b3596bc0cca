package server

import (
	"snapshare/internal/models"
	"snapshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.auth.Register(reqCtx(c), service.RegisterInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.auth.Login(reqCtx(c), req.User.Email, req.User.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// CurrentUser handles GET /api/user
func (s *Server) CurrentUser(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.auth.Current(viewer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetProfile handles GET /api/profiles/:username
func (s *Server) GetProfile(c *fiber.Ctx) error {
	viewer, err := s.optionalViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	profile, err := s.profiles.GetProfile(reqCtx(c), viewer, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// FollowUser handles POST /api/profiles/:username/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	profile, err := s.profiles.Follow(reqCtx(c), viewer, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// UnfollowUser handles DELETE /api/profiles/:username/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	profile, err := s.profiles.Unfollow(reqCtx(c), viewer, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}
