package server

import (
	"snapshare/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListComments handles GET /api/posts/:slug/comments
func (s *Server) ListComments(c *fiber.Ctx) error {
	viewer, err := s.optionalViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	comments, err := s.comments.ListComments(reqCtx(c), viewer, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// AddComment handles POST /api/posts/:slug/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.comments.AddComment(reqCtx(c), viewer, c.Params("slug"), req.Comment.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /api/posts/:slug/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "commentId")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.comments.DeleteComment(reqCtx(c), viewer, c.Params("slug"), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
