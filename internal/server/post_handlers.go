package server

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"

	"snapshare/internal/middleware"
	"snapshare/internal/models"
	"snapshare/internal/service"
	"snapshare/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type postFields struct {
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
	TagList     *[]string `json:"tagList"`
	ImageRef    *string   `json:"imageRef"`
}

type postRequest struct {
	Post postFields `json:"post"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return respondError(c, err)
	}
	viewer, err := s.optionalViewer(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.feed.List(reqCtx(c), service.ListParams{
		PageParams: page,
		Tag:        c.Query("tag"),
		Author:     c.Query("author"),
		Favorited:  c.Query("favorited"),
	}, viewer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// FollowingFeed handles GET /api/posts/feed
func (s *Server) FollowingFeed(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return respondError(c, err)
	}
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.feed.FollowingFeed(reqCtx(c), viewer, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetPost handles GET /api/posts/:slug
func (s *Server) GetPost(c *fiber.Ctx) error {
	viewer, err := s.optionalViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.posts.GetPost(reqCtx(c), viewer, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// CreatePost handles POST /api/posts. The image is either an uploaded
// multipart "image" file or an imageRef in the JSON body.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}

	var (
		in       service.CreatePostInput
		uploaded string
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in, uploaded, err = s.parseUpload(c)
	} else {
		in, err = parseCreateJSON(c)
	}
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.posts.CreatePost(reqCtx(c), viewer, in)
	if err != nil {
		if uploaded != "" {
			if rerr := s.images.Remove(uploaded); rerr != nil {
				middleware.Logger.WarnContext(reqCtx(c), "failed to remove orphaned upload",
					slog.String("image_ref", uploaded), slog.String("error", rerr.Error()))
			}
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

func parseCreateJSON(c *fiber.Ctx) (service.CreatePostInput, error) {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return service.CreatePostInput{}, models.NewValidationError("Invalid request body")
	}
	in := service.CreatePostInput{
		Description: deref(req.Post.Description),
		Location:    deref(req.Post.Location),
		ImageRef:    deref(req.Post.ImageRef),
	}
	if req.Post.TagList != nil {
		in.Tags = *req.Post.TagList
	}
	return in, nil
}

// parseUpload stores the multipart image and returns its reference.
func (s *Server) parseUpload(c *fiber.Ctx) (service.CreatePostInput, string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.CreatePostInput{}, "", models.NewValidationError("Invalid multipart body")
	}
	files := form.File["image"]
	if len(files) == 0 {
		return service.CreatePostInput{}, "", models.NewValidationError("image file is required")
	}
	header := files[0]
	if !imageContentType(header.Header.Get(fiber.HeaderContentType)) {
		return service.CreatePostInput{}, "", models.NewValidationError("image must be an image file")
	}

	ref, err := saveImage(s.images, header)
	if err != nil {
		return service.CreatePostInput{}, "", err
	}

	in := service.CreatePostInput{
		Description:   formValue(form, "description"),
		Location:      formValue(form, "location"),
		Tags:          formTags(form),
		ImageRef:      ref,
		ImageUploaded: true,
	}
	return in, ref, nil
}

// imageContentType accepts image/* and the generic types some clients send
// for any file.
func imageContentType(ct string) bool {
	switch {
	case ct == "", ct == fiber.MIMEOctetStream:
		return true
	default:
		return strings.HasPrefix(ct, "image/")
	}
}

func saveImage(store *storage.DiskStore, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", models.NewValidationError("unreadable image upload")
	}
	defer func() { _ = f.Close() }()

	ref, err := store.Save(header.Filename, f)
	if errors.Is(err, storage.ErrEmptyUpload) {
		return "", models.NewValidationError("image file is empty")
	}
	if err != nil {
		return "", models.NewBackendUnavailableError(err)
	}
	return ref, nil
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// formTags accepts repeated tagList fields and comma separated values.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, v := range form.Value["tagList"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// UpdatePost handles PUT /api/posts/:slug
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.posts.UpdatePost(reqCtx(c), viewer, c.Params("slug"), service.UpdatePostInput{
		Description: req.Post.Description,
		Location:    req.Post.Location,
		ImageRef:    req.Post.ImageRef,
		Tags:        req.Post.TagList,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:slug
func (s *Server) DeletePost(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.posts.DeletePost(reqCtx(c), viewer, c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FavoritePost handles POST /api/posts/:slug/favorite
func (s *Server) FavoritePost(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.favorites.Favorite(reqCtx(c), viewer, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// UnfavoritePost handles DELETE /api/posts/:slug/favorite
func (s *Server) UnfavoritePost(c *fiber.Ctx) error {
	viewer, err := s.requiredViewer(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.favorites.Unfavorite(reqCtx(c), viewer, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.posts.Tags(reqCtx(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}
