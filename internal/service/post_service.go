package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"snapshare/internal/cache"
	"snapshare/internal/events"
	"snapshare/internal/middleware"
	"snapshare/internal/models"
	"snapshare/internal/observability"
	"snapshare/internal/repository"
	"snapshare/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const slugAttempts = 3

// ImageRemover deletes stored upload files.
type ImageRemover interface {
	Remove(ref string) error
}

// PostService implements post creation, lookup, editing and deletion.
type PostService struct {
	posts  repository.PostRepository
	events events.Publisher
	images ImageRemover
}

// CreatePostInput carries a new post. ImageUploaded marks an ImageRef that
// names a file stored for this request; only such files are ever removed.
type CreatePostInput struct {
	Description   string
	Location      string
	Tags          []string
	ImageRef      string
	ImageUploaded bool
}

// UpdatePostInput carries the fields to change; nil fields are left as they are.
type UpdatePostInput struct {
	Description *string
	Location    *string
	ImageRef    *string
	Tags        *[]string
}

// NewPostService creates a PostService. images may be nil.
func NewPostService(posts repository.PostRepository, publisher events.Publisher, images ImageRemover) *PostService {
	return &PostService{posts: posts, events: publisher, images: images}
}

// CreatePost stores a post authored by viewer under a freshly generated slug.
func (s *PostService) CreatePost(ctx context.Context, viewer Viewer, in CreatePostInput) (*PostView, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	in.ImageRef = strings.TrimSpace(in.ImageRef)
	if in.ImageRef == "" {
		return nil, models.NewValidationError("imageRef is required")
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if err := validation.ValidatePostText(in.Description, in.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tags, err := validation.NormalizeTags(in.Tags)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		AuthorID:    viewer.ID(),
		Description: in.Description,
		Location:    in.Location,
		ImageRef:    in.ImageRef,
		ImageOwned:  in.ImageUploaded,
		Tags:        toPostTags(tags),
	}

	for attempt := 1; ; attempt++ {
		post.Slug = newSlug(in.Description)
		err = s.posts.Create(ctx, post)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == slugAttempts {
			break
		}
		middleware.Logger.WarnContext(ctx, "slug collision, regenerating", slog.String("slug", post.Slug))
		post.ID = 0
		post.Tags = toPostTags(tags)
	}
	if err != nil {
		return nil, translate(err, "post", post.Slug)
	}

	post.Author = *viewer.User
	if len(tags) > 0 {
		cache.Invalidate(ctx, cache.TagsKey)
	}
	publish(ctx, s.events, events.Event{Type: events.PostCreated, PostSlug: post.Slug, UserID: viewer.ID()})

	view := ProjectPost(post, viewer)
	return &view, nil
}

// GetPost returns the post with the given slug as seen by viewer.
func (s *PostService) GetPost(ctx context.Context, viewer Viewer, slug string) (*PostView, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	view := ProjectPost(post, viewer)
	return &view, nil
}

// ownedPost loads slug and checks that viewer wrote it.
func (s *PostService) ownedPost(ctx context.Context, viewer Viewer, slug string) (*models.Post, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	if post.AuthorID != viewer.ID() {
		return nil, models.NewForbiddenError("Only the author can modify this post")
	}
	return post, nil
}

// UpdatePost applies a partial edit by the post's author.
func (s *PostService) UpdatePost(ctx context.Context, viewer Viewer, slug string, in UpdatePostInput) (*PostView, error) {
	post, err := s.ownedPost(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}

	if in.Description != nil {
		post.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		post.Location = strings.TrimSpace(*in.Location)
	}
	if in.ImageRef != nil {
		ref := strings.TrimSpace(*in.ImageRef)
		if ref == "" {
			return nil, models.NewValidationError("imageRef cannot be empty")
		}
		post.ImageRef = ref
	}
	if err := validation.ValidatePostText(post.Description, post.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Tags != nil {
		tags, err := validation.NormalizeTags(*in.Tags)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.Tags = toPostTags(tags)
	}

	released, err := s.posts.Update(ctx, post, in.Tags != nil)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	s.removeImage(ctx, released)
	if in.Tags != nil {
		cache.Invalidate(ctx, cache.TagsKey)
	}

	updated, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	view := ProjectPost(updated, viewer)
	return &view, nil
}

// DeletePost removes the post with its comments, favorites and tags.
func (s *PostService) DeletePost(ctx context.Context, viewer Viewer, slug string) (err error) {
	span, ctx := observability.StartSpan(ctx, "post", "delete", attribute.String("post.slug", slug))
	defer func() { span.End(err) }()

	post, err := s.ownedPost(ctx, viewer, slug)
	if err != nil {
		return err
	}
	released, err := s.posts.Delete(ctx, post.ID)
	if err != nil {
		return translate(err, "post", slug)
	}

	cache.Invalidate(ctx, cache.TagsKey)
	s.removeImage(ctx, released)
	delete(viewer.User.Favorites, post.ID)
	publish(ctx, s.events, events.Event{Type: events.PostDeleted, PostSlug: slug, UserID: viewer.ID()})
	return nil
}

// removeImage deletes a released upload. Failures only leave a stray file.
func (s *PostService) removeImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(ref); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove image file",
			slog.String("image_ref", ref), slog.String("error", err.Error()))
	}
}

// Tags returns every tag in use, served from the cache when possible.
func (s *PostService) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	err := cache.Aside(ctx, cache.TagsKey, &tags, cache.TagsTTL, func() error {
		var err error
		tags, err = s.posts.DistinctTags(ctx)
		return err
	})
	if err != nil {
		return nil, translate(err, "tags", "")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func toPostTags(tags []string) []models.PostTag {
	out := make([]models.PostTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, models.PostTag{Tag: t})
	}
	return out
}
