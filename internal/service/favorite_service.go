package service

import (
	"context"

	"snapshare/internal/events"
	"snapshare/internal/models"
	"snapshare/internal/observability"
	"snapshare/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FavoriteService maintains user favorites and the cached post counts.
type FavoriteService struct {
	posts  repository.PostRepository
	events events.Publisher
}

// NewFavoriteService creates a FavoriteService.
func NewFavoriteService(posts repository.PostRepository, publisher events.Publisher) *FavoriteService {
	return &FavoriteService{posts: posts, events: publisher}
}

// Favorite adds the post to the viewer's favorites. Repeating it is a no-op.
func (s *FavoriteService) Favorite(ctx context.Context, viewer Viewer, slug string) (*PostView, error) {
	return s.mutate(ctx, viewer, slug, "favorite")
}

// Unfavorite removes the post from the viewer's favorites. Repeating it is a no-op.
func (s *FavoriteService) Unfavorite(ctx context.Context, viewer Viewer, slug string) (*PostView, error) {
	return s.mutate(ctx, viewer, slug, "unfavorite")
}

func (s *FavoriteService) mutate(ctx context.Context, viewer Viewer, slug, op string) (view *PostView, err error) {
	span, ctx := observability.StartSpan(ctx, "favorites", op, attribute.String("post.slug", slug))
	defer func() {
		observability.FavoriteMutations.WithLabelValues(op, observability.OutcomeOf(err)).Inc()
		span.End(err)
	}()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "post", slug)
	}

	apply := s.posts.Favorite
	evtType := events.PostFavorited
	if op == "unfavorite" {
		apply = s.posts.Unfavorite
		evtType = events.PostUnfavorited
	}

	count, err := withRetry(ctx, func() (uint, error) {
		n, err := apply(ctx, viewer.ID(), post.ID)
		return n, translate(err, "post", slug)
	})
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int64("post.favorite_count", int64(count)))

	if op == "unfavorite" {
		delete(viewer.User.Favorites, post.ID)
	} else {
		if viewer.User.Favorites == nil {
			viewer.User.Favorites = models.NewIDSet()
		}
		viewer.User.Favorites[post.ID] = struct{}{}
	}

	refreshed, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	publish(ctx, s.events, events.Event{
		Type:          evtType,
		PostSlug:      slug,
		UserID:        viewer.ID(),
		FavoriteCount: events.Count(refreshed.FavoriteCount),
	})

	v := ProjectPost(refreshed, viewer)
	return &v, nil
}
