package service

import (
	"context"

	"snapshare/internal/observability"
	"snapshare/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedResult is one page of posts with the total number of matches.
type FeedResult struct {
	Posts      []PostView `json:"posts"`
	TotalCount int64      `json:"totalCount"`
}

func emptyFeed() *FeedResult {
	return &FeedResult{Posts: []PostView{}}
}

// FeedService executes the global and following listings.
type FeedService struct {
	posts   repository.PostRepository
	filters *FilterBuilder
}

// NewFeedService creates a FeedService.
func NewFeedService(posts repository.PostRepository, filters *FilterBuilder) *FeedService {
	return &FeedService{posts: posts, filters: filters}
}

// List returns posts matching params, newest first.
func (s *FeedService) List(ctx context.Context, params ListParams, viewer Viewer) (result *FeedResult, err error) {
	span, ctx := observability.StartSpan(ctx, "feed", "list",
		attribute.String("filter.tag", params.Tag),
		attribute.String("filter.author", params.Author),
		attribute.String("filter.favorited", params.Favorited),
	)
	defer func() {
		observability.FeedRequests.WithLabelValues("list", observability.OutcomeOf(err)).Inc()
		span.End(err)
	}()

	q, err := s.filters.Build(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, q, viewer)
}

// FollowingFeed returns posts by the authors the viewer follows.
func (s *FeedService) FollowingFeed(ctx context.Context, viewer Viewer, page PageParams) (result *FeedResult, err error) {
	span, ctx := observability.StartSpan(ctx, "feed", "following")
	defer func() {
		observability.FeedRequests.WithLabelValues("following", observability.OutcomeOf(err)).Inc()
		span.End(err)
	}()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int("viewer.following", len(viewer.User.Following)))

	return s.run(ctx, FeedQuery{
		Predicate: repository.AuthoredBy{UserIDs: viewer.User.Following.Slice()},
		Page:      NormalizePage(page),
	}, viewer)
}

func (s *FeedService) run(ctx context.Context, q FeedQuery, viewer Viewer) (*FeedResult, error) {
	if repository.MatchesNothing(q.Predicate) {
		return emptyFeed(), nil
	}

	posts, total, err := s.posts.Find(ctx, q.Predicate, q.Page)
	if err != nil {
		return nil, translate(err, "post", "")
	}
	return &FeedResult{Posts: ProjectPosts(posts, viewer), TotalCount: total}, nil
}
