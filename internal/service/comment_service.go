package service

import (
	"context"
	"errors"
	"log/slog"

	"snapshare/internal/events"
	"snapshare/internal/middleware"
	"snapshare/internal/models"
	"snapshare/internal/observability"
	"snapshare/internal/repository"
	"snapshare/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CommentService adds, lists and deletes comments while keeping each post's
// comment_ids in step with its comment rows.
type CommentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	events   events.Publisher
}

// NewCommentService wires the service to its repositories and event sink.
func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository, publisher events.Publisher) *CommentService {
	return &CommentService{posts: posts, comments: comments, events: publisher}
}

// AddComment appends a comment by the viewer to the post.
func (s *CommentService) AddComment(ctx context.Context, viewer Viewer, slug, body string) (view *CommentView, err error) {
	span, ctx := observability.StartSpan(ctx, "comments", "add", attribute.String("post.slug", slug))
	defer func() {
		observability.CommentMutations.WithLabelValues("add", observability.OutcomeOf(err)).Inc()
		span.End(err)
	}()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	body, err = validation.NormalizeCommentBody(body)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "post", slug)
	}

	// Not retried: a lost commit acknowledgement would duplicate the comment.
	comment := &models.Comment{PostID: post.ID, AuthorID: viewer.ID(), Body: body}
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, translate(err, "post", slug)
	}
	comment.Author = *viewer.User

	publish(ctx, s.events, events.Event{Type: events.CommentAdded, PostSlug: slug, UserID: viewer.ID(), CommentID: comment.ID})
	v := ProjectComment(comment, viewer)
	return &v, nil
}

// ListComments returns the post's comments newest first. When the post's
// comment references and the stored comments disagree they are reconciled
// before listing.
func (s *CommentService) ListComments(ctx context.Context, viewer Viewer, slug string) (views []CommentView, err error) {
	span, ctx := observability.StartSpan(ctx, "comments", "list", attribute.String("post.slug", slug))
	defer func() { span.End(err) }()

	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "post", slug)
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, translate(err, "post", slug)
	}

	if !consistent(post, comments) {
		report, err := s.comments.Reconcile(ctx, post.ID)
		if err != nil {
			return nil, translate(err, "post", slug)
		}
		observability.CommentRepairs.WithLabelValues("dangling_ref").Add(float64(report.DanglingRefs))
		observability.CommentRepairs.WithLabelValues("orphan").Add(float64(report.Orphans))
		middleware.Logger.WarnContext(ctx, "repaired post comments",
			slog.String("post_slug", slug),
			slog.Int("dangling_refs", report.DanglingRefs),
			slog.Int("orphans", report.Orphans),
		)
		span.AddAttributes(attribute.Bool("comments.repaired", report.Repaired()))

		if comments, err = s.comments.ListByPost(ctx, post.ID); err != nil {
			return nil, translate(err, "post", slug)
		}
	}

	views = make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, ProjectComment(c, viewer))
	}
	return views, nil
}

// consistent reports whether post.CommentIDs names exactly the given comments.
func consistent(post *models.Post, comments []*models.Comment) bool {
	if len(post.CommentIDs) != len(comments) {
		return false
	}
	refs := models.NewIDSet(post.CommentIDs...)
	if len(refs) != len(post.CommentIDs) {
		return false
	}
	for _, c := range comments {
		if !refs.Has(c.ID) {
			return false
		}
	}
	return true
}

// DeleteComment removes a comment written by the viewer.
func (s *CommentService) DeleteComment(ctx context.Context, viewer Viewer, slug string, commentID uint) (err error) {
	span, ctx := observability.StartSpan(ctx, "comments", "delete",
		attribute.String("post.slug", slug), attribute.Int64("comment.id", int64(commentID)))
	defer func() {
		observability.CommentMutations.WithLabelValues("delete", observability.OutcomeOf(err)).Inc()
		span.End(err)
	}()

	if err := requireViewer(viewer); err != nil {
		return err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return translate(err, "post", slug)
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return translate(err, "comment", commentID)
	}
	if comment.PostID != post.ID {
		return models.NewNotFoundError("comment", commentID)
	}
	if comment.AuthorID != viewer.ID() {
		return models.NewForbiddenError("Only the author can delete this comment")
	}

	// A comment already removed by a concurrent delete succeeds without an event.
	removed := true
	_, err = withRetry(ctx, func() (struct{}, error) {
		err := s.comments.Remove(ctx, post.ID, commentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			removed = false
			return struct{}{}, nil
		}
		return struct{}{}, translate(err, "comment", commentID)
	})
	if err != nil || !removed {
		return err
	}

	publish(ctx, s.events, events.Event{Type: events.CommentDeleted, PostSlug: slug, UserID: viewer.ID(), CommentID: commentID})
	return nil
}
