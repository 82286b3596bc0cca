package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"snapshare/internal/events"
	"snapshare/internal/models"
	"snapshare/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentIDs(t *testing.T, f *fixture, postID uint) []uint {
	t.Helper()
	var p models.Post
	require.NoError(t, f.db.First(&p, postID).Error)
	return p.CommentIDs
}

func TestCommentService_AddAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	reader := f.user(t, "reader")
	p := f.post(t, author, "pic", time.Now())

	first, err := f.comment.AddComment(ctx, f.viewer(t, reader), "pic", "  lovely  ")
	require.NoError(t, err)
	assert.Equal(t, "lovely", first.Body)
	assert.Equal(t, "reader", first.Author.Username)

	second, err := f.comment.AddComment(ctx, f.viewer(t, author), "pic", "thanks")
	require.NoError(t, err)

	assert.Equal(t, []uint{first.ID, second.ID}, commentIDs(t, f, p.ID))

	list, err := f.comment.ListComments(ctx, Anonymous, "pic")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "thanks", list[0].Body)
	assert.Equal(t, "lovely", list[1].Body)

	got, err := f.postSvc.GetPost(ctx, Anonymous, "pic")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)
	assert.Equal(t, []string{events.CommentAdded, events.CommentAdded}, f.publisher.types())
}

func TestCommentService_AddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p := f.post(t, author, "pic", time.Now())
	v := f.viewer(t, author)

	_, err := f.comment.AddComment(ctx, v, "pic", "   ")
	assertCode(t, err, models.CodeValidation)
	_, err = f.comment.AddComment(ctx, v, "pic", strings.Repeat("a", 10001))
	assertCode(t, err, models.CodeValidation)
	_, err = f.comment.AddComment(ctx, v, "missing", "hello")
	assertCode(t, err, models.CodeNotFound)
	_, err = f.comment.AddComment(ctx, Anonymous, "pic", "hello")
	assertCode(t, err, models.CodeUnauthorized)

	assert.Empty(t, commentIDs(t, f, p.ID))
}

func TestCommentService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	stranger := f.user(t, "stranger")
	p := f.post(t, author, "pic", time.Now())
	other := f.post(t, author, "other", time.Now())

	c, err := f.comment.AddComment(ctx, f.viewer(t, author), "pic", "mine")
	require.NoError(t, err)
	foreign, err := f.comment.AddComment(ctx, f.viewer(t, author), "other", "elsewhere")
	require.NoError(t, err)

	t.Run("non-author is forbidden", func(t *testing.T) {
		err := f.comment.DeleteComment(ctx, f.viewer(t, stranger), "pic", c.ID)
		assertCode(t, err, models.CodeForbidden)
		assert.Equal(t, []uint{c.ID}, commentIDs(t, f, p.ID))
	})

	t.Run("comment of another post", func(t *testing.T) {
		err := f.comment.DeleteComment(ctx, f.viewer(t, author), "pic", foreign.ID)
		assertCode(t, err, models.CodeNotFound)
		assert.Equal(t, []uint{foreign.ID}, commentIDs(t, f, other.ID))
	})

	t.Run("unknown comment", func(t *testing.T) {
		err := f.comment.DeleteComment(ctx, f.viewer(t, author), "pic", 4242)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("author deletes", func(t *testing.T) {
		require.NoError(t, f.comment.DeleteComment(ctx, f.viewer(t, author), "pic", c.ID))
		assert.Empty(t, commentIDs(t, f, p.ID))
		_, err := f.comments.GetByID(ctx, c.ID)
		assert.Error(t, err)
		assert.Contains(t, f.publisher.types(), events.CommentDeleted)
	})
}

// racedComments removes the comment on behalf of a concurrent request just
// before the service's own Remove runs.
type racedComments struct {
	repository.CommentRepository
	removes int
}

func (r *racedComments) Remove(ctx context.Context, postID, commentID uint) error {
	r.removes++
	if r.removes == 1 {
		if err := r.CommentRepository.Remove(ctx, postID, commentID); err != nil {
			return err
		}
	}
	return r.CommentRepository.Remove(ctx, postID, commentID)
}

func TestCommentService_DeleteRacedByConcurrentDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p := f.post(t, author, "pic", time.Now())
	c, err := f.comment.AddComment(ctx, f.viewer(t, author), "pic", "twice")
	require.NoError(t, err)

	comments := &racedComments{CommentRepository: f.comments}
	svc := NewCommentService(f.posts, comments, f.publisher)

	require.NoError(t, svc.DeleteComment(ctx, f.viewer(t, author), "pic", c.ID))
	assert.Equal(t, 1, comments.removes)
	assert.Empty(t, commentIDs(t, f, p.ID))
	assert.NotContains(t, f.publisher.types(), events.CommentDeleted)
}

func TestCommentService_DeleteSurfacesInconsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	f.post(t, author, "pic", time.Now())
	c, err := f.comment.AddComment(ctx, f.viewer(t, author), "pic", "stuck")
	require.NoError(t, err)

	comments := &failingComments{CommentRepository: f.comments, removeErr: repository.ErrInconsistent}
	svc := NewCommentService(f.posts, comments, f.publisher)

	err = svc.DeleteComment(ctx, f.viewer(t, author), "pic", c.ID)
	assertCode(t, err, models.CodeInconsistency)
	assert.True(t, models.IsRetryable(err))
	assert.Equal(t, maxAttempts, comments.removes)
	assert.NotContains(t, f.publisher.types(), events.CommentDeleted)
}

func TestCommentService_ListRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p := f.post(t, author, "pic", time.Now())
	good, err := f.comment.AddComment(ctx, f.viewer(t, author), "pic", "good")
	require.NoError(t, err)

	// An orphan that was never linked and a dangling reference.
	require.NoError(t, f.db.Create(&models.Comment{PostID: p.ID, AuthorID: author.ID, Body: "orphan"}).Error)
	require.NoError(t, f.db.Model(&models.Post{ID: p.ID}).
		Select("comment_ids").
		Updates(&models.Post{CommentIDs: []uint{good.ID, 777}}).Error)

	list, err := f.comment.ListComments(ctx, Anonymous, "pic")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, good.ID, list[0].ID)
	assert.Equal(t, []uint{good.ID}, commentIDs(t, f, p.ID))
}

func TestConsistent(t *testing.T) {
	post := &models.Post{CommentIDs: []uint{1, 2}}
	assert.True(t, consistent(post, []*models.Comment{{ID: 2}, {ID: 1}}))
	assert.False(t, consistent(post, []*models.Comment{{ID: 1}}))
	assert.False(t, consistent(post, []*models.Comment{{ID: 1}, {ID: 3}}))
	assert.False(t, consistent(&models.Post{CommentIDs: []uint{1, 1}}, []*models.Comment{{ID: 1}, {ID: 2}}))
}
