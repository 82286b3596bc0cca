package repository

import (
	"context"

	"snapshare/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations. Every mutation
// keeps posts.comment_ids and the comments table in step inside one transaction.
type CommentRepository interface {
	Add(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Remove(ctx context.Context, postID, commentID uint) error
	Reconcile(ctx context.Context, postID uint) (RepairReport, error)
}

// RepairReport counts what Reconcile fixed.
type RepairReport struct {
	// DanglingRefs were ids in comment_ids with no live comment of the post.
	DanglingRefs int
	// Orphans were live comments of the post missing from comment_ids.
	Orphans int
}

// Repaired reports whether Reconcile changed anything.
func (r RepairReport) Repaired() bool {
	return r.DanglingRefs > 0 || r.Orphans > 0
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Add creates the comment and appends its id to the post's comment_ids.
func (r *commentRepository) Add(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, comment.PostID)
		if err != nil {
			return err
		}
		if err := tx.Omit("Author").Create(comment).Error; err != nil {
			return err
		}
		ids := append(append([]uint{}, post.CommentIDs...), comment.ID)
		return setCommentIDs(tx, post.ID, ids)
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns the post's live comments, newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, err
}

// Remove drops commentID from the post's comment_ids, then deletes the
// comment. A comment that is already gone still has its reference dropped
// and gorm.ErrRecordNotFound is returned. If the row exists but cannot be
// deleted through this post the reference removal is rolled back and
// ErrInconsistent is returned.
func (r *commentRepository) Remove(ctx context.Context, postID, commentID uint) error {
	gone := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if err := setCommentIDs(tx, post.ID, post.WithoutComment(commentID)); err != nil {
			return err
		}
		res := tx.Where("post_id = ?", postID).Delete(&models.Comment{}, commentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		var live int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return ErrInconsistent
		}
		gone = true
		return nil
	})
	if err == nil && gone {
		return gorm.ErrRecordNotFound
	}
	return err
}

// Reconcile repairs a post whose comment_ids disagree with its comment rows:
// references without a live comment are dropped and live comments that were
// never referenced are soft-deleted, since their add did not complete.
func (r *commentRepository) Reconcile(ctx context.Context, postID uint) (RepairReport, error) {
	var report RepairReport
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		var live []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &live).Error; err != nil {
			return err
		}
		liveSet := models.NewIDSet(live...)
		referenced := models.NewIDSet(post.CommentIDs...)

		kept := make([]uint, 0, len(post.CommentIDs))
		for _, id := range post.CommentIDs {
			if liveSet.Has(id) {
				kept = append(kept, id)
			} else {
				report.DanglingRefs++
			}
		}

		var orphans []uint
		for _, id := range live {
			if !referenced.Has(id) {
				orphans = append(orphans, id)
			}
		}
		report.Orphans = len(orphans)

		if report.DanglingRefs > 0 {
			if err := setCommentIDs(tx, post.ID, kept); err != nil {
				return err
			}
		}
		if len(orphans) > 0 {
			if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}, orphans).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return report, err
}

func setCommentIDs(tx *gorm.DB, postID uint, ids []uint) error {
	return tx.Model(&models.Post{ID: postID}).
		Select("comment_ids").
		Updates(&models.Post{CommentIDs: ids}).Error
}
