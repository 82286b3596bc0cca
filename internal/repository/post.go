// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"snapshare/internal/database"
	"snapshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInconsistent reports a multi-row mutation that could not be completed
// as a unit. The enclosing transaction has been rolled back.
var ErrInconsistent = errors.New("repository: inconsistent post/comment state")

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Find(ctx context.Context, pred Predicate, page Page) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post, replaceTags bool) (releasedImage string, err error)
	Delete(ctx context.Context, id uint) (releasedImage string, err error)
	Favorite(ctx context.Context, userID, postID uint) (uint, error)
	Unfavorite(ctx context.Context, userID, postID uint) (uint, error)
	DistinctTags(ctx context.Context) ([]string, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post together with its tags.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("Author").Create(post).Error
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Tags").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Find returns one page of posts matching pred, newest first, and the number
// of matches ignoring the page. Both come from the same transaction.
func (r *postRepository) Find(ctx context.Context, pred Predicate, page Page) ([]*models.Post, int64, error) {
	if pred == nil {
		pred = MatchAll{}
	}

	var (
		posts []*models.Post
		total int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pred.apply(tx.Model(&models.Post{})).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 || page.Limit <= 0 || int64(page.Offset) >= total {
			return nil
		}
		return pred.apply(tx.Model(&models.Post{})).
			Preload("Author").
			Preload("Tags").
			Order("posts.created_at DESC").
			Order("posts.id DESC").
			Offset(page.Offset).
			Limit(page.Limit).
			Find(&posts).Error
	}, snapshotOptions(r.db)...)
	if err != nil {
		return nil, 0, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, total, nil
}

// snapshotOptions asks PostgreSQL for a read-only repeatable-read snapshot.
// SQLite transactions are already serializable.
func snapshotOptions(db *gorm.DB) []*sql.TxOptions {
	if !database.IsPostgres(db) {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

// Update writes the author-editable columns. When replaceTags is set the tag
// set is replaced by post.Tags in the same transaction. A changed ImageRef is
// never owned; the previous file is returned as releasedImage when the post
// owned it and no other live post references it.
func (r *postRepository) Update(ctx context.Context, post *models.Post, replaceTags bool) (string, error) {
	var released string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := lockPost(tx, post.ID)
		if err != nil {
			return err
		}
		post.ImageOwned = prev.ImageOwned && prev.ImageRef == post.ImageRef

		if err := tx.Model(&models.Post{ID: post.ID}).
			Select("description", "location", "image_ref", "image_owned").
			Updates(&models.Post{
				Description: post.Description,
				Location:    post.Location,
				ImageRef:    post.ImageRef,
				ImageOwned:  post.ImageOwned,
			}).Error; err != nil {
			return err
		}
		if prev.ImageOwned && prev.ImageRef != post.ImageRef {
			if released, err = unreferencedImage(tx, prev.ImageRef); err != nil {
				return err
			}
		}

		if !replaceTags {
			return nil
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if len(post.Tags) == 0 {
			return nil
		}
		for i := range post.Tags {
			post.Tags[i].PostID = post.ID
		}
		return tx.Create(&post.Tags).Error
	})
	if err != nil {
		return "", err
	}
	return released, nil
}

// Delete soft-deletes the post and removes everything hanging off it. The
// slug stays reserved by the soft-deleted row. The image is returned as
// releasedImage when the post owned it and no other live post references it.
func (r *postRepository) Delete(ctx context.Context, id uint) (string, error) {
	var released string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{ID: id}).
			Select("comment_ids", "favorite_count").
			Updates(&models.Post{CommentIDs: []uint{}, FavoriteCount: 0}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return err
		}
		if post.ImageOwned {
			released, err = unreferencedImage(tx, post.ImageRef)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return released, nil
}

// unreferencedImage returns ref if no live post points at it any more.
func unreferencedImage(tx *gorm.DB, ref string) (string, error) {
	var n int64
	if err := tx.Model(&models.Post{}).Where("image_ref = ?", ref).Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}
	return ref, nil
}

// Favorite adds postID to userID's favorites and returns the recomputed count.
func (r *postRepository) Favorite(ctx context.Context, userID, postID uint) (uint, error) {
	return r.mutateFavorites(ctx, postID, func(tx *gorm.DB) error {
		// Set semantics: a second favorite by the same user is a no-op.
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Favorite{UserID: userID, PostID: postID, CreatedAt: time.Now().UTC()}).Error
	})
}

// Unfavorite removes postID from userID's favorites and returns the recomputed count.
func (r *postRepository) Unfavorite(ctx context.Context, userID, postID uint) (uint, error) {
	return r.mutateFavorites(ctx, postID, func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Favorite{}).Error
	})
}

// mutateFavorites serializes favorite changes per post behind the post row
// lock, then rewrites favorite_count from the favorites table. The count is
// never incremented in place.
func (r *postRepository) mutateFavorites(ctx context.Context, postID uint, change func(tx *gorm.DB) error) (uint, error) {
	var count uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		if err := change(tx); err != nil {
			return err
		}
		if err := tx.Exec(
			`UPDATE posts SET favorite_count = (SELECT COUNT(*) FROM favorites WHERE favorites.post_id = ?) WHERE id = ?`,
			postID, postID,
		).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Select("favorite_count").Where("id = ?", postID).Scan(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postRepository) DistinctTags(ctx context.Context) ([]string, error) {
	tags := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.PostTag{}).
		Distinct("tag").
		Order("tag ASC").
		Pluck("tag", &tags).Error
	return tags, err
}

// lockPost loads the live post row and, on PostgreSQL, holds FOR UPDATE on it
// until the transaction ends. The SQLite dialect drops the locking clause.
func lockPost(tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}
