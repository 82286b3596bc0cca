package repository

import (
	"context"
	"strings"

	"snapshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users and the follow graph.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	LoadRelations(ctx context.Context, user *models.User) error
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LoadRelations fills user.Following and user.Favorites from the follows and
// favorites tables. Favorites of soft-deleted posts are not reported.
func (r *userRepository) LoadRelations(ctx context.Context, user *models.User) error {
	db := r.db.WithContext(ctx)

	var following []uint
	if err := db.Model(&models.Follow{}).
		Where("follower_id = ?", user.ID).
		Pluck("followee_id", &following).Error; err != nil {
		return err
	}

	var favorites []uint
	if err := db.Model(&models.Favorite{}).
		Joins("JOIN posts ON posts.id = favorites.post_id AND posts.deleted_at IS NULL").
		Where("favorites.user_id = ?", user.ID).
		Pluck("favorites.post_id", &favorites).Error; err != nil {
		return err
	}

	user.Following = models.NewIDSet(following...)
	user.Favorites = models.NewIDSet(favorites...)
	return nil
}

// Follow is idempotent.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

// Unfollow is idempotent.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
}
