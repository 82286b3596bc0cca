package service

import (
	"time"

	"snapshare/internal/models"
)

// ProfileView is the public rendering of a user, also used as author summary.
type ProfileView struct {
	Username    string `json:"username"`
	Bio         string `json:"bio"`
	Image       string `json:"image"`
	IsFollowing bool   `json:"isFollowing"`
}

// PostView is a post rendered for a viewer.
type PostView struct {
	Slug          string      `json:"slug"`
	Description   string      `json:"description"`
	Location      string      `json:"location"`
	TagList       []string    `json:"tagList"`
	ImageRef      string      `json:"imageRef"`
	FavoriteCount uint        `json:"favoriteCount"`
	CommentCount  int         `json:"commentCount"`
	IsFavorited   bool        `json:"isFavorited"`
	Author        ProfileView `json:"author"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// CommentView is a comment rendered for a viewer.
type CommentView struct {
	ID        uint        `json:"id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Author    ProfileView `json:"author"`
}

// UserView is the caller's own account.
type UserView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// ProjectProfile renders u for v.
func ProjectProfile(u *models.User, v Viewer) ProfileView {
	return ProfileView{
		Username:    u.Username,
		Bio:         u.Bio,
		Image:       u.Image,
		IsFollowing: v.Follows(u.ID),
	}
}

// ProjectPost renders p for v. p.Author must be loaded.
func ProjectPost(p *models.Post, v Viewer) PostView {
	return PostView{
		Slug:          p.Slug,
		Description:   p.Description,
		Location:      p.Location,
		TagList:       p.TagList(),
		ImageRef:      p.ImageRef,
		FavoriteCount: p.FavoriteCount,
		CommentCount:  len(p.CommentIDs),
		IsFavorited:   v.HasFavorited(p.ID),
		Author:        ProjectProfile(&p.Author, v),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ProjectPosts renders a page of posts. It never returns nil.
func ProjectPosts(posts []*models.Post, v Viewer) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, ProjectPost(p, v))
	}
	return out
}

// ProjectComment renders c for v. c.Author must be loaded.
func ProjectComment(c *models.Comment, v Viewer) CommentView {
	return CommentView{
		ID:        c.ID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    ProjectProfile(&c.Author, v),
	}
}

// ProjectUser renders the caller's own account.
func ProjectUser(u *models.User) UserView {
	return UserView{Username: u.Username, Email: u.Email, Bio: u.Bio, Image: u.Image}
}
