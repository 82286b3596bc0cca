package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// Post is an image post. The slug unique index also covers soft-deleted rows,
// so a slug is never handed out twice.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null;size:128" json:"slug"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"-"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `json:"location"`
	ImageRef    string    `gorm:"not null;index" json:"image_ref"`
	// ImageOwned is set when ImageRef names a file this service stored for
	// the post. Refs supplied by clients are never owned.
	ImageOwned bool      `gorm:"not null;default:false" json:"-"`
	Tags       []PostTag `gorm:"foreignKey:PostID" json:"-"`
	// FavoriteCount caches COUNT(favorites WHERE post_id = id). Only the
	// favorite ledger writes it, and always by recomputing.
	FavoriteCount uint `gorm:"not null;default:0" json:"favorite_count"`
	// CommentIDs lists the post's comments in insertion order.
	CommentIDs []uint         `gorm:"serializer:json;type:text" json:"comment_ids"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostTag is one member of a post's tag set.
type PostTag struct {
	PostID uint   `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Tag    string `gorm:"primaryKey;size:64;index" json:"tag"`
}

// TagList returns the post's tags sorted alphabetically.
func (p *Post) TagList() []string {
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		out = append(out, t.Tag)
	}
	sort.Strings(out)
	return out
}

// HasComment reports whether id is referenced by CommentIDs.
func (p *Post) HasComment(id uint) bool {
	for _, cid := range p.CommentIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// WithoutComment returns CommentIDs minus id, preserving order.
func (p *Post) WithoutComment(id uint) []uint {
	out := make([]uint, 0, len(p.CommentIDs))
	for _, cid := range p.CommentIDs {
		if cid != id {
			out = append(out, cid)
		}
	}
	return out
}
