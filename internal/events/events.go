// Package events publishes post activity to Redis pub/sub or Kafka.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	PostCreated     = "post.created"
	PostDeleted     = "post.deleted"
	PostFavorited   = "post.favorited"
	PostUnfavorited = "post.unfavorited"
	CommentAdded    = "comment.added"
	CommentDeleted  = "comment.deleted"
)

// Event is the JSON payload written to every sink.
type Event struct {
	Type          string    `json:"type"`
	PostSlug      string    `json:"post_slug"`
	UserID        uint      `json:"user_id"`
	FavoriteCount *uint     `json:"favorite_count,omitempty"`
	CommentID     uint      `json:"comment_id,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// Count returns a pointer to n for Event.FavoriteCount.
func Count(n uint) *uint {
	return &n
}
