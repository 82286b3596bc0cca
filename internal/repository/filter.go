package repository

import "gorm.io/gorm"

// Predicate selects posts. The set of implementations is closed: MatchAll,
// MatchNone, HasTag, AuthoredBy, FavoritedBy and AllOf.
type Predicate interface {
	apply(db *gorm.DB) *gorm.DB
	// empty reports whether the predicate can be shown to match nothing
	// without consulting storage.
	empty() bool
}

// MatchAll matches every live post.
type MatchAll struct{}

// MatchNone matches no post. It is what an unresolved author or favoriter
// filter becomes.
type MatchNone struct{}

// HasTag matches posts whose tag set contains Tag.
type HasTag struct {
	Tag string
}

// AuthoredBy matches posts written by any of UserIDs. An empty list matches nothing.
type AuthoredBy struct {
	UserIDs []uint
}

// FavoritedBy matches posts in UserID's favorites.
type FavoritedBy struct {
	UserID uint
}

// AllOf matches posts satisfying every clause. No clauses matches everything.
type AllOf struct {
	Clauses []Predicate
}

func (MatchAll) apply(db *gorm.DB) *gorm.DB { return db }
func (MatchAll) empty() bool                { return false }

func (MatchNone) apply(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
func (MatchNone) empty() bool                { return true }

func (p HasTag) apply(db *gorm.DB) *gorm.DB {
	return db.Where("EXISTS (SELECT 1 FROM post_tags WHERE post_tags.post_id = posts.id AND post_tags.tag = ?)", p.Tag)
}
func (HasTag) empty() bool { return false }

func (p AuthoredBy) apply(db *gorm.DB) *gorm.DB {
	if len(p.UserIDs) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("posts.author_id IN ?", p.UserIDs)
}
func (p AuthoredBy) empty() bool { return len(p.UserIDs) == 0 }

func (p FavoritedBy) apply(db *gorm.DB) *gorm.DB {
	return db.Where("EXISTS (SELECT 1 FROM favorites WHERE favorites.post_id = posts.id AND favorites.user_id = ?)", p.UserID)
}
func (FavoritedBy) empty() bool { return false }

func (p AllOf) apply(db *gorm.DB) *gorm.DB {
	for _, c := range p.Clauses {
		db = c.apply(db)
	}
	return db
}

func (p AllOf) empty() bool {
	for _, c := range p.Clauses {
		if c.empty() {
			return true
		}
	}
	return false
}

// MatchesNothing reports whether p is statically known to match no post.
func MatchesNothing(p Predicate) bool {
	return p != nil && p.empty()
}

// Page is an offset/limit window over an ordered result.
type Page struct {
	Limit  int
	Offset int
}
