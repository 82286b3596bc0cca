package service

import (
	"context"

	"snapshare/internal/models"
	"snapshare/internal/repository"
)

// Viewer is the caller a request runs on behalf of. The zero value is the
// anonymous viewer.
type Viewer struct {
	User *models.User
}

// Anonymous is the viewer of unauthenticated requests.
var Anonymous = Viewer{}

// IsAnonymous reports whether no user is resolved.
func (v Viewer) IsAnonymous() bool { return v.User == nil }

// ID returns the viewer's user id, 0 when anonymous.
func (v Viewer) ID() uint {
	if v.User == nil {
		return 0
	}
	return v.User.ID
}

// HasFavorited reports whether postID is in the viewer's favorites.
func (v Viewer) HasFavorited(postID uint) bool {
	return v.User != nil && v.User.Favorites.Has(postID)
}

// Follows reports whether the viewer follows userID.
func (v Viewer) Follows(userID uint) bool {
	return v.User != nil && v.User.Following.Has(userID)
}

// IdentityResolver turns the user id established by the auth middleware into
// a materialized Viewer.
type IdentityResolver struct {
	users repository.UserRepository
}

// NewIdentityResolver creates an IdentityResolver.
func NewIdentityResolver(users repository.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// Optional resolves the caller for routes that allow anonymous access. A
// token whose user no longer exists yields the anonymous viewer.
func (r *IdentityResolver) Optional(ctx context.Context, userID uint, present bool) (Viewer, error) {
	if !present || userID == 0 {
		return Anonymous, nil
	}
	v, err := r.load(ctx, userID)
	if isNotFound(err) {
		return Anonymous, nil
	}
	return v, err
}

// Required resolves the caller for authenticated routes. A missing identity
// or a dangling user id is Unauthorized.
func (r *IdentityResolver) Required(ctx context.Context, userID uint, present bool) (Viewer, error) {
	if !present || userID == 0 {
		return Anonymous, models.NewUnauthorizedError("Authentication required")
	}
	v, err := r.load(ctx, userID)
	if isNotFound(err) {
		return Anonymous, models.NewUnauthorizedError("Authenticated user no longer exists")
	}
	return v, err
}

func (r *IdentityResolver) load(ctx context.Context, userID uint) (Viewer, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return Anonymous, translate(err, "user", userID)
	}
	if err := r.users.LoadRelations(ctx, user); err != nil {
		return Anonymous, translate(err, "user", userID)
	}
	return Viewer{User: user}, nil
}

// requireViewer rejects the anonymous viewer.
func requireViewer(v Viewer) error {
	if v.IsAnonymous() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}
