package service

import (
	"context"

	"snapshare/internal/models"
	"snapshare/internal/repository"
)

// ProfileService reads profiles and edits the viewer's follow set.
type ProfileService struct {
	users repository.UserRepository
}

func NewProfileService(users repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) GetProfile(ctx context.Context, viewer Viewer, username string) (*ProfileView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, "profile", username)
	}
	view := ProjectProfile(user, viewer)
	return &view, nil
}

func (s *ProfileService) Follow(ctx context.Context, viewer Viewer, username string) (*ProfileView, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, "profile", username)
	}
	if user.ID == viewer.ID() {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if err := s.users.Follow(ctx, viewer.ID(), user.ID); err != nil {
		return nil, translate(err, "profile", username)
	}

	if viewer.User.Following == nil {
		viewer.User.Following = models.NewIDSet()
	}
	viewer.User.Following[user.ID] = struct{}{}
	view := ProjectProfile(user, viewer)
	return &view, nil
}

func (s *ProfileService) Unfollow(ctx context.Context, viewer Viewer, username string) (*ProfileView, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, "profile", username)
	}
	if err := s.users.Unfollow(ctx, viewer.ID(), user.ID); err != nil {
		return nil, translate(err, "profile", username)
	}

	delete(viewer.User.Following, user.ID)
	view := ProjectProfile(user, viewer)
	return &view, nil
}
