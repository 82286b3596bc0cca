// Package seed populates a database with demo users, posts, follows,
// favorites and comments. Everything goes through the service layer so the
// seeded data satisfies the same invariants as live traffic. Intended for
// development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snapshare/internal/events"
	"snapshare/internal/middleware"
	"snapshare/internal/models"
	"snapshare/internal/repository"
	"snapshare/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Snapshare-demo-1!"

// Options configuration for the seeder
type Options struct {
	Users            int
	Posts            int
	FollowsPerUser   int
	FavoritesPerUser int
	CommentsPerPost  int
	Clean            bool
}

// DefaultOptions returns a small but connected demo data set.
func DefaultOptions() Options {
	return Options{
		Users:            20,
		Posts:            80,
		FollowsPerUser:   5,
		FavoritesPerUser: 10,
		CommentsPerPost:  3,
		Clean:            true,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Posts     int
	Follows   int
	Favorites int
	Comments  int
}

// Seeder drives the services with fake content.
type Seeder struct {
	db        *gorm.DB
	users     repository.UserRepository
	identity  *service.IdentityResolver
	auth      *service.AuthService
	profiles  *service.ProfileService
	posts     *service.PostService
	favorites *service.FavoriteService
	comments  *service.CommentService
	faker     *gofakeit.Faker
}

// NewSeeder wires the services against db. secret signs the tokens issued
// on registration; they are discarded. A non-zero randSeed makes runs
// reproducible.
func NewSeeder(db *gorm.DB, secret string, randSeed int64) *Seeder {
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	pub := events.NopPublisher{}

	return &Seeder{
		db:        db,
		users:     users,
		identity:  service.NewIdentityResolver(users),
		auth:      service.NewAuthService(users, secret),
		profiles:  service.NewProfileService(users),
		posts:     service.NewPostService(posts, pub, nil),
		favorites: service.NewFavoriteService(posts, pub),
		comments:  service.NewCommentService(posts, comments, pub),
		faker:     gofakeit.New(randSeed),
	}
}

// ClearAll deletes every row of the application tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{
		&models.Comment{},
		&models.Favorite{},
		&models.PostTag{},
		&models.Post{},
		&models.Follow{},
		&models.User{},
	}
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, m := range tables {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// Run seeds the database according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	viewers, err := s.createUsers(ctx, opts.Users)
	if err != nil {
		return sum, err
	}
	sum.Users = len(viewers)
	if len(viewers) == 0 {
		return sum, nil
	}

	slugs, err := s.createPosts(ctx, viewers, opts.Posts)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(slugs)

	if sum.Follows, err = s.createFollows(ctx, viewers, opts.FollowsPerUser); err != nil {
		return sum, err
	}
	if sum.Favorites, err = s.createFavorites(ctx, viewers, slugs, opts.FavoritesPerUser); err != nil {
		return sum, err
	}
	if sum.Comments, err = s.createComments(ctx, viewers, slugs, opts.CommentsPerPost); err != nil {
		return sum, err
	}

	middleware.Logger.InfoContext(ctx, "seed completed",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("favorites", sum.Favorites),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

func (s *Seeder) createUsers(ctx context.Context, n int) ([]service.Viewer, error) {
	viewers := make([]service.Viewer, 0, n)
	for i := range n {
		username := seedUsername(s.faker.Username(), i)
		if _, err := s.auth.Register(ctx, service.RegisterInput{
			Username: username,
			Email:    username + "@example.com",
			Password: DemoPassword,
		}); err != nil {
			return nil, fmt.Errorf("register %s: %w", username, err)
		}
		u, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", username, err)
		}
		v, err := s.identity.Required(ctx, u.ID, true)
		if err != nil {
			return nil, err
		}
		viewers = append(viewers, v)
	}
	return viewers, nil
}

func (s *Seeder) createPosts(ctx context.Context, viewers []service.Viewer, n int) ([]string, error) {
	slugs := make([]string, 0, n)
	for range n {
		author := viewers[s.faker.Number(0, len(viewers)-1)]
		tags := make([]string, 0, 3)
		for range s.faker.Number(0, 3) {
			tags = append(tags, strings.ToLower(s.faker.Noun()))
		}
		post, err := s.posts.CreatePost(ctx, author, service.CreatePostInput{
			Description: s.faker.Sentence(8),
			Location:    s.faker.City(),
			Tags:        tags,
			ImageRef:    "seed/" + s.faker.UUID() + ".jpg",
		})
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		slugs = append(slugs, post.Slug)
	}
	return slugs, nil
}

func (s *Seeder) createFollows(ctx context.Context, viewers []service.Viewer, perUser int) (int, error) {
	if len(viewers) < 2 {
		return 0, nil
	}
	count := 0
	for _, v := range viewers {
		for range perUser {
			target := viewers[s.faker.Number(0, len(viewers)-1)]
			if target.ID() == v.ID() || v.Follows(target.ID()) {
				continue
			}
			if _, err := s.profiles.Follow(ctx, v, target.User.Username); err != nil {
				return count, fmt.Errorf("follow: %w", err)
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) createFavorites(ctx context.Context, viewers []service.Viewer, slugs []string, perUser int) (int, error) {
	if len(slugs) == 0 {
		return 0, nil
	}
	count := 0
	for _, v := range viewers {
		seen := make(map[string]bool)
		for range perUser {
			slug := slugs[s.faker.Number(0, len(slugs)-1)]
			if seen[slug] {
				continue
			}
			seen[slug] = true
			if _, err := s.favorites.Favorite(ctx, v, slug); err != nil {
				return count, fmt.Errorf("favorite: %w", err)
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) createComments(ctx context.Context, viewers []service.Viewer, slugs []string, perPost int) (int, error) {
	count := 0
	for _, slug := range slugs {
		for range s.faker.Number(0, perPost) {
			author := viewers[s.faker.Number(0, len(viewers)-1)]
			if _, err := s.comments.AddComment(ctx, author, slug, s.faker.Sentence(10)); err != nil {
				return count, fmt.Errorf("comment: %w", err)
			}
			count++
		}
	}
	return count, nil
}

// seedUsername turns a generated name into a valid, unique username.
func seedUsername(name string, i int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}
